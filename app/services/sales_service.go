package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yellowrose/possrv/app/models"
	"github.com/yellowrose/possrv/app/repositories"
	"github.com/yellowrose/possrv/pkg/collection"
	"github.com/yellowrose/possrv/pkg/event"
	"github.com/yellowrose/possrv/pkg/logger"
)

// SalesService drives the sales screen: catalog, cart, customer lookup and
// sale submission. Cart changes never reach the backend.
type SalesService struct {
	backend    *repositories.Backend
	terminals  *repositories.TerminalRepository
	minDigits  int
	staleAfter time.Duration
	now        func() time.Time
}

// NewSalesService returns a SalesService. Phones shorter than minDigits are
// never looked up. A pending sale older than staleAfter no longer blocks a
// new one.
func NewSalesService(backend *repositories.Backend, terminals *repositories.TerminalRepository, minDigits int, staleAfter time.Duration) *SalesService {
	return &SalesService{
		backend:    backend,
		terminals:  terminals,
		minDigits:  minDigits,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// LoadCatalog fetches products and categories. Each fetch is independent:
// a failure is logged and keeps the previous snapshot of that list.
func (s *SalesService) LoadCatalog(ctx context.Context, id string) (*models.Terminal, error) {
	log := logger.WithCtx(ctx)

	snap := s.terminals.Find(ctx, id)
	if !snap.SignedIn() {
		return snap, ErrNotSignedIn
	}
	jar := snap.Cookies

	products, perr := s.backend.Products(ctx, &jar)
	if perr != nil {
		log.Warn("fetch products failed", "terminal", id, "error", perr)
	}
	categories, cerr := s.backend.Categories(ctx, &jar)
	if cerr != nil {
		log.Warn("fetch categories failed", "terminal", id, "error", cerr)
	}

	return s.terminals.Update(ctx, id, func(t *models.Terminal) error {
		t.Cookies = jar
		t.CatalogLoaded = true
		if perr == nil {
			t.Products = products
		}
		if cerr == nil {
			t.Categories = categories
		}
		return nil
	})
}

// AddToCart adds one unit of a catalog product. Unknown or out-of-stock
// products are ignored.
func (s *SalesService) AddToCart(ctx context.Context, id string, productID int) (*models.Terminal, error) {
	return s.update(ctx, id, func(t *models.Terminal) {
		p, ok := collection.First(t.Products, func(p models.Product) bool { return p.ProductID == productID })
		if ok && p.Available() {
			t.Cart.Add(p)
		}
	})
}

// UpdateQuantity sets a cart line's quantity; zero or below removes it.
func (s *SalesService) UpdateQuantity(ctx context.Context, id string, productID, quantity int) (*models.Terminal, error) {
	return s.update(ctx, id, func(t *models.Terminal) {
		t.Cart.Update(productID, quantity)
	})
}

// SetCustomerName stores the customer name field.
func (s *SalesService) SetCustomerName(ctx context.Context, id, name string) (*models.Terminal, error) {
	return s.update(ctx, id, func(t *models.Terminal) {
		t.CustomerName = name
	})
}

// SetCustomer stores both customer fields as typed, without a lookup. A
// changed phone supersedes any lookup still in flight.
func (s *SalesService) SetCustomer(ctx context.Context, id, name, phone string) (*models.Terminal, error) {
	return s.update(ctx, id, func(t *models.Terminal) {
		if phone != t.CustomerPhone {
			t.LookupSeq++
		}
		t.CustomerName = name
		t.CustomerPhone = phone
	})
}

// SetPaymentMethod stores the payment method. Empty means cash.
func (s *SalesService) SetPaymentMethod(ctx context.Context, id, method string) (*models.Terminal, error) {
	return s.update(ctx, id, func(t *models.Terminal) {
		t.PaymentMethod = paymentOrDefault(method)
	})
}

// Lookup is the outcome of one phone keystroke.
type Lookup struct {
	Terminal *models.Terminal
	// Queried is false when the phone was too short for a lookup.
	Queried bool
	// Found is true when the backend knew the phone.
	Found bool
	// Stale is true when a newer keystroke arrived first and this response
	// was dropped.
	Stale bool
}

// LookupCustomer records a phone keystroke and, once the phone has enough
// digits, asks the backend for the customer. seq orders keystrokes from one
// page; a response for a keystroke older than the newest one seen is
// discarded. seq <= 0 means "newest".
func (s *SalesService) LookupCustomer(ctx context.Context, id, phone string, seq int64) (Lookup, error) {
	var jar models.CookieJar
	stale := false
	t, err := s.terminals.Update(ctx, id, func(t *models.Terminal) error {
		if !t.SignedIn() {
			return ErrNotSignedIn
		}
		if seq <= 0 {
			seq = t.LookupSeq + 1
		}
		if seq < t.LookupSeq {
			stale = true
			return nil
		}
		t.LookupSeq = seq
		t.CustomerPhone = phone
		jar = t.Cookies
		return nil
	})
	if err != nil || stale {
		return Lookup{Terminal: t, Stale: stale}, err
	}

	if utf8.RuneCountInString(phone) < s.minDigits {
		return Lookup{Terminal: t}, nil
	}

	customer, lookupErr := s.backend.CustomerByPhone(ctx, &jar, phone)
	if lookupErr != nil && !errors.Is(lookupErr, repositories.ErrRejected) {
		logger.WithCtx(ctx).Warn("customer lookup failed", "terminal", id, "error", lookupErr)
	}

	out := Lookup{Queried: true, Found: lookupErr == nil}
	t, err = s.terminals.Update(ctx, id, func(t *models.Terminal) error {
		t.Cookies = jar
		if seq < t.LookupSeq {
			out.Stale = true
			return nil
		}
		if lookupErr != nil {
			t.CustomerPoints = 0
			return nil
		}
		t.CustomerName = customer.Name
		t.CustomerPoints = customer.LoyaltyPoints
		return nil
	})
	out.Terminal = t
	return out, err
}

// SubmitSale records the cart as a sale. Missing cart lines, name or phone
// set a validation message without calling the backend. On success the
// cart and customer fields are cleared, the earned points are added and the
// catalog is fetched again. On failure the terminal is left as it was,
// apart from the error message.
func (s *SalesService) SubmitSale(ctx context.Context, id, paymentMethod string) (*models.Terminal, error) {
	log := logger.WithCtx(ctx)

	var (
		req      models.SaleRequest
		jar      models.CookieJar
		guardErr error
	)
	t, err := s.terminals.Update(ctx, id, func(t *models.Terminal) error {
		if !t.SignedIn() {
			return ErrNotSignedIn
		}
		if t.SalePending && s.now().Sub(t.PendingAt) < s.staleAfter {
			return ErrInFlight
		}
		if paymentMethod != "" {
			t.PaymentMethod = paymentMethod
		}
		if t.Cart.Empty() || t.CustomerName == "" || t.CustomerPhone == "" {
			t.SetMessage(models.MessageError, MsgSaleIncomplete)
			guardErr = ErrValidation
			return nil
		}

		t.SalePending = true
		t.PendingAt = s.now()
		req = models.SaleRequest{
			CustomerName:  t.CustomerName,
			CustomerPhone: t.CustomerPhone,
			TotalAmount:   t.Cart.Total(),
			PaymentMethod: paymentOrDefault(t.PaymentMethod),
			Items:         t.Cart.Items(),
		}
		jar = t.Cookies
		return nil
	})
	if err != nil {
		return t, err
	}
	if guardErr != nil {
		return t, guardErr
	}

	result, saleErr := s.backend.RecordSale(ctx, &jar, req)

	t, err = s.terminals.Update(ctx, id, func(t *models.Terminal) error {
		t.Cookies = jar
		t.SalePending = false
		t.PendingAt = time.Time{}
		if saleErr != nil {
			t.SetMessage(models.MessageError, MsgSaleFailed)
			return nil
		}
		t.SetMessage(models.MessageSuccess, SaleCompletedMessage(string(result.InvoiceNumber)))
		t.Cart.Clear()
		t.ClearCustomer()
		t.CustomerPoints += result.PointsEarned
		return nil
	})
	if err != nil {
		return t, err
	}

	payload := SaleEvent{
		TerminalID:    id,
		InvoiceNumber: string(result.InvoiceNumber),
		Total:         req.TotalAmount,
		PointsEarned:  result.PointsEarned,
		PaymentMethod: req.PaymentMethod,
		Lines:         len(req.Items),
	}
	if saleErr != nil {
		log.Warn("sale failed", "terminal", id, "error", saleErr)
		event.Fire(ctx, EventSaleFailed, payload)
		return t, saleErr
	}

	log.Info("sale recorded", "terminal", id, "invoice", payload.InvoiceNumber, "total", payload.Total)
	event.Fire(ctx, EventSaleCompleted, payload)

	if refreshed, err := s.LoadCatalog(ctx, id); err == nil {
		t = refreshed
	}
	return t, nil
}

func (s *SalesService) update(ctx context.Context, id string, fn func(t *models.Terminal)) (*models.Terminal, error) {
	return s.terminals.Update(ctx, id, func(t *models.Terminal) error {
		if !t.SignedIn() {
			return ErrNotSignedIn
		}
		fn(t)
		return nil
	})
}

func paymentOrDefault(method string) string {
	if strings.TrimSpace(method) == "" {
		return models.PaymentCash
	}
	return method
}
