package controllers

import (
	"errors"
	"strconv"

	"github.com/yellowrose/possrv/app/models"
	"github.com/yellowrose/possrv/app/repositories"
	"github.com/yellowrose/possrv/app/services"
	"github.com/yellowrose/possrv/pkg/ctx"
	"github.com/yellowrose/possrv/pkg/view"
)

// POSController serves the sales screen.
type POSController struct {
	base
	sessions  *services.SessionService
	sales     *services.SalesService
	minDigits int
}

func NewPOSController(views *view.Engine, sessions *services.SessionService, sales *services.SalesService, minDigits int) *POSController {
	return &POSController{base: base{views: views}, sessions: sessions, sales: sales, minDigits: minDigits}
}

type posPage struct {
	T              *models.Terminal
	Username       string
	Total          float64
	Points         int
	PaymentOptions []models.PaymentOption
	MinDigits      int
}

type productForm struct {
	ProductID int `form:"product_id" validate:"required"`
	Quantity  int `form:"quantity"`
}

type customerForm struct {
	CustomerName  string `form:"customer_name"`
	CustomerPhone string `form:"customer_phone"`
}

type saleForm struct {
	PaymentMethod string `form:"payment_method"`
	CustomerName  string `form:"customer_name"`
	CustomerPhone string `form:"customer_phone"`
}

// LookupResult is the JSON answer to a phone keystroke.
type LookupResult struct {
	CustomerName   string `json:"customer_name"`
	CustomerPhone  string `json:"customer_phone"`
	CustomerPoints int    `json:"customer_points"`
	Queried        bool   `json:"queried"`
	Found          bool   `json:"found"`
	Stale          bool   `json:"stale"`
}

// Index renders the sales screen, fetching the catalog on first entry.
func (p *POSController) Index(c *ctx.Context) {
	id := terminalID(c)
	t := p.sessions.Terminal(c.Context(), id)
	if !t.SignedIn() {
		p.redirect(c, "/")
		return
	}
	if !t.CatalogLoaded {
		loaded, err := p.sales.LoadCatalog(c.Context(), id)
		if err != nil {
			p.fail(c, err, "/pos")
			return
		}
		t = loaded
	}

	p.render(c, "pos", posPage{
		T:              t,
		Username:       t.User.DisplayName(),
		Total:          t.Cart.Total(),
		Points:         t.Cart.Points(),
		PaymentOptions: models.PaymentOptions,
		MinDigits:      p.minDigits,
	})
}

// Refresh fetches the catalog again.
func (p *POSController) Refresh(c *ctx.Context) {
	if _, err := p.sales.LoadCatalog(c.Context(), terminalID(c)); err != nil {
		p.fail(c, err, "/pos")
		return
	}
	p.redirect(c, "/pos")
}

// AddToCart adds one unit of the posted product.
func (p *POSController) AddToCart(c *ctx.Context) {
	var in productForm
	errs, ok := c.BindForm(&in)
	if !ok {
		return
	}
	if len(errs) > 0 {
		p.redirect(c, "/pos")
		return
	}
	if _, err := p.sales.AddToCart(c.Context(), terminalID(c), in.ProductID); err != nil {
		p.fail(c, err, "/pos")
		return
	}
	p.redirect(c, "/pos")
}

// UpdateQuantity sets a cart line's quantity.
func (p *POSController) UpdateQuantity(c *ctx.Context) {
	var in productForm
	errs, ok := c.BindForm(&in)
	if !ok {
		return
	}
	if len(errs) > 0 {
		p.redirect(c, "/pos")
		return
	}
	if _, err := p.sales.UpdateQuantity(c.Context(), terminalID(c), in.ProductID, in.Quantity); err != nil {
		p.fail(c, err, "/pos")
		return
	}
	p.redirect(c, "/pos")
}

// LookupCustomer answers a phone keystroke with the terminal's customer fields.
func (p *POSController) LookupCustomer(c *ctx.Context) {
	seq, _ := strconv.ParseInt(c.Query("seq"), 10, 64)
	res, err := p.sales.LookupCustomer(c.Context(), terminalID(c), c.Query("phone"), seq)
	if err != nil {
		p.fail(c, err, "/pos")
		return
	}
	c.SaveSession()
	c.Success(LookupResult{
		CustomerName:   res.Terminal.CustomerName,
		CustomerPhone:  res.Terminal.CustomerPhone,
		CustomerPoints: res.Terminal.CustomerPoints,
		Queried:        res.Queried,
		Found:          res.Found,
		Stale:          res.Stale,
	})
}

// SetCustomer stores the customer fields as typed.
func (p *POSController) SetCustomer(c *ctx.Context) {
	var in customerForm
	if _, ok := c.BindForm(&in); !ok {
		return
	}
	if _, err := p.sales.SetCustomer(c.Context(), terminalID(c), in.CustomerName, in.CustomerPhone); err != nil {
		p.fail(c, err, "/pos")
		return
	}
	if c.WantsJSON() {
		c.SaveSession()
		c.Success(nil)
		return
	}
	p.redirect(c, "/pos")
}

// SetPaymentMethod stores the selected payment method.
func (p *POSController) SetPaymentMethod(c *ctx.Context) {
	var in saleForm
	if _, ok := c.BindForm(&in); !ok {
		return
	}
	if _, err := p.sales.SetPaymentMethod(c.Context(), terminalID(c), in.PaymentMethod); err != nil {
		p.fail(c, err, "/pos")
		return
	}
	if c.WantsJSON() {
		c.SaveSession()
		c.Success(nil)
		return
	}
	p.redirect(c, "/pos")
}

// SubmitSale records the sale. The outcome message is shown on the sales
// screen.
func (p *POSController) SubmitSale(c *ctx.Context) {
	var in saleForm
	if _, ok := c.BindForm(&in); !ok {
		return
	}
	id := terminalID(c)

	if c.R.PostForm.Has("customer_phone") || c.R.PostForm.Has("customer_name") {
		if _, err := p.sales.SetCustomer(c.Context(), id, in.CustomerName, in.CustomerPhone); err != nil {
			p.fail(c, err, "/pos")
			return
		}
	}

	_, err := p.sales.SubmitSale(c.Context(), id, in.PaymentMethod)
	switch {
	case err == nil,
		errors.Is(err, services.ErrValidation),
		errors.Is(err, repositories.ErrRejected),
		errors.Is(err, repositories.ErrTransport):
		p.redirect(c, "/pos")
	default:
		p.fail(c, err, "/pos")
	}
}
