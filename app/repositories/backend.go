package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/yellowrose/possrv/app/models"
	"github.com/yellowrose/possrv/config"
	"github.com/yellowrose/possrv/pkg/http"
	"github.com/yellowrose/possrv/pkg/metrics"
)

var (
	// ErrRejected means the backend answered with success=false.
	ErrRejected = errors.New("backend: request rejected")
	// ErrTransport covers network failures, unexpected statuses and bodies
	// that are not the expected JSON envelope.
	ErrTransport = errors.New("backend: unreachable")
)

// Backend calls the sales backend. Every call is made once, with the
// terminal's cookie jar, and cookies set by the response are merged back
// into the jar.
type Backend struct {
	baseURL string
	timeout time.Duration
	now     func() time.Time
}

// NewBackend returns a client for the backend at baseURL.
func NewBackend(baseURL string, timeout time.Duration) *Backend {
	return &Backend{baseURL: baseURL, timeout: timeout, now: time.Now}
}

// NewBackendFromConfig reads BACKEND_URL and BACKEND_TIMEOUT.
func NewBackendFromConfig() *Backend {
	return NewBackend(config.BackendURL(), config.BackendTimeout())
}

// SessionStatus is the answer to a session check.
type SessionStatus struct {
	LoggedIn bool        `json:"logged_in"`
	User     models.User `json:"user"`
}

// CheckSession asks whether the jar's cookies belong to an active session.
func (b *Backend) CheckSession(ctx context.Context, jar *models.CookieJar) (SessionStatus, error) {
	var out SessionStatus
	err := b.do(ctx, "check-session", http.Get(b.url("/api/check-session")), jar, &out)
	return out, err
}

// Login authenticates username/password and returns the backend's user.
func (b *Backend) Login(ctx context.Context, jar *models.CookieJar, username, password string) (models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	req := http.Post(b.url("/api/login")).Body(map[string]string{
		"username": username,
		"password": password,
	})
	err := b.do(ctx, "login", req, jar, &out)
	return out.User, err
}

// Logout ends the backend session.
func (b *Backend) Logout(ctx context.Context, jar *models.CookieJar) error {
	return b.do(ctx, "logout", http.Post(b.url("/api/logout")), jar, nil)
}

// Products returns the catalog snapshot.
func (b *Backend) Products(ctx context.Context, jar *models.CookieJar) ([]models.Product, error) {
	var out struct {
		Products []models.Product `json:"products"`
	}
	err := b.do(ctx, "products", http.Get(b.url("/api/products")), jar, &out)
	return out.Products, err
}

// Categories returns the product categories.
func (b *Backend) Categories(ctx context.Context, jar *models.CookieJar) ([]models.Category, error) {
	var out struct {
		Categories []models.Category `json:"categories"`
	}
	err := b.do(ctx, "categories", http.Get(b.url("/api/categories")), jar, &out)
	return out.Categories, err
}

// CustomerByPhone looks a customer up by phone. An unknown phone is ErrRejected.
func (b *Backend) CustomerByPhone(ctx context.Context, jar *models.CookieJar, phone string) (models.Customer, error) {
	var out struct {
		Customer models.Customer `json:"customer"`
	}
	err := b.do(ctx, "customer-by-phone", http.Get(b.url("/api/customers/phone/"+url.PathEscape(phone))), jar, &out)
	return out.Customer, err
}

// RecordSale submits a completed sale.
func (b *Backend) RecordSale(ctx context.Context, jar *models.CookieJar, sale models.SaleRequest) (models.SaleResult, error) {
	var out models.SaleResult
	err := b.do(ctx, "sales", http.Post(b.url("/api/sales")).Body(sale), jar, &out)
	return out, err
}

func (b *Backend) url(path string) string { return b.baseURL + path }

// do sends req and decodes the envelope. A non-2xx answer whose body is
// still a {"success":false} envelope counts as a rejection.
func (b *Backend) do(ctx context.Context, endpoint string, req *http.Request, jar *models.CookieJar, dest interface{}) error {
	outcome := "error"
	defer metrics.ObserveBackend(endpoint, &outcome, time.Now())

	if jar == nil {
		jar = &models.CookieJar{}
	}

	resp, err := req.WithContext(ctx).Cookies(jar.HTTPCookies(b.now())).Timeout(b.timeout).Send()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransport, endpoint, err)
	}
	*jar = jar.Merge(resp.Cookies(), b.now())

	var env struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(resp.Raw, &env); err != nil || env.Success == nil {
		return fmt.Errorf("%w: %s: status %d, no envelope", ErrTransport, endpoint, resp.StatusCode)
	}
	if !*env.Success {
		outcome = "rejected"
		return fmt.Errorf("%w: %s: status %d", ErrRejected, endpoint, resp.StatusCode)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: %s: status %d", ErrTransport, endpoint, resp.StatusCode)
	}

	if dest != nil {
		if err := resp.JSON(dest); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrTransport, endpoint, err)
		}
	}
	outcome = "ok"
	return nil
}
