package models

import (
	"net/http"
	"time"
)

// Screen is the view the terminal currently shows.
type Screen string

const (
	ScreenLoading Screen = "loading"
	ScreenLogin   Screen = "login"
	ScreenPOS     Screen = "pos"
)

// MessageKind tells the sales screen how to style its message.
type MessageKind string

const (
	MessageNone    MessageKind = ""
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

// Terminal is everything one browser session holds: the signed-in user and
// the local state of whichever screen is showing.
type Terminal struct {
	ID     string `json:"id"`
	User   User   `json:"user,omitempty"`
	Screen Screen `json:"screen"`

	LoginError   string `json:"login_error,omitempty"`
	LoginPending bool   `json:"login_pending,omitempty"`
	// PendingAt is when the current login or sale request started.
	PendingAt time.Time `json:"pending_at"`

	Products      []Product  `json:"products,omitempty"`
	Categories    []Category `json:"categories,omitempty"`
	CatalogLoaded bool       `json:"catalog_loaded,omitempty"`
	Cart          Cart       `json:"cart"`

	CustomerName   string `json:"customer_name,omitempty"`
	CustomerPhone  string `json:"customer_phone,omitempty"`
	CustomerPoints int    `json:"customer_points"`
	LookupSeq      int64  `json:"lookup_seq"`

	PaymentMethod string      `json:"payment_method"`
	Message       string      `json:"message,omitempty"`
	MessageKind   MessageKind `json:"message_kind,omitempty"`
	SalePending   bool        `json:"sale_pending,omitempty"`

	Cookies CookieJar `json:"cookies,omitempty"`
}

// NewTerminal returns a terminal waiting for its session check.
func NewTerminal(id string) *Terminal {
	return &Terminal{ID: id, Screen: ScreenLoading, PaymentMethod: PaymentCash}
}

// SignedIn reports whether the sales screen is showing for a user.
func (t *Terminal) SignedIn() bool { return t.Screen == ScreenPOS }

// SignIn attaches u and switches to the sales screen.
func (t *Terminal) SignIn(u User) {
	t.resetScreen()
	if u == nil {
		u = User{}
	}
	t.User = u
	t.Screen = ScreenPOS
}

// SignOut drops the user and all screen state. The backend cookies go too.
func (t *Terminal) SignOut() {
	t.resetScreen()
	t.User = nil
	t.Cookies = nil
	t.Screen = ScreenLogin
}

// ShowLogin switches to the login screen without touching the user.
func (t *Terminal) ShowLogin() {
	t.resetScreen()
	t.Screen = ScreenLogin
}

// SetMessage replaces the sales screen message.
func (t *Terminal) SetMessage(kind MessageKind, msg string) {
	t.MessageKind = kind
	t.Message = msg
}

// ClearCustomer empties the customer fields and supersedes any lookup in
// flight. Points are kept.
func (t *Terminal) ClearCustomer() {
	t.LookupSeq++
	t.CustomerName = ""
	t.CustomerPhone = ""
}

// CanSubmitSale mirrors the enabled state of the submit button.
func (t *Terminal) CanSubmitSale() bool {
	return !t.SalePending && !t.Cart.Empty()
}

func (t *Terminal) resetScreen() {
	t.LoginError = ""
	t.LoginPending = false
	t.Products = nil
	t.Categories = nil
	t.CatalogLoaded = false
	t.Cart = Cart{}
	t.CustomerName = ""
	t.CustomerPhone = ""
	t.CustomerPoints = 0
	t.PaymentMethod = PaymentCash
	t.Message = ""
	t.MessageKind = MessageNone
	t.SalePending = false
	t.PendingAt = time.Time{}
}

// StoredCookie is a backend cookie kept between requests.
type StoredCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

// CookieJar holds the backend's session cookies for one terminal.
type CookieJar []StoredCookie

// HTTPCookies returns the unexpired cookies for an outgoing request.
func (j CookieJar) HTTPCookies(now time.Time) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(j))
	for _, c := range j {
		if !c.Expires.IsZero() && now.After(c.Expires) {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// Merge applies Set-Cookie values from a backend response. A negative
// MaxAge or an empty value deletes the cookie.
func (j CookieJar) Merge(set []*http.Cookie, now time.Time) CookieJar {
	for _, c := range set {
		j = j.without(c.Name)
		if c.MaxAge < 0 || c.Value == "" {
			continue
		}
		sc := StoredCookie{Name: c.Name, Value: c.Value}
		switch {
		case c.MaxAge > 0:
			sc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			if !c.Expires.After(now) {
				continue
			}
			sc.Expires = c.Expires
		}
		j = append(j, sc)
	}
	return j
}

func (j CookieJar) without(name string) CookieJar {
	out := j[:0:0]
	for _, c := range j {
		if c.Name != name {
			out = append(out, c)
		}
	}
	return out
}
