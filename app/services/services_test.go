package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yellowrose/possrv/app/models"
	"github.com/yellowrose/possrv/app/repositories"
	"github.com/yellowrose/possrv/app/services"
	"github.com/yellowrose/possrv/pkg/cache"
	"github.com/yellowrose/possrv/pkg/event"
	pkghttp "github.com/yellowrose/possrv/pkg/http"
	"github.com/yellowrose/possrv/pkg/testkit"
)

const productsJSON = `{"success":true,"products":[
	{"product_id":1,"name":"وردة حمراء","category_name":"ورود","price":25,"quantity":10},
	{"product_id":2,"name":"باقة","category_name":"باقات","price":45,"quantity":0}
]}`

type fixture struct {
	mt        *testkit.MockTransport
	terminals *repositories.TerminalRepository
	sessions  *services.SessionService
	login     *services.LoginService
	sales     *services.SalesService
	ctx       context.Context
}

func setup(t *testing.T) *fixture {
	t.Helper()
	prev := cache.Default
	cache.Default = cache.NewMemory()
	t.Cleanup(func() { cache.Default = prev })
	t.Cleanup(event.Flush)

	backend := repositories.NewBackend("http://backend.test", time.Second)
	terminals := repositories.NewTerminalRepository(time.Hour)
	sessions := services.NewSessionService(backend, terminals)
	return &fixture{
		mt:        testkit.Install(t),
		terminals: terminals,
		sessions:  sessions,
		login:     services.NewLoginService(backend, terminals, sessions, time.Minute),
		sales:     services.NewSalesService(backend, terminals, 10, time.Minute),
		ctx:       context.Background(),
	}
}

// signedIn puts terminal "t1" on the sales screen with the catalog loaded.
func (f *fixture) signedIn(t *testing.T) {
	t.Helper()
	_, err := f.sessions.AcceptUser(f.ctx, "t1", models.User{"username": "admin"})
	require.NoError(t, err)
	f.mt.On("GET", "/api/products").Reply(200, productsJSON)
	f.mt.On("GET", "/api/categories").Reply(200, `{"success":true,"categories":[{"category_id":1,"name":"ورود"}]}`)
	_, err = f.sales.LoadCatalog(f.ctx, "t1")
	require.NoError(t, err)
}

// readyToSell adds two roses and a customer.
func (f *fixture) readyToSell(t *testing.T) {
	t.Helper()
	f.signedIn(t)
	_, err := f.sales.AddToCart(f.ctx, "t1", 1)
	require.NoError(t, err)
	_, err = f.sales.AddToCart(f.ctx, "t1", 1)
	require.NoError(t, err)
	_, err = f.sales.SetCustomerName(f.ctx, "t1", "سارة")
	require.NoError(t, err)
	_, err = f.terminals.Update(f.ctx, "t1", func(term *models.Terminal) error {
		term.CustomerPhone = "0551234567"
		term.CustomerPoints = 12
		return nil
	})
	require.NoError(t, err)
}

// --- session ---

func TestStartLoggedInShowsSales(t *testing.T) {
	f := setup(t)
	f.mt.On("GET", "/api/check-session").Reply(200, `{"success":true,"logged_in":true,"user":{"username":"admin"}}`)

	term, err := f.sessions.Start(f.ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.ScreenPOS, term.Screen)
	assert.Equal(t, "admin", term.User.DisplayName())
}

func TestStartNotLoggedInShowsLogin(t *testing.T) {
	f := setup(t)
	f.mt.On("GET", "/api/check-session").Reply(200, `{"success":true,"logged_in":false}`)

	term, err := f.sessions.Start(f.ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.ScreenLogin, term.Screen)
}

func TestStartTransportErrorShowsLogin(t *testing.T) {
	f := setup(t)
	f.mt.On("GET", "/api/check-session").Fail(errors.New("connection refused"))

	term, err := f.sessions.Start(f.ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.ScreenLogin, term.Screen)
	assert.Empty(t, term.LoginError)
}

func TestStartKeepsCartOnReload(t *testing.T) {
	f := setup(t)
	f.signedIn(t)
	_, err := f.sales.AddToCart(f.ctx, "t1", 1)
	require.NoError(t, err)

	f.mt.On("GET", "/api/check-session").Reply(200, `{"success":true,"logged_in":true,"user":{"username":"admin"}}`)
	term, err := f.sessions.Start(f.ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, term.Cart.Lines, 1)
}

func TestLogoutClearsEvenWhenBackendFails(t *testing.T) {
	f := setup(t)
	f.readyToSell(t)
	f.mt.On("POST", "/api/logout").Fail(errors.New("connection reset"))

	var fired []services.AuthEvent
	event.Listen(services.EventLogout, func(_ context.Context, p interface{}) {
		fired = append(fired, p.(services.AuthEvent))
	})

	term, err := f.sessions.Logout(f.ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.ScreenLogin, term.Screen)
	assert.Nil(t, term.User)
	assert.True(t, term.Cart.Empty())
	require.Len(t, fired, 1)
	assert.Equal(t, "admin", fired[0].Username)
}

// --- login ---

func TestLoginSuccess(t *testing.T) {
	f := setup(t)
	f.mt.On("POST", "/api/login").Reply(200, `{"success":true,"user":{"username":"admin"}}`)

	term, err := f.login.Submit(f.ctx, "t1", services.LoginInput{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, models.ScreenPOS, term.Screen)
	assert.False(t, term.LoginPending)
	assert.Empty(t, term.LoginError)
}

func TestLoginRejectedShowsInlineError(t *testing.T) {
	f := setup(t)
	f.mt.On("POST", "/api/login").Reply(200, `{"success":false}`)

	term, err := f.login.Submit(f.ctx, "t1", services.LoginInput{Username: "admin", Password: "x"})
	assert.ErrorIs(t, err, repositories.ErrRejected)
	assert.Equal(t, services.MsgInvalidCredentials, term.LoginError)
	assert.NotEqual(t, models.ScreenPOS, term.Screen)
	assert.False(t, term.LoginPending)
}

func TestLoginConnectionError(t *testing.T) {
	f := setup(t)
	f.mt.On("POST", "/api/login").Fail(errors.New("dial tcp: refused"))

	term, err := f.login.Submit(f.ctx, "t1", services.LoginInput{Username: "admin", Password: "admin123"})
	assert.ErrorIs(t, err, repositories.ErrTransport)
	assert.Equal(t, services.MsgConnectionError, term.LoginError)
}

func TestLoginMissingFieldsMakesNoCall(t *testing.T) {
	f := setup(t)

	term, err := f.login.Submit(f.ctx, "t1", services.LoginInput{Username: "admin"})
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.Equal(t, services.MsgCredentialsMissing, term.LoginError)
	assert.Empty(t, f.mt.Requests())
}

func TestLoginWhitespaceUsernameReachesBackend(t *testing.T) {
	f := setup(t)
	f.mt.On("POST", "/api/login").Reply(200, `{"success":false}`)

	term, err := f.login.Submit(f.ctx, "t1", services.LoginInput{Username: " ", Password: "x"})
	assert.ErrorIs(t, err, repositories.ErrRejected)
	assert.Equal(t, services.MsgInvalidCredentials, term.LoginError)
	assert.Equal(t, 1, f.mt.Count("POST", "/api/login"))
}

func TestLoginInFlightBlocksSecondSubmit(t *testing.T) {
	f := setup(t)
	_, err := f.terminals.Update(f.ctx, "t1", func(term *models.Terminal) error {
		term.LoginPending = true
		term.PendingAt = time.Now()
		return nil
	})
	require.NoError(t, err)

	_, err = f.login.Submit(f.ctx, "t1", services.LoginInput{Username: "admin", Password: "admin123"})
	assert.ErrorIs(t, err, services.ErrInFlight)
	assert.Empty(t, f.mt.Requests())
}

func TestLoginStalePendingDoesNotBlock(t *testing.T) {
	f := setup(t)
	f.mt.On("POST", "/api/login").Reply(200, `{"success":true,"user":{"username":"admin"}}`)
	_, err := f.terminals.Update(f.ctx, "t1", func(term *models.Terminal) error {
		term.LoginPending = true
		term.PendingAt = time.Now().Add(-time.Hour)
		return nil
	})
	require.NoError(t, err)

	term, err := f.login.Submit(f.ctx, "t1", services.LoginInput{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	assert.True(t, term.SignedIn())
}

// --- catalog & cart ---

func TestLoadCatalogFailuresAreIndependent(t *testing.T) {
	f := setup(t)
	f.signedIn(t)

	f.mt.On("GET", "/api/products").Fail(errors.New("timeout"))
	f.mt.On("GET", "/api/categories").Reply(200, `{"success":true,"categories":[{"category_id":1,"name":"ورود"},{"category_id":2,"name":"باقات"}]}`)

	term, err := f.sales.LoadCatalog(f.ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, term.Products, 2, "previous product snapshot kept")
	assert.Len(t, term.Categories, 2)
}

func TestAddToCartIgnoresOutOfStockAndUnknown(t *testing.T) {
	f := setup(t)
	f.signedIn(t)

	term, err := f.sales.AddToCart(f.ctx, "t1", 2)
	require.NoError(t, err)
	assert.True(t, term.Cart.Empty())

	term, err = f.sales.AddToCart(f.ctx, "t1", 99)
	require.NoError(t, err)
	assert.True(t, term.Cart.Empty())
}

func TestCartChangesMakeNoBackendCalls(t *testing.T) {
	f := setup(t)
	f.signedIn(t)
	before := len(f.mt.Requests())

	_, _ = f.sales.AddToCart(f.ctx, "t1", 1)
	_, _ = f.sales.UpdateQuantity(f.ctx, "t1", 1, 4)
	term, err := f.sales.UpdateQuantity(f.ctx, "t1", 1, 0)
	require.NoError(t, err)

	assert.True(t, term.Cart.Empty())
	assert.Len(t, f.mt.Requests(), before)
}

func TestSalesActionsNeedSignedInTerminal(t *testing.T) {
	f := setup(t)
	_, err := f.sales.AddToCart(f.ctx, "t1", 1)
	assert.ErrorIs(t, err, services.ErrNotSignedIn)
}

// --- customer lookup ---

func TestLookupBelowThresholdMakesNoCall(t *testing.T) {
	f := setup(t)
	f.signedIn(t)
	before := len(f.mt.Requests())

	res, err := f.sales.LookupCustomer(f.ctx, "t1", "055123456", 1)
	require.NoError(t, err)
	assert.False(t, res.Queried)
	assert.Equal(t, "055123456", res.Terminal.CustomerPhone)
	assert.Len(t, f.mt.Requests(), before)
}

func TestLookupMatchOverwritesNameAndPoints(t *testing.T) {
	f := setup(t)
	f.signedIn(t)
	f.mt.On("GET", "/api/customers/phone/0551234567").
		Reply(200, `{"success":true,"customer":{"name":"سارة","loyalty_points":40}}`)
	_, _ = f.sales.SetCustomerName(f.ctx, "t1", "typed")

	res, err := f.sales.LookupCustomer(f.ctx, "t1", "0551234567", 1)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "سارة", res.Terminal.CustomerName)
	assert.Equal(t, 40, res.Terminal.CustomerPoints)
}

func TestLookupMissResetsPointsOnly(t *testing.T) {
	f := setup(t)
	f.signedIn(t)
	_, err := f.terminals.Update(f.ctx, "t1", func(term *models.Terminal) error {
		term.CustomerName = "typed so far"
		term.CustomerPoints = 30
		return nil
	})
	require.NoError(t, err)
	f.mt.On("GET", "/api/customers/phone/").Reply(404, `{"success":false,"message":"not found"}`)

	res, err := f.sales.LookupCustomer(f.ctx, "t1", "0559999999", 1)
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Zero(t, res.Terminal.CustomerPoints)
	assert.Equal(t, "typed so far", res.Terminal.CustomerName)
}

func TestLookupErrorResetsPoints(t *testing.T) {
	f := setup(t)
	f.signedIn(t)
	_, _ = f.terminals.Update(f.ctx, "t1", func(term *models.Terminal) error {
		term.CustomerPoints = 30
		return nil
	})
	f.mt.On("GET", "/api/customers/phone/").Fail(errors.New("refused"))

	res, err := f.sales.LookupCustomer(f.ctx, "t1", "0559999999", 1)
	require.NoError(t, err)
	assert.Zero(t, res.Terminal.CustomerPoints)
}

func TestLookupStaleKeystrokeIsDropped(t *testing.T) {
	f := setup(t)
	f.signedIn(t)
	f.mt.On("GET", "/api/customers/phone/").
		Reply(200, `{"success":true,"customer":{"name":"قديم","loyalty_points":99}}`)

	_, err := f.sales.LookupCustomer(f.ctx, "t1", "05512345678", 5)
	require.NoError(t, err)

	res, err := f.sales.LookupCustomer(f.ctx, "t1", "0551234567", 4)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, "05512345678", res.Terminal.CustomerPhone)
}

type hookTransport struct {
	next   http.RoundTripper
	before func()
}

func (h hookTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	h.before()
	return h.next.RoundTrip(r)
}

func TestLookupResponseSupersededWhileInFlight(t *testing.T) {
	f := setup(t)
	f.signedIn(t)
	f.mt.On("GET", "/api/customers/phone/").
		Reply(200, `{"success":true,"customer":{"name":"قديم","loyalty_points":99}}`)

	// A newer keystroke lands while this lookup is waiting on the backend.
	pkghttp.DefaultClient.Transport = hookTransport{next: f.mt, before: func() {
		_, err := f.sales.LookupCustomer(f.ctx, "t1", "055123456", 7)
		require.NoError(t, err)
	}}

	res, err := f.sales.LookupCustomer(f.ctx, "t1", "0551234567", 6)
	require.NoError(t, err)
	assert.True(t, res.Queried)
	assert.True(t, res.Stale)
	assert.Empty(t, res.Terminal.CustomerName)
	assert.Equal(t, "055123456", res.Terminal.CustomerPhone)
}

// --- sale ---

func TestSubmitSaleGuardMakesNoCall(t *testing.T) {
	cases := map[string]func(term *models.Terminal){
		"empty cart": func(term *models.Terminal) { term.Cart.Clear() },
		"no name":    func(term *models.Terminal) { term.CustomerName = "" },
		"no phone":   func(term *models.Terminal) { term.CustomerPhone = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := setup(t)
			f.readyToSell(t)
			_, err := f.terminals.Update(f.ctx, "t1", func(term *models.Terminal) error {
				mutate(term)
				return nil
			})
			require.NoError(t, err)

			term, err := f.sales.SubmitSale(f.ctx, "t1", "")
			assert.ErrorIs(t, err, services.ErrValidation)
			assert.Equal(t, services.MsgSaleIncomplete, term.Message)
			assert.Zero(t, f.mt.Count("POST", "/api/sales"))
		})
	}
}

func TestSubmitSaleAcceptsWhitespaceCustomerFields(t *testing.T) {
	f := setup(t)
	f.readyToSell(t)
	_, err := f.terminals.Update(f.ctx, "t1", func(term *models.Terminal) error {
		term.CustomerName = " "
		return nil
	})
	require.NoError(t, err)
	f.mt.On("POST", "/api/sales").Reply(200, `{"success":true,"invoice_number":"INV-9","points_earned":5}`)

	_, err = f.sales.SubmitSale(f.ctx, "t1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, f.mt.Count("POST", "/api/sales"))
}

func TestSubmitSaleSuccess(t *testing.T) {
	f := setup(t)
	f.readyToSell(t)
	f.mt.On("POST", "/api/sales").Reply(200, `{"success":true,"invoice_number":"INV-123","points_earned":5}`)

	var completed []services.SaleEvent
	event.Listen(services.EventSaleCompleted, func(_ context.Context, p interface{}) {
		completed = append(completed, p.(services.SaleEvent))
	})
	productCalls := f.mt.Count("GET", "/api/products")

	term, err := f.sales.SubmitSale(f.ctx, "t1", models.PaymentCard)
	require.NoError(t, err)

	assert.True(t, term.Cart.Empty())
	assert.Empty(t, term.CustomerName)
	assert.Empty(t, term.CustomerPhone)
	assert.Equal(t, 17, term.CustomerPoints)
	assert.Equal(t, services.SaleCompletedMessage("INV-123"), term.Message)
	assert.Equal(t, models.MessageSuccess, term.MessageKind)
	assert.False(t, term.SalePending)
	assert.Equal(t, productCalls+1, f.mt.Count("GET", "/api/products"), "catalog refetched")

	var body []byte
	for _, r := range f.mt.Requests() {
		if r.Path == "/api/sales" {
			body = r.Body
		}
	}
	testkit.AssertJSONBody(t, `{
		"customer_name":"سارة","customer_phone":"0551234567","total_amount":50,
		"payment_method":"بطاقة","items":[{"product_id":1,"quantity":2,"unit_price":25}]
	}`, body)

	require.Len(t, completed, 1)
	assert.Equal(t, "INV-123", completed[0].InvoiceNumber)
	assert.Equal(t, 50.0, completed[0].Total)
}

func TestSubmitSaleFailureLeavesStateUntouched(t *testing.T) {
	failures := map[string]func(*testkit.MockTransport){
		"rejected": func(mt *testkit.MockTransport) { mt.On("POST", "/api/sales").Reply(200, `{"success":false}`) },
		"http 500": func(mt *testkit.MockTransport) { mt.On("POST", "/api/sales").Reply(500, `oops`) },
		"network":  func(mt *testkit.MockTransport) { mt.On("POST", "/api/sales").Fail(errors.New("reset")) },
	}
	for name, fail := range failures {
		t.Run(name, func(t *testing.T) {
			f := setup(t)
			f.readyToSell(t)
			before := f.terminals.Find(f.ctx, "t1")
			fail(f.mt)

			term, err := f.sales.SubmitSale(f.ctx, "t1", "")
			assert.Error(t, err)
			assert.Equal(t, services.MsgSaleFailed, term.Message)
			assert.Equal(t, before.Cart, term.Cart)
			assert.Equal(t, before.CustomerName, term.CustomerName)
			assert.Equal(t, before.CustomerPhone, term.CustomerPhone)
			assert.Equal(t, before.CustomerPoints, term.CustomerPoints)
			assert.False(t, term.SalePending)
		})
	}
}

func TestSubmitSaleInFlightBlocks(t *testing.T) {
	f := setup(t)
	f.readyToSell(t)
	_, err := f.terminals.Update(f.ctx, "t1", func(term *models.Terminal) error {
		term.SalePending = true
		term.PendingAt = time.Now()
		return nil
	})
	require.NoError(t, err)

	_, err = f.sales.SubmitSale(f.ctx, "t1", "")
	assert.ErrorIs(t, err, services.ErrInFlight)
	assert.Zero(t, f.mt.Count("POST", "/api/sales"))
}

func TestSetCustomerSupersedesPendingLookup(t *testing.T) {
	f := setup(t)
	f.signedIn(t)
	f.mt.On("GET", "/api/customers/phone/").
		Reply(200, `{"success":true,"customer":{"name":"قديم","loyalty_points":99}}`)

	pkghttp.DefaultClient.Transport = hookTransport{next: f.mt, before: func() {
		_, err := f.sales.SetCustomer(f.ctx, "t1", "نورة", "0500000000")
		require.NoError(t, err)
	}}

	res, err := f.sales.LookupCustomer(f.ctx, "t1", "0551234567", 3)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, "نورة", res.Terminal.CustomerName)
	assert.Equal(t, "0500000000", res.Terminal.CustomerPhone)
}

func TestLoadCatalogMarksLoaded(t *testing.T) {
	f := setup(t)
	f.signedIn(t)
	assert.True(t, f.terminals.Find(f.ctx, "t1").CatalogLoaded)
}

func TestSetPaymentMethodDefaultsToCash(t *testing.T) {
	f := setup(t)
	f.signedIn(t)

	term, err := f.sales.SetPaymentMethod(f.ctx, "t1", models.PaymentCard)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCard, term.PaymentMethod)

	term, err = f.sales.SetPaymentMethod(f.ctx, "t1", " ")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCash, term.PaymentMethod)
}
