package repositories_test

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
	"github.com/yellowrose/possrv/pkg/testkit"
)

func newBackend() *repositories.Backend {
	return repositories.NewBackend("http://backend.test", time.Second)
}

func TestCheckSessionLoggedIn(t *testing.T) {
	mt := testkit.Install(t)
	mt.On("GET", "/api/check-session").
		Reply(200, `{"success":true,"logged_in":true,"user":{"username":"admin","role":"manager"}}`)

	st, err := newBackend().CheckSession(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, st.LoggedIn)
	assert.Equal(t, "admin", st.User.DisplayName())
	testkit.AssertAllCalled(t, mt)
}

func TestLoginSendsCredentialsAndKeepsCookie(t *testing.T) {
	mt := testkit.Install(t)
	mt.On("POST", "/api/login").
		Reply(200, `{"success":true,"user":{"username":"admin"}}`).
		SetCookie(&http.Cookie{Name: "session", Value: "srv-1"})
	mt.On("GET", "/api/products").Reply(200, `{"success":true,"products":[]}`)

	var jar models.CookieJar
	b := newBackend()
	user, err := b.Login(context.Background(), &jar, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.DisplayName())
	testkit.AssertJSONBody(t, `{"username":"admin","password":"admin123"}`, mt.Requests()[0].Body)

	require.Len(t, jar, 1)
	_, err = b.Products(context.Background(), &jar)
	require.NoError(t, err)

	sent := mt.Requests()[1].Cookies
	require.Len(t, sent, 1)
	assert.Equal(t, "srv-1", sent[0].Value)
}

func TestLoginRejected(t *testing.T) {
	mt := testkit.Install(t)
	mt.On("POST", "/api/login").Reply(401, `{"success":false,"message":"invalid"}`)

	_, err := newBackend().Login(context.Background(), nil, "admin", "nope")
	assert.ErrorIs(t, err, repositories.ErrRejected)
}

func TestTransportErrors(t *testing.T) {
	cases := map[string]func(*testkit.MockTransport){
		"network":     func(mt *testkit.MockTransport) { mt.On("GET", "/api/products").Fail(errors.New("connection refused")) },
		"html body":   func(mt *testkit.MockTransport) { mt.On("GET", "/api/products").Reply(502, `<html>bad gateway</html>`) },
		"no envelope": func(mt *testkit.MockTransport) { mt.On("GET", "/api/products").Reply(200, `{"products":[]}`) },
		"500 success": func(mt *testkit.MockTransport) { mt.On("GET", "/api/products").Reply(500, `{"success":true}`) },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			setup(testkit.Install(t))
			_, err := newBackend().Products(context.Background(), nil)
			assert.ErrorIs(t, err, repositories.ErrTransport)
			assert.NotErrorIs(t, err, repositories.ErrRejected)
		})
	}
}

func TestCustomerByPhoneEscapesPath(t *testing.T) {
	mt := testkit.Install(t)
	mt.On("GET", "/api/customers/phone/").
		Reply(200, `{"success":true,"customer":{"name":"سارة","loyalty_points":40}}`)

	c, err := newBackend().CustomerByPhone(context.Background(), nil, "055 123/4567")
	require.NoError(t, err)
	assert.Equal(t, "سارة", c.Name)
	assert.Equal(t, 40, c.LoyaltyPoints)
	assert.Equal(t, "/api/customers/phone/055 123/4567", mt.Requests()[0].Path)
}

func TestRecordSaleBody(t *testing.T) {
	mt := testkit.Install(t)
	mt.On("POST", "/api/sales").Reply(201, `{"success":true,"invoice_number":"INV-123","points_earned":5}`)

	res, err := newBackend().RecordSale(context.Background(), nil, models.SaleRequest{
		CustomerName:  "سارة",
		CustomerPhone: "0551234567",
		TotalAmount:   50,
		PaymentMethod: models.PaymentCard,
		Items:         []models.SaleItem{{ProductID: 1, Quantity: 2, UnitPrice: 25}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceNumber("INV-123"), res.InvoiceNumber)
	assert.Equal(t, 5, res.PointsEarned)

	testkit.AssertJSONBody(t, `{
		"customer_name":"سارة","customer_phone":"0551234567","total_amount":50,
		"payment_method":"بطاقة","items":[{"product_id":1,"quantity":2,"unit_price":25}]
	}`, mt.Requests()[0].Body)
}
