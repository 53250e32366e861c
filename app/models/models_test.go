package models_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yellowrose/possrv/app/models"
)

var (
	rose  = models.Product{ProductID: 1, Name: "وردة", Price: 12.5, Quantity: 10}
	tulip = models.Product{ProductID: 2, Name: "توليب", Price: 20, Quantity: 3}
)

func TestCartAddSameProductTwiceKeepsOneLine(t *testing.T) {
	var c models.Cart
	c.Add(rose)
	c.Add(rose)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 2, c.Lines[0].Quantity)
}

func TestCartUpdateRemovesAtZeroOrBelow(t *testing.T) {
	for _, qty := range []int{0, -1} {
		var c models.Cart
		c.Add(rose)
		c.Add(tulip)
		c.Update(rose.ProductID, qty)

		_, ok := c.Line(rose.ProductID)
		assert.False(t, ok, "qty %d", qty)
		assert.Len(t, c.Lines, 1)
	}
}

func TestCartUpdateUnknownIDIsNoop(t *testing.T) {
	var c models.Cart
	c.Add(rose)
	c.Update(99, 0)
	c.Update(99, 5)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 1, c.Lines[0].Quantity)
}

func TestCartTotalAcrossMutations(t *testing.T) {
	var c models.Cart
	c.Add(rose)
	c.Add(tulip)
	c.Add(rose)
	assert.InDelta(t, 45.0, c.Total(), 1e-9)

	c.Update(tulip.ProductID, 3)
	assert.InDelta(t, 85.0, c.Total(), 1e-9)

	c.Update(rose.ProductID, 0)
	assert.InDelta(t, 60.0, c.Total(), 1e-9)

	c.Clear()
	assert.Zero(t, c.Total())
	assert.True(t, c.Empty())
}

func TestCartPointsFloor(t *testing.T) {
	cases := []struct {
		price float64
		want  int
	}{
		{95, 9},
		{100, 10},
		{9, 0},
		{0, 0},
	}
	for _, tc := range cases {
		var c models.Cart
		c.Add(models.Product{ProductID: 1, Price: tc.price, Quantity: 1})
		assert.Equal(t, tc.want, c.Points(), "total %v", tc.price)
	}
}

func TestCartPointsExactAtBoundary(t *testing.T) {
	var c models.Cart
	c.Add(models.Product{ProductID: 1, Price: 9.2, Quantity: 30})
	c.Update(1, 25)

	assert.Equal(t, 230.0, c.Total())
	assert.Equal(t, 23, c.Points())
}

func TestCartItems(t *testing.T) {
	var c models.Cart
	c.Add(rose)
	c.Add(tulip)
	c.Add(tulip)

	assert.Equal(t, []models.SaleItem{
		{ProductID: 1, Quantity: 1, UnitPrice: 12.5},
		{ProductID: 2, Quantity: 2, UnitPrice: 20},
	}, c.Items())
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "admin", models.User{"username": "admin", "name": "Admin"}.DisplayName())
	assert.Equal(t, "Admin", models.User{"name": "Admin"}.DisplayName())
	assert.Equal(t, "", models.User{}.DisplayName())
}

func TestInvoiceNumberAcceptsStringOrNumber(t *testing.T) {
	var r models.SaleResult
	require.NoError(t, json.Unmarshal([]byte(`{"invoice_number":"INV-123","points_earned":5}`), &r))
	assert.Equal(t, models.InvoiceNumber("INV-123"), r.InvoiceNumber)
	assert.Equal(t, 5, r.PointsEarned)

	require.NoError(t, json.Unmarshal([]byte(`{"invoice_number":1042}`), &r))
	assert.Equal(t, models.InvoiceNumber("1042"), r.InvoiceNumber)
}

func TestTerminalSignOutClearsEverything(t *testing.T) {
	term := models.NewTerminal("t1")
	term.SignIn(models.User{"username": "admin"})
	term.Cart.Add(rose)
	term.CustomerName = "سارة"
	term.CustomerPoints = 40
	term.Cookies = term.Cookies.Merge([]*http.Cookie{{Name: "session", Value: "abc"}}, time.Now())

	term.SignOut()

	assert.False(t, term.SignedIn())
	assert.Equal(t, models.ScreenLogin, term.Screen)
	assert.True(t, term.Cart.Empty())
	assert.Empty(t, term.CustomerName)
	assert.Zero(t, term.CustomerPoints)
	assert.Empty(t, term.Cookies)
	assert.Equal(t, models.PaymentCash, term.PaymentMethod)
}

func TestCookieJarMerge(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var jar models.CookieJar

	jar = jar.Merge([]*http.Cookie{{Name: "session", Value: "a"}, {Name: "csrf", Value: "x", MaxAge: 60}}, now)
	require.Len(t, jar, 2)

	jar = jar.Merge([]*http.Cookie{{Name: "session", Value: "b"}}, now)
	cookies := jar.HTTPCookies(now)
	require.Len(t, cookies, 2)
	assert.Equal(t, "b", cookies[1].Value)

	assert.Len(t, jar.HTTPCookies(now.Add(2*time.Minute)), 1, "csrf expired")

	jar = jar.Merge([]*http.Cookie{{Name: "session", MaxAge: -1}}, now)
	assert.Len(t, jar, 1)
}
