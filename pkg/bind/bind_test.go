package bind_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yellowrose/possrv/pkg/bind"
)

type quantityForm struct {
	ProductID int    `form:"product_id" validate:"required"`
	Quantity  int    `form:"quantity"`
	Note      string `form:"note"`
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/pos/cart/update", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestFormBindsTypedFields(t *testing.T) {
	var in quantityForm
	errs, err := bind.Form(formRequest(url.Values{
		"product_id": {"12"},
		"quantity":   {"-1"},
		"note":       {"  hi "},
	}), &in)
	require.NoError(t, err)
	assert.Nil(t, errs)
	assert.Equal(t, quantityForm{ProductID: 12, Quantity: -1, Note: "hi"}, in)
}

func TestFormReportsParseAndRuleErrors(t *testing.T) {
	var in quantityForm
	errs, err := bind.Form(formRequest(url.Values{"quantity": {"two"}}), &in)
	require.NoError(t, err)
	assert.Contains(t, errs, "quantity")
	assert.Contains(t, errs, "product_id")
}

func TestFormRejectsNonPointer(t *testing.T) {
	_, err := bind.Form(formRequest(url.Values{}), quantityForm{})
	assert.Error(t, err)
}

func TestJSON(t *testing.T) {
	var in struct {
		Phone string `json:"phone" validate:"required,digits"`
		Seq   int64  `json:"seq"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"0551234567","seq":3}`))
	errs, err := bind.JSON(req, &in)
	require.NoError(t, err)
	assert.Nil(t, errs)
	assert.Equal(t, int64(3), in.Seq)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	_, err = bind.JSON(req, &in)
	assert.Error(t, err)
}
