package testkit_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkghttp "github.com/yellowrose/possrv/pkg/http"
	"github.com/yellowrose/possrv/pkg/testkit"
)

func TestMockTransportMatchesAndRecords(t *testing.T) {
	mt := testkit.Install(t)
	mt.On("POST", "/api/login").
		Reply(http.StatusOK, `{"success":true}`).
		SetCookie(&http.Cookie{Name: "session", Value: "abc"})

	resp, err := pkghttp.Post("http://backend/api/login").
		Body(map[string]string{"username": "admin"}).
		Cookies([]*http.Cookie{{Name: "pre", Value: "1"}}).
		Send()
	require.NoError(t, err)

	assert.True(t, resp.OK())
	require.Len(t, resp.Cookies(), 1)
	assert.Equal(t, "abc", resp.Cookies()[0].Value)

	reqs := mt.Requests()
	require.Len(t, reqs, 1)
	testkit.AssertJSONBody(t, `{"username":"admin"}`, reqs[0].Body)
	assert.Equal(t, "pre", reqs[0].Cookies[0].Name)
	testkit.AssertAllCalled(t, mt)
}

func TestMockTransportLaterStepOverrides(t *testing.T) {
	mt := testkit.Install(t)
	mt.On("GET", "/api/products").Reply(http.StatusOK, `{"success":true}`)
	mt.On("GET", "/api/products").Fail(errors.New("connection refused"))

	_, err := pkghttp.Get("http://backend/api/products").Send()
	assert.Error(t, err)
	assert.Equal(t, 1, mt.Count("GET", "/api/products"))
}

func TestMockTransportUnmatchedFails(t *testing.T) {
	testkit.Install(t)
	_, err := pkghttp.Get("http://backend/api/nothing").Send()
	assert.Error(t, err)
}
