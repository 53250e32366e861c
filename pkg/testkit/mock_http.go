// Package testkit fakes the sales backend for tests.
//
// MockTransport is an http.RoundTripper installed on pkg/http.DefaultClient.
// Each step matches outgoing requests by method and URL path prefix and
// returns a canned JSON response:
//
//	mt := testkit.Install(t)
//	mt.On("GET", "/api/products").Reply(200, `{"success":true,"products":[]}`)
//	// ... exercise code ...
//	testkit.AssertAllCalled(t, mt)
package testkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	pkghttp "github.com/yellowrose/possrv/pkg/http"
)

// MockTransport implements http.RoundTripper.
type MockTransport struct {
	mu       sync.Mutex
	steps    []*Step
	requests []Recorded
}

// Recorded is one intercepted request.
type Recorded struct {
	Method  string
	Path    string
	Body    []byte
	Cookies []*http.Cookie
	Header  http.Header
}

// Step describes one mocked endpoint.
type Step struct {
	method    string
	path      string
	status    int
	body      string
	cookies   []*http.Cookie
	err       error
	callCount int
}

// NewMockTransport returns an empty transport; unmatched requests fail.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Install swaps pkg/http.DefaultClient's transport for a new MockTransport
// until the test ends.
func Install(t *testing.T) *MockTransport {
	t.Helper()
	mt := NewMockTransport()
	pkghttp.DefaultClient.Transport = mt
	t.Cleanup(pkghttp.ResetTransport)
	return mt
}

// On registers a step for method and path prefix. Later steps win over
// earlier ones for the same request, so a test can override a default.
func (mt *MockTransport) On(method, path string) *Step {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	s := &Step{method: strings.ToUpper(method), path: path, status: http.StatusOK}
	mt.steps = append(mt.steps, s)
	return s
}

// Reply sets the status and JSON body returned by the step.
func (s *Step) Reply(status int, body string) *Step {
	s.status = status
	s.body = body
	return s
}

// SetCookie adds a Set-Cookie header to the step's response.
func (s *Step) SetCookie(c *http.Cookie) *Step {
	s.cookies = append(s.cookies, c)
	return s
}

// Fail makes the step return err as a transport failure.
func (s *Step) Fail(err error) *Step {
	s.err = err
	return s
}

// RoundTrip intercepts the outgoing request and returns a synthetic response.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.requests = append(mt.requests, Recorded{
		Method:  req.Method,
		Path:    req.URL.Path,
		Body:    body,
		Cookies: req.Cookies(),
		Header:  req.Header.Clone(),
	})

	for i := len(mt.steps) - 1; i >= 0; i-- {
		s := mt.steps[i]
		if s.method != req.Method || !strings.HasPrefix(req.URL.Path, s.path) {
			continue
		}
		s.callCount++
		if s.err != nil {
			return nil, s.err
		}
		return buildHTTPResponse(req, s), nil
	}

	return nil, fmt.Errorf("testkit: unexpected outgoing call %s %s", req.Method, req.URL.Path)
}

// Requests returns a copy of every intercepted request, in order.
func (mt *MockTransport) Requests() []Recorded {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]Recorded(nil), mt.requests...)
}

// Count returns how many intercepted requests had the given method and path prefix.
func (mt *MockTransport) Count(method, path string) int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	n := 0
	for _, r := range mt.requests {
		if r.Method == strings.ToUpper(method) && strings.HasPrefix(r.Path, path) {
			n++
		}
	}
	return n
}

// Uncalled returns an error for every step that was never matched.
func (mt *MockTransport) Uncalled() []error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var errs []error
	for _, s := range mt.steps {
		if s.callCount == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock %s %s was never called", s.method, s.path))
		}
	}
	return errs
}

func buildHTTPResponse(req *http.Request, s *Step) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	for _, c := range s.cookies {
		header.Add("Set-Cookie", c.String())
	}

	return &http.Response{
		StatusCode: s.status,
		Status:     fmt.Sprintf("%d %s", s.status, http.StatusText(s.status)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader([]byte(s.body))),
		Request:    req,
	}
}
