// Package session provides cookie-keyed HTTP sessions stored in pkg/cache.
//
//	r.Use(session.Middleware(session.DefaultOptions()))
//
//	sess := session.FromCtx(r)
//	sess.Set("terminal", t)
//	if err := sess.Save(r.Context(), w); err != nil { ... }
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yellowrose/possrv/config"
	"github.com/yellowrose/possrv/pkg/cache"
)

// Options configures session behaviour.
type Options struct {
	CookieName string
	TTL        time.Duration
	HTTPOnly   bool
	Secure     bool
	SameSite   http.SameSite
	Path       string
}

// DefaultOptions reads cookie name and TTL from config.
func DefaultOptions() Options {
	return Options{
		CookieName: config.SessionCookie(),
		TTL:        config.SessionTTL(),
		HTTPOnly:   true,
		Secure:     config.AppEnv() == "production",
		SameSite:   http.SameSiteLaxMode,
		Path:       "/",
	}
}

type ctxKey struct{}

// Session is an in-request session handle. Values are held as raw JSON so
// they decode back into their concrete types regardless of the store.
type Session struct {
	id      string
	oldID   string
	data    map[string]json.RawMessage
	opts    Options
	changed bool
}

func newID() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func storeKey(id string) string { return "possrv:session:" + id }

func load(ctx context.Context, id string) (map[string]json.RawMessage, bool) {
	var data map[string]json.RawMessage
	if cache.Get(ctx, storeKey(id), &data) && data != nil {
		return data, true
	}
	return map[string]json.RawMessage{}, false
}

// Set stores value under key.
func (s *Session) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("session: marshal %q: %w", key, err)
	}
	s.data[key] = raw
	s.changed = true
	return nil
}

// Get decodes the value under key into dest. Returns false if absent or undecodable.
func (s *Session) Get(key string, dest interface{}) bool {
	raw, ok := s.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// Has reports whether key is present.
func (s *Session) Has(key string) bool {
	_, ok := s.data[key]
	return ok
}

// Delete removes a key from the session.
func (s *Session) Delete(key string) {
	delete(s.data, key)
	s.changed = true
}

// Flash stores a value that is removed by the next GetFlash.
func (s *Session) Flash(key string, value interface{}) error {
	return s.Set("_flash_"+key, value)
}

// GetFlash retrieves and removes a flash value.
func (s *Session) GetFlash(key string, dest interface{}) bool {
	ok := s.Get("_flash_"+key, dest)
	if s.Has("_flash_" + key) {
		s.Delete("_flash_" + key)
	}
	return ok
}

// Regenerate issues a new session ID, keeping the data. The old entry is
// removed on Save.
func (s *Session) Regenerate() {
	if s.oldID == "" {
		s.oldID = s.id
	}
	s.id = newID()
	s.changed = true
}

// Invalidate clears all data and issues a new ID.
func (s *Session) Invalidate() {
	s.data = map[string]json.RawMessage{}
	s.Regenerate()
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Save persists the session and writes the cookie. Unchanged sessions are not written.
func (s *Session) Save(ctx context.Context, w http.ResponseWriter) error {
	if !s.changed {
		return nil
	}

	if err := cache.Set(ctx, storeKey(s.id), s.data, s.opts.TTL); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	if s.oldID != "" {
		_ = cache.Forget(ctx, storeKey(s.oldID))
		s.oldID = ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    s.id,
		Path:     s.opts.Path,
		MaxAge:   int(s.opts.TTL.Seconds()),
		HttpOnly: s.opts.HTTPOnly,
		Secure:   s.opts.Secure,
		SameSite: s.opts.SameSite,
	})

	s.changed = false
	return nil
}

// Middleware loads (or creates) the session for every request. An unknown
// or expired cookie value starts a fresh session under a new ID.
func Middleware(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &Session{opts: opts}

			if cookie, err := r.Cookie(opts.CookieName); err == nil && cookie.Value != "" {
				data, found := load(r.Context(), cookie.Value)
				sess.data = data
				if found {
					sess.id = cookie.Value
				} else {
					sess.id = newID()
				}
			} else {
				sess.id = newID()
				sess.data = map[string]json.RawMessage{}
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromCtx retrieves the session from the request context, or an unsaved
// empty session if the middleware did not run.
func FromCtx(r *http.Request) *Session {
	if s, ok := r.Context().Value(ctxKey{}).(*Session); ok {
		return s
	}
	return &Session{id: newID(), data: map[string]json.RawMessage{}, opts: DefaultOptions()}
}
