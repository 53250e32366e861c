package repositories

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/yellowrose/possrv/app/models"
	"github.com/yellowrose/possrv/config"
	"github.com/yellowrose/possrv/pkg/cache"
	"github.com/yellowrose/possrv/pkg/crypt"
	"github.com/yellowrose/possrv/pkg/logger"
)

// TerminalRepository keeps terminals in pkg/cache. Update serialises
// read-modify-write cycles per terminal within this process.
//
// When APP_KEY is set each record is sealed before it is written, since it
// carries the backend session cookie.
type TerminalRepository struct {
	ttl    time.Duration
	sealer *crypt.Sealer
	locks  [lockStripes]sync.Mutex
}

// lockStripes is the number of mutexes terminal ids are hashed onto.
const lockStripes = 256

// NewTerminalRepository returns a repository whose entries live for ttl
// after their last write. Zero uses SESSION_TTL.
func NewTerminalRepository(ttl time.Duration) *TerminalRepository {
	if ttl <= 0 {
		ttl = config.SessionTTL()
	}
	r := &TerminalRepository{ttl: ttl}
	if s, err := crypt.NewSealer(config.AppKey()); err == nil {
		r.sealer = s
	}
	return r
}

// WithSealer replaces the record sealer. nil stores plain JSON.
func (r *TerminalRepository) WithSealer(s *crypt.Sealer) *TerminalRepository {
	r.sealer = s
	return r
}

func terminalKey(id string) string { return "possrv:terminal:" + id }

// Find returns the stored terminal, or a fresh one when none exists.
func (r *TerminalRepository) Find(ctx context.Context, id string) *models.Terminal {
	if t, ok := r.load(ctx, id); ok {
		return t
	}
	return models.NewTerminal(id)
}

func (r *TerminalRepository) load(ctx context.Context, id string) (*models.Terminal, bool) {
	var t models.Terminal
	if r.sealer == nil {
		if !cache.Get(ctx, terminalKey(id), &t) {
			return nil, false
		}
	} else {
		var sealed string
		if !cache.Get(ctx, terminalKey(id), &sealed) {
			return nil, false
		}
		if err := r.sealer.OpenJSON(sealed, &t); err != nil {
			logger.WithCtx(ctx).Warn("terminal: unreadable record", "terminal", id, "error", err)
			return nil, false
		}
	}
	t.ID = id
	return &t, true
}

func (r *TerminalRepository) save(ctx context.Context, t *models.Terminal) error {
	var value interface{} = t
	if r.sealer != nil {
		sealed, err := r.sealer.SealJSON(t)
		if err != nil {
			return err
		}
		value = sealed
	}
	return cache.Set(ctx, terminalKey(t.ID), value, r.ttl)
}

// Update loads the terminal, applies fn and saves the result. If fn returns
// an error nothing is saved and the error is returned with the unsaved state.
func (r *TerminalRepository) Update(ctx context.Context, id string, fn func(t *models.Terminal) error) (*models.Terminal, error) {
	mu := r.lock(id)
	mu.Lock()
	defer mu.Unlock()

	t := r.Find(ctx, id)
	if err := fn(t); err != nil {
		return t, err
	}
	if err := r.save(ctx, t); err != nil {
		return t, fmt.Errorf("terminal: save %s: %w", id, err)
	}
	return t, nil
}

// Delete removes the terminal.
func (r *TerminalRepository) Delete(ctx context.Context, id string) error {
	mu := r.lock(id)
	mu.Lock()
	defer mu.Unlock()
	return cache.Forget(ctx, terminalKey(id))
}

func (r *TerminalRepository) lock(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &r.locks[h.Sum32()%lockStripes]
}
