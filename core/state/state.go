package state

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/drip/core/event"
	"github.com/drip/core/storage"
	"github.com/drip/internal/logger"
	"go.uber.org/zap"
)

func stlogger() *zap.SugaredLogger {
	return logger.Named("state")
}

// Reader is the read side shared by Txn and views.
type Reader interface {
	Get(key []byte) ([]byte, error)
	ForEach(prefix []byte, fn func(key, value []byte) error) error
}

// DB serializes state transitions over a Store. Every Update holds the
// write lock for its whole duration, so transitions never interleave.
type DB struct {
	mu    sync.RWMutex
	store storage.Store
	sink  event.Sink
}

func New(store storage.Store, sink event.Sink) *DB {
	if sink == nil {
		sink = event.Discard
	}
	return &DB{store: store, sink: sink}
}

// SetSink replaces the event sink. Safe to call while the DB is in use.
func (db *DB) SetSink(sink event.Sink) {
	if sink == nil {
		sink = event.Discard
	}
	db.mu.Lock()
	db.sink = sink
	db.mu.Unlock()
}

// Update runs fn as one atomic transition. Writes made through txn are
// staged and reach the store only if fn returns nil; events emitted by fn
// are published after the commit.
func (db *DB) Update(fn func(txn *Txn) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	txn := &Txn{store: db.store, writes: make(map[string][]byte)}
	if err := fn(txn); err != nil {
		return err
	}
	if err := txn.commit(); err != nil {
		stlogger().Errorw("Commit failed", "writes", len(txn.order), "err", err)
		return fmt.Errorf("commit: %w", err)
	}
	for _, ev := range txn.events {
		db.sink.Publish(ev)
	}
	for _, fn := range txn.hooks {
		fn()
	}
	return nil
}

// View runs fn against committed state under the read lock.
func (db *DB) View(fn func(r Reader) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(view{db.store})
}

// Close closes the underlying store.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.store.Close()
}

type view struct {
	store storage.Store
}

func (v view) Get(key []byte) ([]byte, error) { return v.store.Get(key) }

func (v view) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return v.store.ForEach(prefix, fn)
}

// Txn is a write overlay on top of the store. Reads see the overlay first.
type Txn struct {
	store  storage.Store
	writes map[string][]byte
	order  []string
	events []event.Event
	hooks  []func()
}

func (t *Txn) Get(key []byte) ([]byte, error) {
	if v, ok := t.writes[string(key)]; ok {
		return bytes.Clone(v), nil
	}
	return t.store.Get(key)
}

func (t *Txn) Put(key, value []byte) {
	k := string(key)
	if _, ok := t.writes[k]; !ok {
		t.order = append(t.order, k)
	}
	t.writes[k] = bytes.Clone(value)
}

// ForEach merges staged writes over committed records.
func (t *Txn) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	err := t.store.ForEach(prefix, func(key, value []byte) error {
		if _, staged := t.writes[string(key)]; staged {
			return nil
		}
		return fn(key, value)
	})
	if err != nil {
		return err
	}
	for _, k := range t.order {
		if bytes.HasPrefix([]byte(k), prefix) {
			if err := fn([]byte(k), bytes.Clone(t.writes[k])); err != nil {
				return err
			}
		}
	}
	return nil
}

// Emit queues an event for publication after a successful commit.
func (t *Txn) Emit(ev event.Event) {
	t.events = append(t.events, ev)
}

// OnCommit registers fn to run after a successful commit, once the
// events are published.
func (t *Txn) OnCommit(fn func()) {
	t.hooks = append(t.hooks, fn)
}

type prior struct {
	key     []byte
	value   []byte
	present bool
}

// commit applies the staged writes all-or-nothing. The prior value of every
// staged key is captured first; if a Put or the final Sync fails, the store
// is put back the way it was.
func (t *Txn) commit() error {
	if len(t.order) == 0 {
		return nil
	}
	priors := make([]prior, 0, len(t.order))
	for _, k := range t.order {
		key := []byte(k)
		present, err := t.store.Has(key)
		if err != nil {
			return err
		}
		p := prior{key: key, present: present}
		if present {
			if p.value, err = t.store.Get(key); err != nil {
				return err
			}
		}
		priors = append(priors, p)
	}

	for i, p := range priors {
		if err := t.store.Put(p.key, t.writes[string(p.key)]); err != nil {
			return t.rollback(priors[:i+1], err)
		}
	}
	if err := t.store.Sync(); err != nil {
		return t.rollback(priors, err)
	}
	return nil
}

func (t *Txn) rollback(priors []prior, cause error) error {
	errs := []error{cause}
	for i := len(priors) - 1; i >= 0; i-- {
		p := priors[i]
		var err error
		if p.present {
			err = t.store.Put(p.key, p.value)
		} else {
			err = t.store.Delete(p.key)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("restore %q: %w", p.key, err))
		}
	}
	if len(errs) > 1 {
		stlogger().Errorw("Rollback incomplete", "failed", len(errs)-1)
	}
	return errors.Join(errs...)
}
