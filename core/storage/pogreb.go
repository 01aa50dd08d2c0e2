package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/akrylysov/pogreb"
	"github.com/drip/internal/logger"
	"go.uber.org/zap"
)

// strlogger is resolved on every call so that it picks up the logger
// configured by logger.Init in main.
func strlogger() *zap.SugaredLogger {
	return logger.Named("storage")
}

// PogrebStore persists records in a pogreb database directory.
type PogrebStore struct {
	db   *pogreb.DB
	path string
}

// OpenPogreb opens (or creates) the database in dir.
func OpenPogreb(dir string) (*PogrebStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		strlogger().Errorw("Failed to create store directory", "path", dir, "err", err)
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	db, err := pogreb.Open(dir, nil)
	if err != nil {
		strlogger().Errorw("Failed to open pogreb database", "path", dir, "err", err)
		return nil, fmt.Errorf("failed to open pogreb database: %w", err)
	}
	strlogger().Infow("Opened store", "path", dir, "records", db.Count())
	return &PogrebStore{db: db, path: dir}, nil
}

func (p *PogrebStore) Get(key []byte) ([]byte, error) {
	return p.db.Get(key)
}

func (p *PogrebStore) Has(key []byte) (bool, error) {
	return p.db.Has(key)
}

func (p *PogrebStore) Put(key, value []byte) error {
	return p.db.Put(key, value)
}

func (p *PogrebStore) Delete(key []byte) error {
	return p.db.Delete(key)
}

func (p *PogrebStore) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	it := p.db.Items()
	for {
		key, value, err := it.Next()
		if errors.Is(err, pogreb.ErrIterationDone) {
			return nil
		}
		if err != nil {
			return err
		}
		if !bytes.HasPrefix(key, prefix) {
			continue
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
}

func (p *PogrebStore) Sync() error {
	return p.db.Sync()
}

func (p *PogrebStore) Close() error {
	if err := p.db.Close(); err != nil {
		strlogger().Errorw("Failed to close pogreb database", "path", p.path, "err", err)
		return err
	}
	return nil
}

// Path is the database directory.
func (p *PogrebStore) Path() string { return p.path }
