package kv

import (
	"errors"

	"github.com/cockroachdb/pebble"

	"ironwall/pkg/logger"
)

// DB is the durable store backing every tab of one origin. It survives
// process restarts, which is how a reload replays prior state.
type DB struct {
	db   *pebble.DB
	path string
	hub  hub
}

// Open opens (or creates) a pebble database at path.
func Open(path string) (*DB, error) {
	logger.Info("opening_kv", "path", path)
	pdb, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("kv_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("kv_opened", "path", path)
	return &DB{db: pdb, path: path}, nil
}

// Close closes the underlying pebble database.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	logger.Info("kv_closed", "path", d.path)
	return err
}

// OpenTab returns a new per-tab handle onto the store.
func (d *DB) OpenTab() *Tab {
	return newTab(d, &d.hub)
}

func (d *DB) get(key string) ([]byte, bool, error) {
	v, closer, err := d.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := append([]byte(nil), v...)
	if cerr := closer.Close(); cerr != nil {
		return nil, false, cerr
	}
	return out, true, nil
}

func (d *DB) set(key string, value []byte) error {
	return d.db.Set([]byte(key), value, pebble.Sync)
}

func (d *DB) remove(key string) error {
	return d.db.Delete([]byte(key), pebble.Sync)
}
