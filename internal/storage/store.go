// Package storage holds the badger-backed collaborators the realtime core
// depends on: the deal records that gate room access and the durable chat
// message log.
package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Open opens the badger database under dir. An empty dir opens an
// in-memory database, which is what the tests use.
func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}
