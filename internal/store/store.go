// Package store is the single owner of all persistent entities (spec §3
// "Ownership"). It wraps GORM, exposing transactional operations; every
// other component holds only transient references by id.
package store

import (
	"gorm.io/gorm"

	"github.com/jcgurango/meremail/internal/errs"
)

// Store is the relational persistence layer (spec §4.A).
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying *gorm.DB for components that need raw access
// (the scheduler's backup task, CLI diagnostics). Mutating callers outside
// this package should prefer the typed methods below.
func (s *Store) DB() *gorm.DB { return s.db }

// Tx runs fn inside a single GORM transaction, translating any error it
// doesn't already tag into a StorageError (spec §7).
func (s *Store) Tx(fn func(tx *gorm.DB) error) error {
	err := s.db.Transaction(fn)
	if err == nil {
		return nil
	}
	if _, ok := err.(*errs.Error); ok {
		return err
	}
	return errs.Storage("store.Tx", err)
}
