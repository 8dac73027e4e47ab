// Package repository is the gorm-backed persistence store.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrSlotConflict is a second live appointment for (employee, date, time).
	ErrSlotConflict = errors.New("appointment slot already taken")
	// ErrApplicationNumberConflict is a collision of generated application numbers.
	ErrApplicationNumberConflict = errors.New("application number already used")
	ErrDuplicate                 = errors.New("duplicate record")
)

const uniqueViolation = "23505"

type txKey struct{}

// Store implements every repository interface of the service layer.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// conn returns the transaction bound to ctx, if any, else the pool.
func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// RunInTx runs fn in a single transaction. Nested calls join the outer one.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch {
		case strings.Contains(pgErr.ConstraintName, "idx_appointment_slot"):
			return ErrSlotConflict
		case strings.Contains(pgErr.ConstraintName, "application_number"):
			return ErrApplicationNumberConflict
		default:
			return ErrDuplicate
		}
	}
	return err
}

func first[T any](db *gorm.DB, query string, args ...interface{}) (*T, error) {
	var out T
	if err := db.Where(query, args...).First(&out).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}
