// Package repository provides a small generic gorm store for simple CRUD paths.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Option mutates a query before execution.
type Option func(*gorm.DB) *gorm.DB

// Repository is a typed store over a single gorm model.
type Repository[T any] interface {
	Create(ctx context.Context, record *T) error
	Find(ctx context.Context, filter *T, opts ...Option) ([]*T, error)
	FindOne(ctx context.Context, filter *T, opts ...Option) (*T, error)
	Save(ctx context.Context, record *T) error
}

type store[T any] struct {
	db *gorm.DB
}

// ProvideStore constructs a Repository bound to the given connection.
func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) Create(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *store[T]) Find(ctx context.Context, filter *T, opts ...Option) ([]*T, error) {
	query := s.db.WithContext(ctx).Where(filter)
	for _, opt := range opts {
		query = opt(query)
	}
	var records []*T
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *store[T]) FindOne(ctx context.Context, filter *T, opts ...Option) (*T, error) {
	query := s.db.WithContext(ctx).Where(filter)
	for _, opt := range opts {
		query = opt(query)
	}
	var record T
	if err := query.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (s *store[T]) Save(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Save(record).Error
}

// WithLimit caps the number of returned rows.
func WithLimit(limit int) Option {
	return func(q *gorm.DB) *gorm.DB {
		if limit > 0 {
			return q.Limit(limit)
		}
		return q
	}
}

// WithOrder applies an ORDER BY clause.
func WithOrder(order string) Option {
	return func(q *gorm.DB) *gorm.DB {
		if order == "" {
			return q
		}
		return q.Order(order)
	}
}
