// Package storage persists the note collection.
package storage

import (
	"context"

	"github.com/starford/jotter/internal/models"
)

// Store is the interface every collection backend implements.
// Failures are *apperr.Error values of kind io or parse.
type Store interface {
	// List returns the whole collection in stored order.
	List(ctx context.Context) (models.Collection, error)
	// Create assigns the next id to a copy of payload, appends it and
	// persists the collection. The stored note is returned.
	Create(ctx context.Context, payload *models.Note) (*models.Note, error)
	// Remove drops every note with the given id. A missing id is not an error.
	Remove(ctx context.Context, id int64) error
	// Close releases resources held by the store.
	Close() error
}
