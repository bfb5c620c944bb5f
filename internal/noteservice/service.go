// Package noteservice coordinates the note store with change notifications.
package noteservice

import (
	"context"
	"log/slog"

	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/storage"
)

// Event kinds published after successful mutations.
const (
	EventCreated = "created"
	EventDeleted = "deleted"
)

// Publisher receives note change notifications.
type Publisher interface {
	PublishNoteEvent(kind string, id int64)
}

// Listing is a collection snapshot plus its checksum.
type Listing struct {
	Notes    models.Collection
	Checksum string
}

// Service exposes the note operations used by the HTTP and MCP surfaces.
type Service struct {
	store  storage.Store
	pub    Publisher
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the change publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new note service.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListNotes returns the whole collection and its checksum.
func (s *Service) ListNotes(ctx context.Context) (*Listing, error) {
	notes, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	cs, err := notes.Checksum()
	if err != nil {
		return nil, err
	}
	return &Listing{Notes: notes, Checksum: cs}, nil
}

// CreateNote stores payload under a new id and returns the stored note.
func (s *Service) CreateNote(ctx context.Context, payload *models.Note) (*models.Note, error) {
	note, err := s.store.Create(ctx, payload)
	if err != nil {
		return nil, err
	}
	id, _ := note.ID()
	s.logger.Debug("note created", slog.Int64("id", id))
	if s.pub != nil {
		s.pub.PublishNoteEvent(EventCreated, id)
	}
	return note, nil
}

// DeleteNote removes the note with id. Removing an unknown id succeeds.
func (s *Service) DeleteNote(ctx context.Context, id int64) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Debug("note deleted", slog.Int64("id", id))
	if s.pub != nil {
		s.pub.PublishNoteEvent(EventDeleted, id)
	}
	return nil
}
