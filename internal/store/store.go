// Package store persists one user record per user id. Every backend shares
// the same load and save rules; only the raw document I/O differs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/moneymind/internal/metrics"
	"github.com/ajitpratap0/moneymind/internal/user"
)

// ErrNotFound is returned by a backend when no document exists for an id
var ErrNotFound = errors.New("user record not found")

// Store loads and saves user records
type Store interface {
	// Load never fails: a missing record is created and persisted, an
	// unreadable one is replaced in memory by a default.
	Load(ctx context.Context, userID string) *user.Record
	// Save overwrites the whole record and reports success
	Save(ctx context.Context, userID string, rec *user.Record) bool
}

// Backend reads and writes raw JSON documents
type Backend interface {
	Name() string
	Get(ctx context.Context, userID string) ([]byte, error)
	Put(ctx context.Context, userID string, doc []byte) error
}

// DocumentStore implements Store on top of a Backend
type DocumentStore struct {
	backend Backend
	log     zerolog.Logger
}

var _ Store = (*DocumentStore)(nil)

// New wraps a backend
func New(b Backend) *DocumentStore {
	return &DocumentStore{
		backend: b,
		log:     log.With().Str("component", "store").Str("backend", b.Name()).Logger(),
	}
}

// Backend returns the wrapped backend
func (s *DocumentStore) Backend() Backend {
	return s.backend
}

// Load returns the record for userID
func (s *DocumentStore) Load(ctx context.Context, userID string) *user.Record {
	logger := s.log.With().Str("user_id", userID).Logger()

	if !usableID(userID) {
		logger.Warn().Msg("User id has no usable characters, using unsaved default")
		return user.New(userID)
	}

	start := time.Now()
	doc, err := s.backend.Get(ctx, userID)
	metrics.RecordStoreOperation(s.backend.Name(), "load", err == nil || errors.Is(err, ErrNotFound), time.Since(start))

	switch {
	case errors.Is(err, ErrNotFound):
		logger.Info().Msg("No record found, creating default")
		rec := user.New(userID)
		s.Save(ctx, userID, rec)
		return rec
	case err != nil:
		logger.Error().Err(err).Msg("Failed to read record, using default")
		return user.New(userID)
	}

	rec, err := decode(doc)
	if err != nil {
		logger.Error().Err(err).Msg("Stored record is corrupt, using default without overwriting")
		return user.New(userID)
	}
	if rec.UserID == "" {
		rec.UserID = userID
	}

	logger.Debug().Msg("Loaded record")
	return rec
}

// Save writes rec under userID, correcting a mismatched user_id first
func (s *DocumentStore) Save(ctx context.Context, userID string, rec *user.Record) bool {
	logger := s.log.With().Str("user_id", userID).Logger()

	if rec == nil {
		logger.Error().Msg("Refusing to save nil record")
		return false
	}
	if !usableID(userID) {
		logger.Error().Msg("Refusing to save record under an id with no usable characters")
		return false
	}
	if rec.UserID != userID {
		logger.Warn().Str("record_user_id", rec.UserID).Msg("Record user_id does not match save key, updating")
		rec.UserID = userID
	}

	doc, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode record")
		return false
	}

	start := time.Now()
	err = s.backend.Put(ctx, userID, doc)
	metrics.RecordStoreOperation(s.backend.Name(), "save", err == nil, time.Since(start))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to save record")
		return false
	}

	logger.Debug().Msg("Saved record")
	return true
}

// usableID rejects ids that sanitise to nothing, e.g. "" or "+++"
func usableID(userID string) bool {
	return SafeID(userID) != ""
}

func decode(doc []byte) (*user.Record, error) {
	var rec user.Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	rec.Normalize()
	return &rec, nil
}
