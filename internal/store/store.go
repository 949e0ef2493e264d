// Package store owns the in-memory record collection and its durable snapshot.
package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// RecordStore is the exclusive owner of complaint records, keyed by id with
// most-recent-first insertion order preserved for history feeds. Every
// mutation rewrites the whole snapshot through the configured Persister.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]domain.ComplaintRecord
	order   []string
	locale  string
	session *domain.Session

	persister Persister
	logger    *zap.Logger
}

// NewRecordStore builds a store and loads prior state from the persister.
// A missing or corrupt snapshot yields an empty store.
func NewRecordStore(persister Persister, logger *zap.Logger) *RecordStore {
	s := &RecordStore{
		records:   make(map[string]domain.ComplaintRecord),
		locale:    domain.DefaultLocale,
		persister: persister,
		logger:    logger,
	}
	s.load()
	return s
}

func (s *RecordStore) load() {
	if s.persister == nil {
		return
	}
	snapshot, err := s.persister.Load()
	if err != nil {
		// Fail soft: a broken snapshot must not prevent startup.
		s.logger.Warn("failed to load state snapshot; starting empty", zap.Error(err))
		return
	}
	for i := len(snapshot.Records) - 1; i >= 0; i-- {
		record := snapshot.Records[i]
		if _, exists := s.records[record.ID]; exists {
			continue
		}
		s.records[record.ID] = record
		s.order = append([]string{record.ID}, s.order...)
	}
	if snapshot.Locale != "" {
		s.locale = snapshot.Locale
	}
	s.session = snapshot.Session
	s.logger.Info("state snapshot loaded", zap.Int("records", len(s.order)))
}

// Upsert inserts or replaces a record. New ids are prepended so the history
// feed reads most-recent-first; existing ids keep their position.
func (s *RecordStore) Upsert(record domain.ComplaintRecord) {
	s.mu.Lock()
	if _, exists := s.records[record.ID]; !exists {
		s.order = append([]string{record.ID}, s.order...)
	}
	s.records[record.ID] = record
	s.mu.Unlock()

	s.persist()
}

// Get returns the record for id, if present.
func (s *RecordStore) Get(id string) (domain.ComplaintRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	return record, ok
}

// Has reports whether a record with the given id exists.
func (s *RecordStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

// List returns all records in history order (most recent first).
func (s *RecordStore) List() []domain.ComplaintRecord {
	return s.filtered(func(domain.ComplaintRecord) bool { return true })
}

// ListBySource returns records from the given source, order preserved.
func (s *RecordStore) ListBySource(source domain.RecordSource) []domain.ComplaintRecord {
	return s.filtered(func(r domain.ComplaintRecord) bool { return r.Source == source })
}

// ListByCustomer returns records submitted by the given customer email.
func (s *RecordStore) ListByCustomer(email string) []domain.ComplaintRecord {
	return s.filtered(func(r domain.ComplaintRecord) bool { return r.CustomerEmail == email })
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Locale returns the active response language tag.
func (s *RecordStore) Locale() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locale
}

// SetLocale replaces the active response language tag.
func (s *RecordStore) SetLocale(tag string) {
	s.mu.Lock()
	s.locale = tag
	s.mu.Unlock()

	s.persist()
}

// Session returns the captured operator session, if any.
func (s *RecordStore) Session() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	session := *s.session
	return &session
}

// SetSession overwrites the captured session wholesale; nil clears it.
func (s *RecordStore) SetSession(session *domain.Session) {
	s.mu.Lock()
	if session == nil {
		s.session = nil
	} else {
		copied := *session
		s.session = &copied
	}
	s.mu.Unlock()

	s.persist()
}

func (s *RecordStore) filtered(keep func(domain.ComplaintRecord) bool) []domain.ComplaintRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.ComplaintRecord, 0, len(s.order))
	for _, id := range s.order {
		if record := s.records[id]; keep(record) {
			result = append(result, record)
		}
	}
	return result
}

func (s *RecordStore) persist() {
	if s.persister == nil {
		return
	}
	s.mu.RLock()
	snapshot := Snapshot{
		Records: make([]domain.ComplaintRecord, 0, len(s.order)),
		Locale:  s.locale,
		Session: s.session,
	}
	for _, id := range s.order {
		snapshot.Records = append(snapshot.Records, s.records[id])
	}
	s.mu.RUnlock()

	if err := s.persister.Save(snapshot); err != nil {
		s.logger.Error("failed to persist state snapshot", zap.Error(err))
	}
}
