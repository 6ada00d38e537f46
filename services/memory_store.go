package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"formdrop-api/models"
)

// MemoryStore is an in-process Store used by tests and local demos.
// Records are copied in and out so callers never share state with it.
type MemoryStore struct {
	mu          sync.RWMutex
	nextID      uint
	forms       map[string]models.Form
	retired     map[string]bool
	submissions map[string]models.Submission
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		forms:       make(map[string]models.Form),
		retired:     make(map[string]bool),
		submissions: make(map[string]models.Submission),
	}
}

func (s *MemoryStore) FindFormByPublicID(_ context.Context, formID string) (*models.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	form, ok := s.forms[formID]
	if !ok {
		return nil, ErrFormNotFound
	}
	return &form, nil
}

func (s *MemoryStore) ListForms(_ context.Context, ownerID string) ([]models.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Form{}
	for _, f := range s.forms {
		if f.OwnerID == ownerID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListRetentionForms(_ context.Context) ([]models.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Form{}
	for _, f := range s.forms {
		if _, ok := f.RetentionWindow(); ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateForm(_ context.Context, form *models.Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[form.FormID]; ok || s.retired[form.FormID] {
		return ErrDuplicateForm
	}
	s.nextID++
	now := time.Now().UTC()
	form.ID = s.nextID
	form.CreateAt = now
	form.UpdateAt = now
	s.forms[form.FormID] = *form
	return nil
}

func (s *MemoryStore) UpdateForm(_ context.Context, form *models.Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.forms[form.FormID]
	if !ok {
		return ErrFormNotFound
	}
	cur.Name = form.Name
	cur.Active = form.Active
	cur.NotificationEmail = form.NotificationEmail
	cur.EmailNotificationsEnabled = form.EmailNotificationsEnabled
	cur.Honeypot = form.Honeypot
	cur.DataRetention = form.DataRetention
	cur.UpdateAt = time.Now().UTC()
	s.forms[form.FormID] = cur
	return nil
}

func (s *MemoryStore) DeleteForm(_ context.Context, formID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[formID]; !ok {
		return ErrFormNotFound
	}
	delete(s.forms, formID)
	s.retired[formID] = true
	for id, sub := range s.submissions {
		if sub.FormID == formID {
			delete(s.submissions, id)
		}
	}
	return nil
}

func (s *MemoryStore) CreateSubmission(_ context.Context, sub *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[sub.ID]; ok {
		return ErrDuplicateSubmission
	}
	if sub.IdempotencyKey != nil {
		for _, existing := range s.submissions {
			if existing.FormID == sub.FormID && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *sub.IdempotencyKey {
				return ErrDuplicateSubmission
			}
		}
	}
	s.submissions[sub.ID] = cloneSubmission(*sub)
	return nil
}

func (s *MemoryStore) FindSubmission(_ context.Context, id string) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	out := cloneSubmission(sub)
	return &out, nil
}

func (s *MemoryStore) FindSubmissionByIdempotencyKey(_ context.Context, formID, key string) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions {
		if sub.FormID == formID && sub.IdempotencyKey != nil && *sub.IdempotencyKey == key {
			out := cloneSubmission(sub)
			return &out, nil
		}
	}
	return nil, ErrSubmissionNotFound
}

func (s *MemoryStore) ListSubmissions(_ context.Context, q SubmissionQuery) ([]models.Submission, int64, error) {
	q = q.normalized()
	wanted := make(map[string]bool, len(q.FormIDs))
	for _, id := range q.FormIDs {
		wanted[id] = true
	}

	s.mu.RLock()
	matched := []models.Submission{}
	for _, sub := range s.submissions {
		if wanted[sub.FormID] {
			matched = append(matched, cloneSubmission(sub))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].SubmittedAt.Equal(matched[j].SubmittedAt) {
			return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := q.offset()
	if start >= len(matched) {
		return []models.Submission{}, total, nil
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) DeleteSubmission(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[id]; !ok {
		return ErrSubmissionNotFound
	}
	delete(s.submissions, id)
	return nil
}

func (s *MemoryStore) CountSubmissionsBefore(_ context.Context, formID string, cutoff time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, sub := range s.submissions {
		if sub.FormID == formID && sub.SubmittedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteSubmissionsBefore(_ context.Context, formID string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sub := range s.submissions {
		if sub.FormID == formID && sub.SubmittedAt.Before(cutoff) {
			delete(s.submissions, id)
			n++
		}
	}
	return n, nil
}

func cloneSubmission(sub models.Submission) models.Submission {
	sub.Data = append(sub.Data[:0:0], sub.Data...)
	sub.FieldOrder = append(sub.FieldOrder[:0:0], sub.FieldOrder...)
	return sub
}
