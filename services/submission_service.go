package services

import (
	"context"
	"errors"

	"formdrop-api/models"
)

// SubmissionPage is one page of an owner's submissions.
type SubmissionPage struct {
	Submissions []models.Submission
	Total       int64
	Page        int
	Limit       int
}

// Pages returns the number of pages for Total at Limit per page.
func (p SubmissionPage) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
}

// SubmissionService implements owner-scoped submission reads and deletes.
type SubmissionService struct {
	store Store
}

func NewSubmissionService(store Store) *SubmissionService {
	return &SubmissionService{store: store}
}

// List returns submissions for formID, or for every form of the owner
// when formID is empty.
func (s *SubmissionService) List(ctx context.Context, ownerID, formID string, page, limit int) (*SubmissionPage, error) {
	var formIDs []string
	if formID != "" {
		form, err := s.store.FindFormByPublicID(ctx, formID)
		if err != nil {
			return nil, err
		}
		if form.OwnerID != ownerID {
			return nil, ErrFormNotFound
		}
		formIDs = []string{form.FormID}
	} else {
		forms, err := s.store.ListForms(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		for _, f := range forms {
			formIDs = append(formIDs, f.FormID)
		}
	}

	q := SubmissionQuery{FormIDs: formIDs, Page: page, Limit: limit}.normalized()
	subs, total, err := s.store.ListSubmissions(ctx, q)
	if err != nil {
		return nil, err
	}
	return &SubmissionPage{Submissions: subs, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// Get returns ErrSubmissionNotFound unless the owner owns the parent form.
func (s *SubmissionService) Get(ctx context.Context, ownerID, id string) (*models.Submission, error) {
	sub, err := s.store.FindSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	form, err := s.store.FindFormByPublicID(ctx, sub.FormID)
	if errors.Is(err, ErrFormNotFound) || (err == nil && form.OwnerID != ownerID) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubmissionService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return s.store.DeleteSubmission(ctx, id)
}
