package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RetentionSummary reports what a purge run did.
type RetentionSummary struct {
	FormsScanned       int
	SubmissionsDeleted int64
	DryRun             bool
}

// RetentionService deletes submissions older than their form's window.
type RetentionService struct {
	store Store
}

func NewRetentionService(store Store) *RetentionService {
	return &RetentionService{store: store}
}

func (s *RetentionService) Purge(ctx context.Context, now time.Time, dryRun bool) (*RetentionSummary, error) {
	forms, err := s.store.ListRetentionForms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list retention forms: %w", err)
	}

	summary := &RetentionSummary{DryRun: dryRun}
	for i := range forms {
		form := &forms[i]
		window, ok := form.RetentionWindow()
		if !ok {
			continue
		}
		summary.FormsScanned++
		cutoff := now.Add(-window)

		var n int64
		if dryRun {
			n, err = s.store.CountSubmissionsBefore(ctx, form.FormID, cutoff)
		} else {
			n, err = s.store.DeleteSubmissionsBefore(ctx, form.FormID, cutoff)
		}
		if err != nil {
			return summary, fmt.Errorf("purge form %s: %w", form.FormID, err)
		}
		if n > 0 {
			log.Printf("retention: form %s: %d submissions older than %s (dry run: %v)", form.FormID, n, cutoff.Format(time.RFC3339), dryRun)
		}
		summary.SubmissionsDeleted += n
	}
	return summary, nil
}
