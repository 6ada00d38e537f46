package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"formdrop-api/models"
)

var (
	// ErrFormNotFound means no live form has the requested public id.
	ErrFormNotFound = errors.New("form not found")
	// ErrFormInactive means the form exists but does not accept submissions.
	ErrFormInactive = errors.New("form inactive")
	// ErrInvalidPayload means the request body could not be turned into fields.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrPayloadTooLarge is an ErrInvalidPayload for bodies over the size limit.
	ErrPayloadTooLarge        = fmt.Errorf("%w: body exceeds size limit", ErrInvalidPayload)
	ErrMissingFormID          = fmt.Errorf("%w: missing formId", ErrInvalidPayload)
	ErrNoFields               = fmt.Errorf("%w: no fields", ErrInvalidPayload)
	ErrTooManyFields          = fmt.Errorf("%w: too many fields", ErrInvalidPayload)
	ErrUnsupportedContentType = fmt.Errorf("%w: unsupported content type", ErrInvalidPayload)
	// ErrStorage means the durable write or read failed.
	ErrStorage = errors.New("storage error")

	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrDuplicateForm       = errors.New("duplicate form id")
	ErrValidation          = errors.New("validation failed")
)

// FormStore is the persistence contract for forms.
type FormStore interface {
	// FindFormByPublicID returns ErrFormNotFound when no live form matches
	// formID exactly.
	FindFormByPublicID(ctx context.Context, formID string) (*models.Form, error)
	ListForms(ctx context.Context, ownerID string) ([]models.Form, error)
	// ListRetentionForms returns every live form with a finite retention window.
	ListRetentionForms(ctx context.Context) ([]models.Form, error)
	CreateForm(ctx context.Context, form *models.Form) error
	UpdateForm(ctx context.Context, form *models.Form) error
	// DeleteForm removes the form and every submission stored against it.
	DeleteForm(ctx context.Context, formID string) error
}

// SubmissionQuery selects a page of submissions, newest first.
type SubmissionQuery struct {
	FormIDs []string
	Page    int
	Limit   int
}

// SubmissionStore is the persistence contract for submissions.
type SubmissionStore interface {
	// CreateSubmission persists sub atomically. A repeated idempotency key
	// for the same form yields ErrDuplicateSubmission.
	CreateSubmission(ctx context.Context, sub *models.Submission) error
	FindSubmission(ctx context.Context, id string) (*models.Submission, error)
	FindSubmissionByIdempotencyKey(ctx context.Context, formID, key string) (*models.Submission, error)
	ListSubmissions(ctx context.Context, q SubmissionQuery) ([]models.Submission, int64, error)
	DeleteSubmission(ctx context.Context, id string) error
	CountSubmissionsBefore(ctx context.Context, formID string, cutoff time.Time) (int64, error)
	DeleteSubmissionsBefore(ctx context.Context, formID string, cutoff time.Time) (int64, error)
}

// Store bundles both contracts.
type Store interface {
	FormStore
	SubmissionStore
}

func (q SubmissionQuery) normalized() SubmissionQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	// Keeps offset() from overflowing.
	if maxPage := math.MaxInt32 / q.Limit; q.Page > maxPage {
		q.Page = maxPage
	}
	return q
}

func (q SubmissionQuery) offset() int { return (q.Page - 1) * q.Limit }
