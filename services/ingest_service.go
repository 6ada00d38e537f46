package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"formdrop-api/models"
	"formdrop-api/utils"
)

const maxIdempotencyKeyLength = 128

// SubmitRequest is one public submission as seen by the transport.
type SubmitRequest struct {
	// FormID comes from the URL. When empty the body's formId field is used.
	FormID         string
	ContentType    string
	Body           io.Reader
	IdempotencyKey string
	SourceIP       string
	UserAgent      string
	Referrer       string
}

// SubmitResult reports the stored submission. Replayed is true when an
// idempotency key matched an earlier submission.
type SubmitResult struct {
	Submission *models.Submission
	Replayed   bool
}

// IngestOptions tunes IngestService.
type IngestOptions struct {
	Limits        PayloadLimits
	NotifyTimeout time.Duration
	Now           func() time.Time
}

// IngestService runs the public submission path: resolve the form,
// normalize the body, persist, then notify on a best-effort basis.
type IngestService struct {
	forms         FormStore
	submissions   SubmissionStore
	notifier      Notifier
	limits        PayloadLimits
	notifyTimeout time.Duration
	now           func() time.Time
}

func NewIngestService(forms FormStore, submissions SubmissionStore, notifier Notifier, opts IngestOptions) *IngestService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &IngestService{
		forms:         forms,
		submissions:   submissions,
		notifier:      notifier,
		limits:        opts.Limits,
		notifyTimeout: opts.NotifyTimeout,
		now:           opts.Now,
	}
}

func (s *IngestService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLength {
		return nil, fmt.Errorf("%w: idempotency key too long", ErrInvalidPayload)
	}

	var (
		form    *models.Form
		payload *Payload
		err     error
	)
	if req.FormID != "" {
		if form, err = s.resolve(ctx, req.FormID); err != nil {
			return nil, err
		}
		if payload, err = ParsePayload(req.ContentType, req.Body, s.limits); err != nil {
			return nil, err
		}
	} else {
		if payload, err = ParsePayload(req.ContentType, req.Body, s.limits); err != nil {
			return nil, err
		}
		if payload.FormID == "" {
			return nil, ErrMissingFormID
		}
		if form, err = s.resolve(ctx, payload.FormID); err != nil {
			return nil, err
		}
		payload.Fields.Delete(FormIDField)
	}

	fields := payload.Fields
	spam := false
	if trap, ok := fields.Get(HoneypotField); ok {
		spam = form.Honeypot && !trap.IsEmpty()
		fields.Delete(HoneypotField)
	}
	if fields.Len() == 0 {
		return nil, ErrNoFields
	}

	if key != "" {
		existing, err := s.submissions.FindSubmissionByIdempotencyKey(ctx, form.FormID, key)
		if err == nil {
			return &SubmitResult{Submission: existing, Replayed: true}, nil
		}
		if !errors.Is(err, ErrSubmissionNotFound) {
			log.Printf("ingest: idempotency lookup failed for form %s: %v", form.FormID, err)
			return nil, ErrStorage
		}
	}

	sub := &models.Submission{
		ID:          utils.NewSubmissionID(),
		FormID:      form.FormID,
		SubmittedAt: s.now().UTC(),
		SourceIP:    optional(req.SourceIP, 64),
		UserAgent:   optional(req.UserAgent, 512),
		Referrer:    optional(req.Referrer, 2048),
		IsSpam:      spam,
	}
	if key != "" {
		sub.IdempotencyKey = &key
	}
	if err := sub.SetFields(fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if err := s.submissions.CreateSubmission(ctx, sub); err != nil {
		if key != "" && errors.Is(err, ErrDuplicateSubmission) {
			// Lost a race with a concurrent request carrying the same key.
			existing, ferr := s.submissions.FindSubmissionByIdempotencyKey(ctx, form.FormID, key)
			if ferr == nil {
				return &SubmitResult{Submission: existing, Replayed: true}, nil
			}
		}
		log.Printf("ingest: storing submission for form %s failed: %v", form.FormID, err)
		return nil, ErrStorage
	}

	if !spam {
		s.notify(ctx, form, sub, fields)
	}
	return &SubmitResult{Submission: sub}, nil
}

// resolve returns the form only when it exists and accepts submissions.
func (s *IngestService) resolve(ctx context.Context, formID string) (*models.Form, error) {
	if !utils.ValidFormID(formID) {
		return nil, ErrFormNotFound
	}
	form, err := s.forms.FindFormByPublicID(ctx, formID)
	if errors.Is(err, ErrFormNotFound) {
		return nil, ErrFormNotFound
	}
	if err != nil {
		log.Printf("ingest: form lookup %s failed: %v", formID, err)
		return nil, ErrStorage
	}
	if !form.Active {
		return nil, ErrFormInactive
	}
	return form, nil
}

// notify never fails the request: the submission is already stored.
func (s *IngestService) notify(ctx context.Context, form *models.Form, sub *models.Submission, fields models.FieldMap) {
	to, ok := form.NotificationTarget()
	if !ok {
		return
	}
	subject, body, err := RenderSubmissionEmail(form, sub, fields)
	if err != nil {
		log.Printf("ingest: render notification for submission %s failed: %v", sub.ID, err)
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	if err := s.notifier.Send(notifyCtx, to, subject, body); err != nil {
		log.Printf("ingest: notification for submission %s (form %s) failed: %v", sub.ID, form.FormID, err)
	}
}

func optional(value string, max int) *string {
	value = strings.TrimSpace(utils.SanitizeValue(value))
	if value == "" {
		return nil
	}
	if len(value) > max {
		value = strings.ToValidUTF8(value[:max], "")
	}
	return &value
}
