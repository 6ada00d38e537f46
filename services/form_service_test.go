package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"formdrop-api/models"
)

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func TestFormServiceCreateDefaults(t *testing.T) {
	svc := NewFormService(NewMemoryStore())
	ctx := context.Background()

	form, err := svc.Create(ctx, "owner-1", FormInput{Name: "  Contact   us ", NotificationEmail: strPtr("owner@example.com")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(form.FormID) != 10 {
		t.Fatalf("expected 10 character form id, got %q", form.FormID)
	}
	if form.Name != "Contact us" || !form.Active || !form.EmailNotificationsEnabled || form.DataRetention != models.RetentionForever {
		t.Fatalf("unexpected defaults %+v", form)
	}

	quiet, err := svc.Create(ctx, "owner-1", FormInput{Name: "Quiet"})
	if err != nil {
		t.Fatalf("create without email: %v", err)
	}
	if quiet.EmailNotificationsEnabled {
		t.Fatalf("notifications need an address")
	}
}

func TestFormServiceValidation(t *testing.T) {
	svc := NewFormService(NewMemoryStore())
	ctx := context.Background()

	cases := []FormInput{
		{Name: "  "},
		{Name: "x", NotificationEmail: strPtr("not-an-email")},
		{Name: "x", EmailNotificationsEnabled: boolPtr(true)},
		{Name: "x", DataRetention: "2weeks"},
	}
	for i, in := range cases {
		if _, err := svc.Create(ctx, "owner-1", in); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestFormServiceOwnerIsolation(t *testing.T) {
	store := NewMemoryStore()
	svc := NewFormService(store)
	ctx := context.Background()

	form, err := svc.Create(ctx, "owner-1", FormInput{Name: "Contact"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(ctx, "owner-2", form.FormID); !errors.Is(err, ErrFormNotFound) {
		t.Fatalf("other owners must not see the form, got %v", err)
	}
	if _, err := svc.Update(ctx, "owner-2", form.FormID, FormInput{Name: "Hijack"}); !errors.Is(err, ErrFormNotFound) {
		t.Fatalf("other owners must not update, got %v", err)
	}
	if err := svc.Delete(ctx, "owner-2", form.FormID); !errors.Is(err, ErrFormNotFound) {
		t.Fatalf("other owners must not delete, got %v", err)
	}

	updated, err := svc.Update(ctx, "owner-1", form.FormID, FormInput{Name: "Contact", Active: boolPtr(false), Honeypot: boolPtr(true), DataRetention: models.Retention90Days})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Active || !updated.Honeypot || updated.DataRetention != models.Retention90Days {
		t.Fatalf("update not applied: %+v", updated)
	}

	forms, _ := svc.List(ctx, "owner-1")
	if len(forms) != 1 {
		t.Fatalf("expected one form, got %d", len(forms))
	}
	if forms, _ := svc.List(ctx, "owner-2"); len(forms) != 0 {
		t.Fatalf("owner-2 should have no forms")
	}
}

func TestFormDeleteLeavesNoReadableSubmissions(t *testing.T) {
	store := NewMemoryStore()
	forms := NewFormService(store)
	subs := NewSubmissionService(store)
	ingest := newIngest(store, nil)
	ctx := context.Background()

	form, _ := forms.Create(ctx, "owner-1", FormInput{Name: "Contact"})
	res, err := ingest.Submit(ctx, jsonRequest(form.FormID, `{"name":"Ana"}`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := forms.Delete(ctx, "owner-1", form.FormID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := subs.Get(ctx, "owner-1", res.Submission.ID); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("submission should be gone, got %v", err)
	}
	if _, err := ingest.Submit(ctx, jsonRequest(form.FormID, `{"name":"Ana"}`)); !errors.Is(err, ErrFormNotFound) {
		t.Fatalf("deleted form must not accept submissions, got %v", err)
	}
}

func TestSubmissionServiceListAndOwnership(t *testing.T) {
	store := NewMemoryStore()
	forms := NewFormService(store)
	subs := NewSubmissionService(store)
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	ingest := NewIngestService(store, store, nil, IngestOptions{Now: func() time.Time {
		tick++
		return now.Add(time.Duration(tick) * time.Second)
	}})

	a, _ := forms.Create(ctx, "owner-1", FormInput{Name: "A"})
	b, _ := forms.Create(ctx, "owner-1", FormInput{Name: "B"})
	c, _ := forms.Create(ctx, "owner-2", FormInput{Name: "C"})
	for _, id := range []string{a.FormID, a.FormID, b.FormID, c.FormID} {
		if _, err := ingest.Submit(ctx, jsonRequest(id, `{"x":"1"}`)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	page, err := subs.List(ctx, "owner-1", "", 1, 2)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if page.Total != 3 || len(page.Submissions) != 2 || page.Pages() != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Submissions[0].FormID != b.FormID {
		t.Fatalf("expected newest first, got %s", page.Submissions[0].FormID)
	}

	page, err = subs.List(ctx, "owner-1", a.FormID, 0, 0)
	if err != nil || page.Total != 2 || page.Limit != 10 || page.Page != 1 {
		t.Fatalf("unexpected filtered page %v %+v", err, page)
	}

	if _, err := subs.List(ctx, "owner-1", c.FormID, 1, 10); !errors.Is(err, ErrFormNotFound) {
		t.Fatalf("foreign form filter must be not found, got %v", err)
	}

	foreign, _ := subs.List(ctx, "owner-2", "", 1, 10)
	id := foreign.Submissions[0].ID
	if _, err := subs.Get(ctx, "owner-1", id); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("foreign submission must be hidden, got %v", err)
	}
	if err := subs.Delete(ctx, "owner-1", id); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("foreign submission must not be deletable, got %v", err)
	}
	if err := subs.Delete(ctx, "owner-2", id); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestSubmissionServiceHugePageIsEmpty(t *testing.T) {
	store := NewMemoryStore()
	seedForm(t, store, "bigpage001", nil)
	ingest := newIngest(store, nil)
	ctx := context.Background()
	if _, err := ingest.Submit(ctx, jsonRequest("bigpage001", `{"x":"1"}`)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	subs := NewSubmissionService(store)
	for _, limit := range []int{1, 10, 100} {
		page, err := subs.List(ctx, "owner-1", "bigpage001", math.MaxInt, limit)
		if err != nil {
			t.Fatalf("limit %d: %v", limit, err)
		}
		if page.Total != 1 || len(page.Submissions) != 0 {
			t.Fatalf("limit %d: unexpected page %+v", limit, page)
		}
		if page.Page < 1 || page.Page > math.MaxInt32/page.Limit {
			t.Fatalf("limit %d: page %d was not capped", limit, page.Page)
		}
	}
}

func TestRetentionPurge(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	seedForm(t, store, "short00000", func(f *models.Form) { f.DataRetention = models.Retention30Days })
	seedForm(t, store, "keep000000", nil)

	for _, at := range []time.Time{now.Add(-45 * 24 * time.Hour), now.Add(-time.Hour)} {
		for _, formID := range []string{"short00000", "keep000000"} {
			svc := NewIngestService(store, store, nil, IngestOptions{Now: func() time.Time { return at }})
			if _, err := svc.Submit(ctx, jsonRequest(formID, `{"x":"1"}`)); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
	}

	retention := NewRetentionService(store)
	summary, err := retention.Purge(ctx, now, true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if summary.FormsScanned != 1 || summary.SubmissionsDeleted != 1 || countSubmissions(t, store, "short00000") != 2 {
		t.Fatalf("dry run must not delete: %+v", summary)
	}

	summary, err = retention.Purge(ctx, now, false)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if summary.SubmissionsDeleted != 1 {
		t.Fatalf("expected one deletion, got %+v", summary)
	}
	if countSubmissions(t, store, "short00000") != 1 || countSubmissions(t, store, "keep000000") != 2 {
		t.Fatalf("unexpected remaining submissions")
	}
}
