package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"formdrop-api/models"
	"formdrop-api/utils"
)

const formIDAttempts = 5

// FormInput is the owner-editable part of a form. Nil pointers keep the
// current value on update and take the default on create.
type FormInput struct {
	Name                      string  `json:"name"`
	NotificationEmail         *string `json:"notificationEmail"`
	EmailNotificationsEnabled *bool   `json:"emailNotificationsEnabled"`
	Active                    *bool   `json:"active"`
	Honeypot                  *bool   `json:"honeypot"`
	DataRetention             string  `json:"dataRetention"`
}

// FormService implements owner-scoped form management.
type FormService struct {
	store Store
}

func NewFormService(store Store) *FormService {
	return &FormService{store: store}
}

func (s *FormService) List(ctx context.Context, ownerID string) ([]models.Form, error) {
	return s.store.ListForms(ctx, ownerID)
}

// Get returns ErrFormNotFound for forms owned by someone else.
func (s *FormService) Get(ctx context.Context, ownerID, formID string) (*models.Form, error) {
	form, err := s.store.FindFormByPublicID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form.OwnerID != ownerID {
		return nil, ErrFormNotFound
	}
	return form, nil
}

func (s *FormService) Create(ctx context.Context, ownerID string, in FormInput) (*models.Form, error) {
	form := &models.Form{
		OwnerID:       ownerID,
		Active:        true,
		DataRetention: models.RetentionForever,
	}
	if err := applyFormInput(form, in); err != nil {
		return nil, err
	}
	if in.EmailNotificationsEnabled == nil {
		form.EmailNotificationsEnabled = form.NotificationEmail != nil
	}

	for attempt := 0; attempt < formIDAttempts; attempt++ {
		id, err := utils.NewFormID()
		if err != nil {
			return nil, err
		}
		form.FormID = id
		err = s.store.CreateForm(ctx, form)
		if err == nil {
			return form, nil
		}
		if !errors.Is(err, ErrDuplicateForm) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("could not allocate a unique form id after %d attempts", formIDAttempts)
}

func (s *FormService) Update(ctx context.Context, ownerID, formID string, in FormInput) (*models.Form, error) {
	form, err := s.Get(ctx, ownerID, formID)
	if err != nil {
		return nil, err
	}
	if err := applyFormInput(form, in); err != nil {
		return nil, err
	}
	if err := s.store.UpdateForm(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

// Delete removes the form together with its submissions.
func (s *FormService) Delete(ctx context.Context, ownerID, formID string) error {
	if _, err := s.Get(ctx, ownerID, formID); err != nil {
		return err
	}
	return s.store.DeleteForm(ctx, formID)
}

func applyFormInput(form *models.Form, in FormInput) error {
	name := utils.SanitizeInput(in.Name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return fmt.Errorf("%w: form name is required", ErrValidation)
	}
	if len(name) > 255 {
		return fmt.Errorf("%w: form name is too long", ErrValidation)
	}
	form.Name = name

	if in.NotificationEmail != nil {
		email := strings.TrimSpace(*in.NotificationEmail)
		if email == "" {
			form.NotificationEmail = nil
		} else {
			if !utils.ValidateEmail(email) {
				return fmt.Errorf("%w: notification email is invalid", ErrValidation)
			}
			form.NotificationEmail = &email
		}
	}
	if in.EmailNotificationsEnabled != nil {
		form.EmailNotificationsEnabled = *in.EmailNotificationsEnabled
	}
	if form.EmailNotificationsEnabled && form.NotificationEmail == nil {
		return fmt.Errorf("%w: notification email is required when notifications are enabled", ErrValidation)
	}
	if in.Active != nil {
		form.Active = *in.Active
	}
	if in.Honeypot != nil {
		form.Honeypot = *in.Honeypot
	}
	if in.DataRetention != "" {
		if !models.ValidRetention(in.DataRetention) {
			return fmt.Errorf("%w: unknown data retention %q", ErrValidation, in.DataRetention)
		}
		form.DataRetention = in.DataRetention
	}
	return nil
}
