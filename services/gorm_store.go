package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"formdrop-api/models"
)

// GormStore implements Store on top of gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the forms and submissions tables.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&models.Form{}, &models.Submission{})
}

func (s *GormStore) FindFormByPublicID(ctx context.Context, formID string) (*models.Form, error) {
	var form models.Form
	err := s.db.WithContext(ctx).Where("form_id = ?", formID).First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFormNotFound
	}
	if err != nil {
		return nil, err
	}
	// Some collations compare case-insensitively; public ids must match exactly.
	if form.FormID != formID {
		return nil, ErrFormNotFound
	}
	return &form, nil
}

func (s *GormStore) ListForms(ctx context.Context, ownerID string) ([]models.Form, error) {
	var forms []models.Form
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("create_at DESC, id DESC").
		Find(&forms).Error
	return forms, err
}

func (s *GormStore) ListRetentionForms(ctx context.Context) ([]models.Form, error) {
	var forms []models.Form
	err := s.db.WithContext(ctx).
		Where("data_retention <> ? AND data_retention <> ?", models.RetentionForever, "").
		Order("id ASC").
		Find(&forms).Error
	return forms, err
}

func (s *GormStore) CreateForm(ctx context.Context, form *models.Form) error {
	err := s.db.WithContext(ctx).Create(form).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateForm
	}
	return err
}

func (s *GormStore) UpdateForm(ctx context.Context, form *models.Form) error {
	return s.db.WithContext(ctx).
		Model(&models.Form{}).
		Where("form_id = ?", form.FormID).
		Updates(map[string]interface{}{
			"name":                        form.Name,
			"active":                      form.Active,
			"notification_email":          form.NotificationEmail,
			"email_notifications_enabled": form.EmailNotificationsEnabled,
			"honeypot":                    form.Honeypot,
			"data_retention":              form.DataRetention,
		}).Error
}

func (s *GormStore) DeleteForm(ctx context.Context, formID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("form_id = ?", formID).Delete(&models.Form{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrFormNotFound
		}
		return tx.Where("form_id = ?", formID).Delete(&models.Submission{}).Error
	})
}

func (s *GormStore) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	err := s.db.WithContext(ctx).Create(sub).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSubmission
	}
	return err
}

func (s *GormStore) FindSubmission(ctx context.Context, id string) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *GormStore) FindSubmissionByIdempotencyKey(ctx context.Context, formID, key string) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.WithContext(ctx).
		Where("form_id = ? AND idempotency_key = ?", formID, key).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *GormStore) ListSubmissions(ctx context.Context, q SubmissionQuery) ([]models.Submission, int64, error) {
	q = q.normalized()
	if len(q.FormIDs) == 0 {
		return []models.Submission{}, 0, nil
	}

	base := s.db.WithContext(ctx).Model(&models.Submission{}).Where("form_id IN ?", q.FormIDs).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []models.Submission
	err := base.
		Order("submitted_at DESC, id DESC").
		Offset(q.offset()).
		Limit(q.Limit).
		Find(&subs).Error
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (s *GormStore) DeleteSubmission(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Submission{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func (s *GormStore) CountSubmissionsBefore(ctx context.Context, formID string, cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("form_id = ? AND submitted_at < ?", formID, cutoff).
		Count(&n).Error
	return n, err
}

func (s *GormStore) DeleteSubmissionsBefore(ctx context.Context, formID string, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("form_id = ? AND submitted_at < ?", formID, cutoff).
		Delete(&models.Submission{})
	return res.RowsAffected, res.Error
}
