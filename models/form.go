package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Data retention options accepted in form settings.
const (
	RetentionForever = "forever"
	Retention30Days  = "30days"
	Retention90Days  = "90days"
	Retention1Year   = "1year"
	Retention3Years  = "3years"
)

var retentionWindows = map[string]time.Duration{
	Retention30Days: 30 * 24 * time.Hour,
	Retention90Days: 90 * 24 * time.Hour,
	Retention1Year:  365 * 24 * time.Hour,
	Retention3Years: 3 * 365 * 24 * time.Hour,
}

// Form is an owner-configured public submission target.
type Form struct {
	ID                        uint           `gorm:"primaryKey;column:id" json:"-"`
	FormID                    string         `gorm:"column:form_id;size:64;uniqueIndex;not null" json:"formId"`
	OwnerID                   string         `gorm:"column:owner_id;size:191;index;not null" json:"ownerId"`
	Name                      string         `gorm:"column:name;size:255;not null" json:"name"`
	Active                    bool           `gorm:"column:active" json:"active"`
	NotificationEmail         *string        `gorm:"column:notification_email;size:320" json:"notificationEmail"`
	EmailNotificationsEnabled bool           `gorm:"column:email_notifications_enabled" json:"emailNotificationsEnabled"`
	Honeypot                  bool           `gorm:"column:honeypot" json:"honeypot"`
	DataRetention             string         `gorm:"column:data_retention;size:16" json:"dataRetention"`
	CreateAt                  time.Time      `gorm:"column:create_at;autoCreateTime" json:"createdAt"`
	UpdateAt                  time.Time      `gorm:"column:update_at;autoUpdateTime" json:"updatedAt"`
	DeleteAt                  gorm.DeletedAt `gorm:"column:delete_at;index" json:"-"`
}

func (Form) TableName() string { return "forms" }

// NotificationTarget returns the address submissions should be mailed to,
// or false when the owner has not asked for notifications.
func (f *Form) NotificationTarget() (string, bool) {
	if f == nil || !f.EmailNotificationsEnabled || f.NotificationEmail == nil {
		return "", false
	}
	to := strings.TrimSpace(*f.NotificationEmail)
	if to == "" {
		return "", false
	}
	return to, true
}

// RetentionWindow reports how long submissions of this form are kept.
// The boolean is false for forms that keep submissions forever.
func (f *Form) RetentionWindow() (time.Duration, bool) {
	if f == nil {
		return 0, false
	}
	d, ok := retentionWindows[f.DataRetention]
	return d, ok
}

// ValidRetention reports whether value is a known data retention option.
func ValidRetention(value string) bool {
	if value == RetentionForever {
		return true
	}
	_, ok := retentionWindows[value]
	return ok
}
