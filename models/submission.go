package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Submission is one accepted payload stored against a form.
// Data keeps the field values as a JSON object; FieldOrder remembers the
// order the caller sent them in because JSON columns do not.
type Submission struct {
	ID             string                      `gorm:"primaryKey;column:id;size:36" json:"id"`
	FormID         string                      `gorm:"column:form_id;size:64;not null;index:idx_submissions_form_submitted,priority:1;uniqueIndex:idx_submissions_form_idempotency,priority:1" json:"formId"`
	Data           datatypes.JSON              `gorm:"column:data;not null" json:"-"`
	FieldOrder     datatypes.JSONSlice[string] `gorm:"column:field_order" json:"-"`
	SubmittedAt    time.Time                   `gorm:"column:submitted_at;not null;index:idx_submissions_form_submitted,priority:2" json:"submittedAt"`
	SourceIP       *string                     `gorm:"column:source_ip;size:64" json:"sourceIp,omitempty"`
	UserAgent      *string                     `gorm:"column:user_agent;size:512" json:"userAgent,omitempty"`
	Referrer       *string                     `gorm:"column:referrer;size:2048" json:"referrer,omitempty"`
	IsSpam         bool                        `gorm:"column:is_spam" json:"isSpam"`
	IdempotencyKey *string                     `gorm:"column:idempotency_key;size:128;uniqueIndex:idx_submissions_form_idempotency,priority:2" json:"-"`
}

func (Submission) TableName() string { return "submissions" }

// SetFields stores fields into Data and FieldOrder.
func (s *Submission) SetFields(fields FieldMap) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	s.Data = datatypes.JSON(raw)
	s.FieldOrder = datatypes.JSONSlice[string](fields.Names())
	return nil
}

// Fields decodes Data back into a FieldMap in submission order.
func (s *Submission) Fields() (FieldMap, error) {
	var fields FieldMap
	if len(s.Data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(s.Data, &fields); err != nil {
		return nil, err
	}
	return fields.Reorder(s.FieldOrder), nil
}

// MarshalJSON renders data in submission order.
func (s Submission) MarshalJSON() ([]byte, error) {
	type plain Submission
	out := struct {
		plain
		Data json.RawMessage `json:"data"`
	}{plain: plain(s)}

	if fields, err := s.Fields(); err == nil {
		raw, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		out.Data = raw
	} else {
		out.Data = json.RawMessage(s.Data)
	}
	if len(out.Data) == 0 {
		out.Data = json.RawMessage(`{}`)
	}
	return json.Marshal(out)
}
