package utils

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// FormIDLength is the length of generated public form ids.
const FormIDLength = 10

// NewFormID returns a random URL-safe public form id.
func NewFormID() (string, error) {
	return gonanoid.New(FormIDLength)
}

// NewSubmissionID returns a random submission id.
func NewSubmissionID() string {
	return uuid.NewString()
}
