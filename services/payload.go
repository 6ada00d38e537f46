package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"formdrop-api/models"
	"formdrop-api/utils"
)

const (
	// FormIDField carries the target form on the path-less submit route.
	FormIDField = "formId"
	// HoneypotField must stay empty when a human fills the form.
	HoneypotField = "_gotcha"

	dataEnvelopeField  = "data"
	maxFieldNameLength = 256
)

// PayloadLimits bounds what a single submission may contain.
type PayloadLimits struct {
	MaxBytes  int64
	MaxFields int
}

// DefaultPayloadLimits mirrors the MAX_SUBMISSION_* defaults.
var DefaultPayloadLimits = PayloadLimits{MaxBytes: 1 << 20, MaxFields: 200}

// Payload is a normalized request body.
type Payload struct {
	// FormID is the top-level formId value, when the body carried one.
	FormID string
	Fields models.FieldMap
}

// ParsePayload turns a JSON, multipart or urlencoded body into a field map.
func ParsePayload(contentType string, body io.Reader, limits PayloadLimits) (*Payload, error) {
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = DefaultPayloadLimits.MaxBytes
	}
	if limits.MaxFields <= 0 {
		limits.MaxFields = DefaultPayloadLimits.MaxFields
	}
	if body == nil {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable content type", ErrInvalidPayload)
	}

	reader := &limitedBody{rc: http.MaxBytesReader(nil, io.NopCloser(body), limits.MaxBytes)}

	var payload *Payload
	switch mediaType {
	case "application/json":
		payload, err = parseJSONPayload(reader, limits)
	case "multipart/form-data":
		payload, err = parseMultipartPayload(reader, params["boundary"], limits)
	case "application/x-www-form-urlencoded":
		payload, err = parseURLEncodedPayload(reader, limits)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedContentType, mediaType)
	}
	if reader.exceeded {
		return nil, ErrPayloadTooLarge
	}
	if errors.Is(err, models.ErrFieldLimit) {
		return nil, ErrTooManyFields
	}
	if err != nil {
		if errors.Is(err, ErrInvalidPayload) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if err := checkFields(payload.Fields, limits); err != nil {
		return nil, err
	}
	return payload, nil
}

// parseJSONPayload drops empty keys, as the form parsers drop unnamed fields.
func parseJSONPayload(r io.Reader, limits PayloadLimits) (*Payload, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}

	fields, err := models.DecodeFieldMap(raw, limits.MaxFields)
	if err != nil {
		return nil, err
	}

	payload := &Payload{Fields: fields}
	if id, ok := fields.GetString(FormIDField); ok {
		payload.FormID = id
	}
	inner, ok, err := unwrapDataEnvelope(fields, limits)
	if err != nil {
		return nil, err
	}
	if ok {
		payload.Fields = inner
	}
	payload.Fields.Delete("")
	sanitizeStrings(payload.Fields)
	return payload, nil
}

// unwrapDataEnvelope handles bodies shaped {"formId": ..., "data": {...}}.
func unwrapDataEnvelope(fields models.FieldMap, limits PayloadLimits) (models.FieldMap, bool, error) {
	v, ok := fields.Get(dataEnvelopeField)
	if !ok || v.Kind != models.FieldJSON {
		return nil, false, nil
	}
	for _, f := range fields {
		if f.Name != dataEnvelopeField && f.Name != FormIDField {
			return nil, false, nil
		}
	}
	raw := bytes.TrimSpace(v.Raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false, nil
	}
	inner, err := models.DecodeFieldMap(raw, limits.MaxFields)
	if errors.Is(err, models.ErrFieldLimit) {
		return nil, false, err
	}
	if err != nil {
		return nil, false, nil
	}
	return inner, true, nil
}

func parseMultipartPayload(r io.Reader, boundary string, limits PayloadLimits) (*Payload, error) {
	if boundary == "" {
		return nil, fmt.Errorf("%w: missing multipart boundary", ErrInvalidPayload)
	}

	mr := multipart.NewReader(r, boundary)
	fields := models.NewFieldBuilder(limits.MaxFields)
	parts := 0
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		parts++
		if parts > limits.MaxFields {
			return nil, ErrTooManyFields
		}

		name := part.FormName()
		if name == "" {
			if _, err := io.Copy(io.Discard, part); err != nil {
				return nil, err
			}
			continue
		}

		// File contents are not kept; the field records the file name.
		if filename := part.FileName(); filename != "" {
			if _, err := io.Copy(io.Discard, part); err != nil {
				return nil, err
			}
			if err := fields.Add(name, utils.SanitizeValue(filename)); err != nil {
				return nil, err
			}
			continue
		}

		value, err := io.ReadAll(part)
		if err != nil {
			return nil, err
		}
		if err := fields.Add(name, utils.SanitizeValue(string(value))); err != nil {
			return nil, err
		}
	}
	return newFormPayload(fields.Fields()), nil
}

// parseURLEncodedPayload keeps pair order, which url.ParseQuery does not.
// Like multipart parts, every pair counts against MaxFields.
func parseURLEncodedPayload(r io.Reader, limits PayloadLimits) (*Payload, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	fields := models.NewFieldBuilder(limits.MaxFields)
	pairs := 0
	for _, pair := range strings.Split(string(raw), "&") {
		if pair == "" {
			continue
		}
		pairs++
		if pairs > limits.MaxFields {
			return nil, ErrTooManyFields
		}
		key, value, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(key)
		if err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}
		decoded, err := url.QueryUnescape(value)
		if err != nil {
			return nil, err
		}
		if err := fields.Add(name, utils.SanitizeValue(decoded)); err != nil {
			return nil, err
		}
	}
	return newFormPayload(fields.Fields()), nil
}

func newFormPayload(fields models.FieldMap) *Payload {
	payload := &Payload{Fields: fields}
	if id, ok := fields.GetString(FormIDField); ok {
		payload.FormID = id
	}
	return payload
}

func checkFields(fields models.FieldMap, limits PayloadLimits) error {
	if fields.Len() == 0 {
		return ErrNoFields
	}
	if fields.Len() > limits.MaxFields {
		return ErrTooManyFields
	}
	for _, f := range fields {
		if f.Name == "" || len(f.Name) > maxFieldNameLength {
			return fmt.Errorf("%w: invalid field name", ErrInvalidPayload)
		}
	}
	return nil
}

func sanitizeStrings(fields models.FieldMap) {
	for i := range fields {
		v := &fields[i].Value
		switch v.Kind {
		case models.FieldString:
			v.Str = utils.SanitizeValue(v.Str)
		case models.FieldStrings:
			for j := range v.List {
				v.List[j] = utils.SanitizeValue(v.List[j])
			}
		}
	}
}

// limitedBody records when the wrapped MaxBytesReader hit its limit.
type limitedBody struct {
	rc       io.ReadCloser
	exceeded bool
}

func (l *limitedBody) Read(p []byte) (int, error) {
	n, err := l.rc.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		l.exceeded = true
	}
	return n, err
}
