package services

import (
	"bytes"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"
	"testing"
	"time"

	"formdrop-api/models"
)

func TestParsePayloadJSONKeepsNonStringValues(t *testing.T) {
	p, err := ParsePayload("application/json; charset=utf-8",
		strings.NewReader(`{"age":30,"subscribe":true,"tags":["a","b"],"address":{"city":"Lima"}}`),
		DefaultPayloadLimits)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, _ := p.Fields.Get("age"); v.Kind != models.FieldJSON || string(v.Raw) != "30" {
		t.Fatalf("unexpected age %+v", v)
	}
	if v, _ := p.Fields.Get("subscribe"); v.Kind != models.FieldJSON || string(v.Raw) != "true" {
		t.Fatalf("unexpected subscribe %+v", v)
	}
	if v, _ := p.Fields.Get("tags"); v.Kind != models.FieldStrings {
		t.Fatalf("unexpected tags %+v", v)
	}
	if v, _ := p.Fields.Get("address"); v.Kind != models.FieldJSON || string(v.Raw) != `{"city":"Lima"}` {
		t.Fatalf("unexpected address %+v", v)
	}
}

func TestParsePayloadJSONDataEnvelope(t *testing.T) {
	p, err := ParsePayload("application/json", strings.NewReader(`{"data":{"b":"2","a":"1"}}`), DefaultPayloadLimits)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if names := p.Fields.Names(); len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("unexpected unwrapped fields %v", names)
	}

	// A data key next to other fields is an ordinary field.
	p, err = ParsePayload("application/json", strings.NewReader(`{"data":{"a":"1"},"name":"Ana"}`), DefaultPayloadLimits)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Fields.Len() != 2 {
		t.Fatalf("expected data to stay a field, got %v", p.Fields.Names())
	}
}

func TestParsePayloadStripsNullBytes(t *testing.T) {
	p, err := ParsePayload("application/json", strings.NewReader(`{"name":"An\u0000a"}`), DefaultPayloadLimits)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, _ := p.Fields.GetString("name"); v != "Ana" {
		t.Fatalf("expected null byte to be stripped, got %q", v)
	}
}

func TestParsePayloadMultipartRepeatedFields(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("topic", "billing")
	_ = mw.WriteField("name", "Ana")
	_ = mw.WriteField("topic", "support")
	for _, name := range []string{"a.png", "b.png"} {
		fw, _ := mw.CreateFormFile("shots", name)
		_, _ = fw.Write([]byte{0x89, 'P', 'N', 'G'})
	}
	_ = mw.Close()

	p, err := ParsePayload(mw.FormDataContentType(), &buf, DefaultPayloadLimits)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if names := p.Fields.Names(); len(names) != 3 || names[0] != "topic" || names[2] != "shots" {
		t.Fatalf("unexpected order %v", names)
	}
	if v, _ := p.Fields.Get("topic"); v.Kind != models.FieldStrings || v.List[1] != "support" {
		t.Fatalf("unexpected topic %+v", v)
	}
	if v, _ := p.Fields.Get("shots"); v.Kind != models.FieldStrings || v.List[0] != "a.png" || v.List[1] != "b.png" {
		t.Fatalf("unexpected shots %+v", v)
	}
}

func TestParsePayloadMultipartWithoutBoundary(t *testing.T) {
	_, err := ParsePayload("multipart/form-data", strings.NewReader("x"), DefaultPayloadLimits)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestParsePayloadURLEncodedKeepsOrder(t *testing.T) {
	p, err := ParsePayload("application/x-www-form-urlencoded",
		strings.NewReader("zeta=1&alpha=hello+world&alpha=%C3%A9&=skip&flag"),
		DefaultPayloadLimits)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	names := p.Fields.Names()
	if len(names) != 3 || names[0] != "zeta" || names[1] != "alpha" || names[2] != "flag" {
		t.Fatalf("unexpected order %v", names)
	}
	if v, _ := p.Fields.Get("alpha"); v.Kind != models.FieldStrings || v.List[0] != "hello world" || v.List[1] != "é" {
		t.Fatalf("unexpected alpha %+v", v)
	}

	if _, err := ParsePayload("application/x-www-form-urlencoded", strings.NewReader("a=%zz"), DefaultPayloadLimits); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected bad escape to be invalid, got %v", err)
	}
}

func TestParsePayloadLimits(t *testing.T) {
	limits := PayloadLimits{MaxBytes: 64, MaxFields: 2}

	big := `{"note":"` + strings.Repeat("x", 200) + `"}`
	_, err := ParsePayload("application/json", strings.NewReader(big), limits)
	if !errors.Is(err, ErrPayloadTooLarge) || !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}

	_, err = ParsePayload("application/json", strings.NewReader(`{"a":"1","b":"2","c":"3"}`), limits)
	if !errors.Is(err, ErrInvalidPayload) || errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected too many fields, got %v", err)
	}

	longName := `{"` + strings.Repeat("n", 300) + `":"v"}`
	_, err = ParsePayload("application/json", strings.NewReader(longName), DefaultPayloadLimits)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected long field name to be rejected, got %v", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("upload", "big.bin")
	_, _ = fw.Write(bytes.Repeat([]byte{1}, 500))
	_ = mw.Close()
	_, err = ParsePayload(mw.FormDataContentType(), &buf, PayloadLimits{MaxBytes: 128, MaxFields: 10})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected oversized multipart to be rejected, got %v", err)
	}
}

func manyKeys(n int, key func(i int) string, sep string) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(key(i))
	}
	return b.String()
}

func TestParsePayloadManyKeysFailsFast(t *testing.T) {
	const keys = 100000
	jsonBody := "{" + manyKeys(keys, func(i int) string { return `"` + strconv.Itoa(i) + `":0` }, ",") + "}"
	formBody := manyKeys(keys, func(i int) string { return strconv.Itoa(i) + "=" }, "&")

	cases := []struct {
		name        string
		contentType string
		body        string
	}{
		{"json", "application/json", jsonBody},
		{"json envelope", "application/json", `{"formId":"abc","data":` + jsonBody + "}"},
		{"urlencoded", "application/x-www-form-urlencoded", formBody},
		{"urlencoded repeated name", "application/x-www-form-urlencoded", strings.Repeat("a=1&", keys)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if int64(len(tc.body)) > DefaultPayloadLimits.MaxBytes {
				t.Fatalf("body of %d bytes exceeds the size limit", len(tc.body))
			}
			start := time.Now()
			_, err := ParsePayload(tc.contentType, strings.NewReader(tc.body), DefaultPayloadLimits)
			if !errors.Is(err, ErrTooManyFields) {
				t.Fatalf("expected ErrTooManyFields, got %v", err)
			}
			if elapsed := time.Since(start); elapsed > 3*time.Second {
				t.Fatalf("rejecting %d keys took %v", keys, elapsed)
			}
		})
	}
}

func TestParsePayloadJSONSkipsEmptyKeys(t *testing.T) {
	p, err := ParsePayload("application/json", strings.NewReader(`{"":"x","name":"Ada"}`), DefaultPayloadLimits)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if names := p.Fields.Names(); len(names) != 1 || names[0] != "name" {
		t.Fatalf("expected only name, got %v", names)
	}

	_, err = ParsePayload("application/json", strings.NewReader(`{"":"x"}`), DefaultPayloadLimits)
	if !errors.Is(err, ErrNoFields) {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}
}
