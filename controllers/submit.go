package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"formdrop-api/services"
)

// SubmitController serves the public, unauthenticated submission routes.
type SubmitController struct {
	ingest *services.IngestService
}

func NewSubmitController(ingest *services.IngestService) *SubmitController {
	return &SubmitController{ingest: ingest}
}

// Submit handles POST /api/submit/:formId and POST /api/submit.
func (ctl *SubmitController) Submit(c *gin.Context) {
	res, err := ctl.ingest.Submit(c.Request.Context(), services.SubmitRequest{
		FormID:         c.Param("formId"),
		ContentType:    c.GetHeader("Content-Type"),
		Body:           c.Request.Body,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
		SourceIP:       c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
		Referrer:       c.Request.Referer(),
	})
	if err != nil {
		respondSubmitError(c, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"success":      true,
		"submissionId": res.Submission.ID,
	})
}

// respondSubmitError maps ingestion failures onto fixed public messages.
// Unknown and inactive forms share one reply so callers cannot tell them apart.
func respondSubmitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrFormNotFound), errors.Is(err, services.ErrFormInactive):
		c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
	case errors.Is(err, services.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Submission is too large"})
	case errors.Is(err, services.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidPayloadMessage(err)})
	default:
		if !errors.Is(err, services.ErrStorage) {
			log.Printf("submit: unexpected error: %v", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process form submission"})
	}
}

func invalidPayloadMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrMissingFormID):
		return "Missing formId parameter"
	case errors.Is(err, services.ErrNoFields):
		return "Submission has no fields"
	case errors.Is(err, services.ErrUnsupportedContentType):
		return "Unsupported content type"
	case errors.Is(err, services.ErrTooManyFields):
		return "Submission has too many fields"
	}
	return "Invalid submission payload"
}
