package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"formdrop-api/services"
)

// SubmissionController serves owner-authenticated submission reads.
type SubmissionController struct {
	submissions *services.SubmissionService
}

func NewSubmissionController(submissions *services.SubmissionService) *SubmissionController {
	return &SubmissionController{submissions: submissions}
}

// List handles GET /submissions?formId=&page=&limit=
func (ctl *SubmissionController) List(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	page, err := ctl.submissions.List(
		c.Request.Context(),
		owner,
		c.Query("formId"),
		queryInt(c, "page", 1),
		queryInt(c, "limit", 10),
	)
	if err != nil {
		respondOwnerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"submissions": page.Submissions,
		"pagination": gin.H{
			"total": page.Total,
			"page":  page.Page,
			"limit": page.Limit,
			"pages": page.Pages(),
		},
	})
}

func (ctl *SubmissionController) Get(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	sub, err := ctl.submissions.Get(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		respondOwnerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission": sub})
}

func (ctl *SubmissionController) Delete(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	if err := ctl.submissions.Delete(c.Request.Context(), owner, c.Param("id")); err != nil {
		respondOwnerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Submission deleted successfully"})
}
