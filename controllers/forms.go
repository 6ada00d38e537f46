package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"formdrop-api/services"
)

// FormController serves owner-authenticated form management.
type FormController struct {
	forms *services.FormService
}

func NewFormController(forms *services.FormService) *FormController {
	return &FormController{forms: forms}
}

func (ctl *FormController) List(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	forms, err := ctl.forms.List(c.Request.Context(), owner)
	if err != nil {
		respondOwnerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forms": forms})
}

func (ctl *FormController) Create(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var in services.FormInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	form, err := ctl.forms.Create(c.Request.Context(), owner, in)
	if err != nil {
		respondOwnerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"form": form})
}

func (ctl *FormController) Get(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	form, err := ctl.forms.Get(c.Request.Context(), owner, c.Param("formId"))
	if err != nil {
		respondOwnerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"form": form})
}

func (ctl *FormController) Update(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var in services.FormInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	form, err := ctl.forms.Update(c.Request.Context(), owner, c.Param("formId"), in)
	if err != nil {
		respondOwnerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"form": form})
}

func (ctl *FormController) Delete(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	if err := ctl.forms.Delete(c.Request.Context(), owner, c.Param("formId")); err != nil {
		respondOwnerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Form deleted successfully"})
}
