package routes

import (
	"net/http"

	"formdrop-api/controllers"
	"formdrop-api/middleware"

	"github.com/gin-gonic/gin"
)

// Dependencies carries the handlers and middleware settings the router needs.
type Dependencies struct {
	Submit      *controllers.SubmitController
	Forms       *controllers.FormController
	Submissions *controllers.SubmissionController

	JWTSecret   string
	CORSOrigins []string
	Limiter     *middleware.FixedWindowLimiter
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cors := middleware.CORSMiddleware(deps.CORSOrigins)
	limit := middleware.RateLimitMiddleware(deps.Limiter)

	// Public submission endpoints, reachable from any site embedding a form
	registerSubmit(router.Group("/api/submit", cors, limit), deps.Submit)

	v1 := router.Group("/api/v1")
	{
		registerSubmit(v1.Group("/submit", cors, limit), deps.Submit)

		// Health check
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTSecret))
		{
			forms := protected.Group("/forms")
			{
				forms.GET("", deps.Forms.List)
				forms.POST("", deps.Forms.Create)
				forms.GET("/:formId", deps.Forms.Get)
				forms.PUT("/:formId", deps.Forms.Update)
				forms.DELETE("/:formId", deps.Forms.Delete)
			}

			submissions := protected.Group("/submissions")
			{
				submissions.GET("", deps.Submissions.List)
				submissions.GET("/:id", deps.Submissions.Get)
				submissions.DELETE("/:id", deps.Submissions.Delete)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

func registerSubmit(group *gin.RouterGroup, submit *controllers.SubmitController) {
	// Preflight requests are answered by the CORS middleware
	group.OPTIONS("", func(c *gin.Context) {})
	group.OPTIONS("/:formId", func(c *gin.Context) {})
	group.POST("", submit.Submit)
	group.POST("/:formId", submit.Submit)
}
