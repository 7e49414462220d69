package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mesikahq/claims-intake/internal/middleware"
)

type Router struct {
	handler     *Handler
	jwtSecret   string
	allowOrigin string
}

// NewRouter wires the intake routes. When jwtSecret is empty the API runs
// unauthenticated, which is how the local development stack is deployed.
func NewRouter(handler *Handler, jwtSecret, allowOrigin string) *Router {
	return &Router{handler: handler, jwtSecret: jwtSecret, allowOrigin: allowOrigin}
}

func (r *Router) SetupRouter(logger *zap.Logger) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.RequestID(),
		middleware.SecurityHeaders(),
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.RateLimit(rate.Every(time.Second/30), 30),
		middleware.CORS(r.allowOrigin),
	)

	router.GET("/health", r.handler.Health)

	api := router.Group("/api")
	if r.jwtSecret != "" {
		api.Use(middleware.Auth(r.jwtSecret))
	}
	{
		directory := api.Group("/directory")
		{
			directory.GET("/patients", r.handler.ListPatients)
			directory.GET("/providers", r.handler.ListProviders)
			directory.POST("/refresh", r.handler.RefreshDirectory)
		}

		drafts := api.Group("/drafts")
		{
			drafts.POST("", r.handler.CreateDraft)
			drafts.GET("/:id", r.handler.GetDraft)
			drafts.DELETE("/:id", r.handler.CloseDraft)
			drafts.PATCH("/:id", r.handler.EditDraftField)
			drafts.PUT("/:id/patient", r.handler.SelectPatient)
			drafts.PUT("/:id/provider", r.handler.SelectProvider)
			drafts.POST("/:id/suggestions", r.handler.SuggestCodes)
			drafts.POST("/:id/submit", r.handler.SubmitDraft)
		}

		claims := api.Group("/claims")
		{
			claims.GET("", r.handler.ListClaims)
			claims.GET("/:id/documents", r.handler.ListClaimDocuments)
			claims.POST("/:id/documents", r.handler.UploadClaimDocument)
		}
	}

	return router
}
