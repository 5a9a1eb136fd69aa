// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flytaxi/internal/http/handlers"
	"flytaxi/internal/http/middleware"
	"flytaxi/internal/infra"
	"flytaxi/internal/logger"
	"flytaxi/internal/types"
)

type RouterDeps struct {
	Order    handlers.Orchestrator
	Ratings  handlers.RatingReader
	Fares    handlers.Fares
	Clock    handlers.Clock
	Verifier infra.TokenVerifier
	Log      *zap.Logger
}

// NewRouter registers the gateway routes. Rider ids owned by the Telegram
// transport are never reachable here.
func NewRouter(deps RouterDeps) *gin.Engine {
	deps.Log = logger.OrNop(deps.Log)
	if deps.Verifier == nil {
		deps.Log.Warn("rider endpoints are unauthenticated; set FLYTAXI_FIREBASE_PROJECT_ID to enable auth")
	}

	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")

	eventHandler := handlers.NewEventHandler(deps.Order)
	riders := api.Group("/riders/:id",
		middleware.DenyPrefix("id", types.TelegramPrefix),
		middleware.Auth(deps.Verifier),
		middleware.RequireSelf("id"),
	)
	riders.POST("/events", eventHandler.Post)
	riders.GET("/state", eventHandler.GetState)

	driverHandler := handlers.NewDriverHandler(deps.Ratings)
	api.GET("/drivers/:id/rating", driverHandler.Rating)

	fareHandler := handlers.NewFareHandler(deps.Fares, deps.Clock)
	api.GET("/availability", fareHandler.Availability)
	api.POST("/fares/preview", fareHandler.Preview)

	return r
}
