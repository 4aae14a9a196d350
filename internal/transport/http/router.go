package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/campsite-scheduler/internal/repository"
	"github.com/ErlanBelekov/campsite-scheduler/internal/transport/http/handler"
	"github.com/ErlanBelekov/campsite-scheduler/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Watch     *handler.WatchHandler
	Rebooking *handler.RebookingHandler
	Session   *handler.SessionHandler
}

func NewRouter(logger *slog.Logger, h Handlers, userRepo repository.UserRepository, jwtKey []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RunID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(jwtKey)
	ensureUser := middleware.EnsureUser(userRepo, logger)

	// Admission session, shared by the whole process
	session := r.Group("/session", authMW, ensureUser)
	session.GET("", h.Session.Get)
	session.POST("/wait", h.Session.Wait)
	session.DELETE("", h.Session.Delete)

	// Availability watches
	watches := r.Group("/watches", authMW, ensureUser)
	watches.POST("", h.Watch.Create)
	watches.GET("/:id", h.Watch.GetByID)
	watches.PATCH("/:id", h.Watch.Update)
	watches.POST("/:id/check", h.Watch.Check)

	// Skip-the-queue rebooking entries
	rebookings := r.Group("/rebookings", authMW, ensureUser)
	rebookings.POST("", h.Rebooking.Enroll)
	rebookings.GET("/:id", h.Rebooking.GetByID)
	rebookings.PATCH("/:id", h.Rebooking.Update)
	rebookings.POST("/:id/check", h.Rebooking.Check)

	return r
}
