package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authhandler "github.com/coauthor/backend/internal/handler/auth"
	"github.com/coauthor/backend/internal/handler/events"
	storyhandler "github.com/coauthor/backend/internal/handler/story"
	middlewarePkg "github.com/coauthor/backend/internal/middleware"
	authservice "github.com/coauthor/backend/internal/service/auth"
	storyservice "github.com/coauthor/backend/internal/service/story"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(authSvc *authservice.Service, storySvc *storyservice.Service, hub *events.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	authHandler := authhandler.New(authSvc)
	storyHandler := storyhandler.New(storySvc, authSvc)
	eventsHandler := events.NewHandler(hub)

	r.Route("/api", func(api chi.Router) {
		authHandler.RegisterRoutes(api)
		storyHandler.RegisterRoutes(api)
		eventsHandler.RegisterRoutes(api)
	})

	return r
}
