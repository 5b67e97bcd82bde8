package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yegors/fdwatch/internal/config"
	"github.com/yegors/fdwatch/internal/websocket"
	"github.com/yegors/fdwatch/pkg/logger"
)

// Router wires the read-only status API, the websocket and the optional display page
type Router struct {
	handler  *Handler
	wsServer *websocket.Server
	static   *StaticFileHandler
}

// NewRouter creates the API router. The websocket server gets a message handler that
// answers status requests from the engine view.
func NewRouter(view EngineView, cues CueHistory, cfg *config.Config, wsServer *websocket.Server, log *logger.Logger) *Router {
	r := &Router{
		handler:  NewHandler(view, cues, cfg, log),
		wsServer: wsServer,
	}
	if cfg.Server.StaticDir != "" {
		r.static = NewStaticFileHandler(cfg.Server.StaticDir, log)
	}
	if wsServer != nil {
		wsServer.SetMessageHandler(NewWebSocketHandler(view, log))
	}
	return r
}

// SetSimulation enables the simulation control routes
func (rt *Router) SetSimulation(sim SimulationControl) {
	rt.handler.simulation = sim
}

// Routes returns the HTTP handler
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", rt.handler.GetHealth)
		r.Get("/status", rt.handler.GetStatus)
		r.Get("/config", rt.handler.GetConfig)
		r.Get("/aircraft", rt.handler.GetAllAircraft)
		r.Get("/aircraft/{id}", rt.handler.GetAircraftByID)
		r.Get("/cues", rt.handler.GetCues)

		if rt.handler.simulation != nil {
			r.Route("/simulation", func(r chi.Router) {
				r.Get("/aircraft", rt.handler.GetSimulatedAircraft)
				r.Post("/aircraft", rt.handler.CreateSimulatedAircraft)
				r.Patch("/aircraft/{hex}", rt.handler.UpdateSimulationControls)
				r.Delete("/aircraft/{hex}", rt.handler.RemoveSimulatedAircraft)
				r.Post("/approach", rt.handler.SpawnSimulatedApproach)
			})
		}
	})

	if rt.wsServer != nil {
		r.Get("/ws", rt.wsServer.HandleConnection)
	}
	if rt.static != nil {
		r.Handle("/*", rt.static)
	}

	return r
}
