package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"sign-arena/internal/arena"
	"sign-arena/internal/config"
	"sign-arena/internal/identity"
)

func NewRouter(st Store, cfg config.ServerConfig, coord *arena.Coordinator, verifier *identity.Verifier) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", HealthHandler(st))

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Get("/public/leaderboard", LeaderboardHandler(st))
		r.Get("/public/letters", LettersHandler(st))

		r.Group(func(r chi.Router) {
			r.Use(UserAuthMiddleware(verifier))
			r.Post("/sessions", SessionsCreateHandler(coord))
			r.Get("/sessions/{session_id}/state", SessionStateHandler(coord))
			r.Post("/sessions/{session_id}/frames", FramesHandler(coord))
			r.Post("/sessions/{session_id}/skip", SkipHandler(coord))
			r.Get("/sessions/{session_id}/events", EventsSSEHandler(coord))
			r.Delete("/sessions/{session_id}", SessionsDeleteHandler(coord))
			r.Get("/me/records", MyRecordsHandler(st))
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Get("/admin/records", AdminRecordsHandler(st))
			r.Post("/admin/letters", AdminSetLettersHandler(st))

			r.Route("/admin/debug", func(r chi.Router) {
				r.Use(BodyCaptureMiddleware(4096))
				r.Get("/vars", expvar.Handler().ServeHTTP)
			})
		})
	})

	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
