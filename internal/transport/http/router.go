package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/voltclass/presenterd/internal/transport/ws"
	"github.com/voltclass/presenterd/pkg/httputil"
)

func NewRouter(h *Handler, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httputil.MiddlewareLogging)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// UI event bridge; not behind the timeout middleware
	if wsServer != nil {
		r.Get("/ws/events", wsServer.HandleWS)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Timeout(60 * time.Second))

		pr.Route("/deck", func(dr chi.Router) {
			dr.Get("/", h.GetDeck)
			dr.Post("/load", h.LoadDeck)
			dr.Post("/save", h.SaveDeck)
			dr.Post("/generate", h.GenerateDeck)

			dr.Route("/slides", func(sr chi.Router) {
				sr.Post("/", h.CreateSlide)

				sr.Route("/{id}", func(ir chi.Router) {
					ir.Delete("/", h.DeleteSlide)
					ir.Post("/select", h.SelectSlide)
					ir.Post("/move", h.MoveSlide)
					ir.Put("/canvas", h.UpdateCanvas)
					ir.Put("/question", h.UpdateQuestion)
					ir.Post("/regenerate", h.RegenerateSlide)
				})
			})
		})

		pr.Route("/live", func(lr chi.Router) {
			lr.Get("/", h.GetLive)
			lr.Post("/start", h.StartLive)
			lr.Post("/move", h.MoveLive)
			lr.Post("/pause", h.PauseLive)
			lr.Post("/resume", h.ResumeLive)
			lr.Post("/finish", h.FinishLive)
			lr.Post("/quick-question", h.QuickQuestion)
			lr.Get("/roster", h.GetRoster)
		})

		pr.Route("/batches", func(br chi.Router) {
			br.Get("/", h.GetBatches)
			br.Delete("/{index}/slides/{id}", h.DismissRecommendation)
		})

		pr.Get("/audio/export", h.ExportAudio)

		pr.Route("/drafts", func(dr chi.Router) {
			dr.Post("/", h.SaveDraft)
			dr.Get("/", h.ListDrafts)
			dr.Post("/{id}/restore", h.RestoreDraft)
			dr.Delete("/{id}", h.DeleteDraft)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.OK(w, map[string]string{"status": "ok"})
	})

	return r
}
