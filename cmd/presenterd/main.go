package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voltclass/presenterd/config"
	"github.com/voltclass/presenterd/internal/api"
	"github.com/voltclass/presenterd/internal/audio"
	"github.com/voltclass/presenterd/internal/auth"
	"github.com/voltclass/presenterd/internal/deck"
	"github.com/voltclass/presenterd/internal/domain"
	"github.com/voltclass/presenterd/internal/drafts"
	"github.com/voltclass/presenterd/internal/live"
	"github.com/voltclass/presenterd/internal/presence"
	"github.com/voltclass/presenterd/internal/recommend"
	"github.com/voltclass/presenterd/internal/store"
	httpx "github.com/voltclass/presenterd/internal/transport/http"
	"github.com/voltclass/presenterd/internal/transport/ws"
	"github.com/voltclass/presenterd/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting presenterd",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- token ---
	claims, err := auth.Parse(cfg.Backend.Token)
	if err != nil {
		log.Fatalf("session token: %v", err)
	}

	// --- backend client ---
	client, err := api.New(api.Options{
		BaseURL: cfg.Backend.BaseURL,
		Token:   cfg.Backend.Token,
		OrgID:   claims.OrgID,
		Timeout: cfg.BackendTimeout(),
	})
	if err != nil {
		log.Fatalf("backend client: %v", err)
	}

	// --- deck core ---
	st := store.NewSlideStore()
	sync := deck.NewSynchronizer(st, client, cfg.Recommend.Language)

	// --- drafts ---
	draftStore, err := drafts.Open(cfg.Drafts.Path)
	if err != nil {
		log.Fatalf("drafts: %v", err)
	}
	defer draftStore.Close()

	// --- WS hub & event bridge ---
	hub := ws.NewHub()

	var liveCtl *live.Controller
	var tracker *presence.Tracker

	wsServer := ws.NewServer(hub, func() []ws.Message {
		sessionID := ""
		if details, ok := liveCtl.Session(); ok {
			sessionID = details.SessionID
		}
		msgs := []ws.Message{{
			Type: ws.TypeRoster,
			Payload: ws.RosterPayload{
				SessionID:    sessionID,
				Participants: tracker.Roster(),
			},
		}}
		for _, b := range st.Batches() {
			msgs = append(msgs, ws.Message{
				Type:    ws.TypeBatch,
				Payload: ws.BatchPayload{Label: b.Label, Slides: b.Slides},
			})
		}
		return msgs
	})

	// --- presence ---
	tracker = presence.NewTracker(
		func(sessionID string) presence.Stream {
			return presence.NewSSEStream(client.EventsURL(sessionID), client.AuthHeader())
		},
		func(n presence.Notification) {
			sessionID := ""
			if details, ok := liveCtl.Session(); ok {
				sessionID = details.SessionID
			}
			wsServer.PublishPresence(sessionID, n)
		},
	)
	tracker.OnStateChange(func(sessionID string, s presence.State) {
		wsServer.PublishPresenceState(sessionID, s)
	})
	defer tracker.Close()

	// --- audio ---
	var (
		recorder live.Recorder
		source   *audio.Source
	)
	if cfg.Audio.Enabled {
		source, err = audio.NewSource(cfg.Audio.Backend, cfg.Audio.Device, cfg.Audio.Dir)
		if err != nil {
			slog.Warn("audio capture unavailable", "err", err)
		} else {
			recorder = audio.NewDual(source)
		}
	}

	// --- recommendation pipeline ---
	var pipeline live.Recommender
	if dual, ok := recorder.(*audio.Dual); ok {
		pipeline = recommend.New(recommend.Options{
			Recorder:    dual,
			Transcriber: client,
			Generator:   client,
			Sink:        batchSink{store: st, events: wsServer},
			Language:    cfg.Recommend.Language,
			Interval:    cfg.RecommendInterval(),
		})
	}

	// --- live controller ---
	liveCtl = live.NewController(live.Options{
		Backend:     client,
		Store:       st,
		Tracker:     tracker,
		Recorder:    recorder,
		Pipeline:    pipeline,
		Transcriber: client,
	})
	defer liveCtl.Close()

	// --- HTTP ---
	var exporter httpx.Exporter
	if source != nil {
		exporter = source
	}
	handler := httpx.NewHandler(st, sync, liveCtl, tracker, draftStore, exporter, wsServer)
	router := httpx.NewRouter(handler, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	liveCtl.Close()
	slog.Info("stopped")
}

// batchSink forwards finished batches to the store and mirrors them to
// attached UIs.
type batchSink struct {
	store  *store.SlideStore
	events *ws.Server
}

func (s batchSink) AppendBatch(b domain.RecommendationBatch) {
	s.store.AppendBatch(b)
	s.events.PublishBatch(b)
}
