package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/voltclass/presenterd/internal/deck"
	"github.com/voltclass/presenterd/internal/domain"
	"github.com/voltclass/presenterd/internal/drafts"
	"github.com/voltclass/presenterd/internal/live"
	"github.com/voltclass/presenterd/internal/presence"
	"github.com/voltclass/presenterd/internal/store"
	"github.com/voltclass/presenterd/internal/transport/ws"
	"github.com/voltclass/presenterd/pkg/errs"
	"github.com/voltclass/presenterd/pkg/httputil"
)

// Exporter transcodes a recorded clip for download (audio.Source).
type Exporter interface {
	ExportMP3(ctx context.Context, clipPath string) string
}

type Handler struct {
	store    *store.SlideStore
	sync     *deck.Synchronizer
	live     *live.Controller
	tracker  *presence.Tracker
	drafts   *drafts.Store
	exporter Exporter
	events   *ws.Server // optional
}

func NewHandler(
	st *store.SlideStore,
	sync *deck.Synchronizer,
	liveCtl *live.Controller,
	tracker *presence.Tracker,
	draftStore *drafts.Store,
	exporter Exporter,
	events *ws.Server,
) *Handler {
	return &Handler{
		store:    st,
		sync:     sync,
		live:     liveCtl,
		tracker:  tracker,
		drafts:   draftStore,
		exporter: exporter,
		events:   events,
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, slog.Any("err", err))
	}
	httputil.Error(r.Context(), w, status, err.Error(), nil)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrSlideNotFound),
		errors.Is(err, domain.ErrBatchNotFound),
		errors.Is(err, drafts.ErrDraftNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSaveInProgress),
		errors.Is(err, domain.ErrSessionActive),
		errors.Is(err, domain.ErrNoActiveSession):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotCanvasSlide),
		errors.Is(err, domain.ErrNotQuestionSlide),
		errors.Is(err, domain.ErrTranscriptEmpty):
		return http.StatusBadRequest
	default:
		return errs.ToHTTP(err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid json", nil)
		return false
	}
	return true
}

// GET /deck
func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.store.Slides())
}

// POST /deck/slides
func (h *Handler) CreateSlide(w http.ResponseWriter, r *http.Request) {
	var req CreateSlideRequest
	if !decodeBody(w, r, &req) {
		return
	}

	opts := make([]domain.Option, 0, len(req.Options))
	for _, o := range req.Options {
		opts = append(opts, domain.Option{Text: o.Text, Correct: o.Correct})
	}

	var sl *domain.Slide
	switch domain.SlideType(req.Type) {
	case domain.SlideQuiz:
		sl = domain.NewQuizSlide(0, req.Text, opts)
		sl.Question.Answer = req.Answer
	case domain.SlideFeedback:
		sl = domain.NewFeedbackSlide(0, req.Text, opts)
	case domain.SlideCanvas, "":
		sl = domain.NewCanvasSlide(0)
	default:
		httputil.Error(r.Context(), w, http.StatusBadRequest, "unknown slide type", nil)
		return
	}

	if req.At != nil {
		h.store.InsertAt(*req.At, sl)
	} else {
		h.store.Append(sl)
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{"data": sl})
}

// DELETE /deck/slides/{id}
func (h *Handler) DeleteSlide(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "deleted"})
}

// POST /deck/slides/{id}/select
func (h *Handler) SelectSlide(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Select(chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "selected"})
}

// POST /deck/slides/{id}/move
func (h *Handler) MoveSlide(w http.ResponseWriter, r *http.Request) {
	var req MoveSlideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")

	sl, ok := h.store.Get(id)
	if !ok {
		h.fail(w, r, domain.ErrSlideNotFound)
		return
	}
	if err := h.store.Move(sl.Order, req.To); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, h.store.Slides())
}

// PUT /deck/slides/{id}/canvas
func (h *Handler) UpdateCanvas(w http.ResponseWriter, r *http.Request) {
	var content domain.CanvasContent
	if !decodeBody(w, r, &content) {
		return
	}
	if err := h.store.UpdateCanvas(chi.URLParam(r, "id"), &content); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "updated"})
}

// PUT /deck/slides/{id}/question
func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var q domain.Question
	if !decodeBody(w, r, &q) {
		return
	}
	if err := h.store.UpdateQuestion(chi.URLParam(r, "id"), &q); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "updated"})
}

// POST /deck/load
func (h *Handler) LoadDeck(w http.ResponseWriter, r *http.Request) {
	var req LoadDeckRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PresentationID == "" {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "presentation_id is required", nil)
		return
	}

	title, err := h.sync.Load(r.Context(), req.PresentationID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, LoadDeckResponse{Title: title, Slides: h.store.Slides()})
}

// POST /deck/save
func (h *Handler) SaveDeck(w http.ResponseWriter, r *http.Request) {
	var req SaveDeckRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := h.sync.Save(r.Context(), req.PresentationID, req.Title)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if h.drafts != nil && req.PresentationID != "" {
		// the backend holds the authoritative copy now
		if err := h.drafts.Delete(r.Context(), req.PresentationID); err != nil {
			slog.Warn("drop draft after save", slog.Any("err", err))
		}
	}
	httputil.OK(w, SaveDeckResponse{PresentationID: id})
}

// POST /deck/generate
func (h *Handler) GenerateDeck(w http.ResponseWriter, r *http.Request) {
	var req GenerateDeckRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "text is required", nil)
		return
	}

	added, err := h.sync.GenerateFromText(r.Context(), req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"added": added, "slides": h.store.Slides()})
}

// POST /deck/slides/{id}/regenerate
func (h *Handler) RegenerateSlide(w http.ResponseWriter, r *http.Request) {
	var req RegenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.sync.Regenerate(r.Context(), chi.URLParam(r, "id"), req.Instruction); err != nil {
		h.fail(w, r, err)
		return
	}
	sl, _ := h.store.Get(chi.URLParam(r, "id"))
	httputil.OK(w, sl)
}

// POST /live/start
func (h *Handler) StartLive(w http.ResponseWriter, r *http.Request) {
	var req StartLiveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PresentationID == "" {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "presentation_id is required", nil)
		return
	}

	details, err := h.live.Start(r.Context(), req.PresentationID, req.Record)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, details)
}

// GET /live
func (h *Handler) GetLive(w http.ResponseWriter, r *http.Request) {
	details, ok := h.live.Session()
	if !ok {
		h.fail(w, r, domain.ErrNoActiveSession)
		return
	}
	httputil.OK(w, map[string]any{
		"session":   details,
		"recording": h.live.Recording(),
	})
}

// POST /live/move
func (h *Handler) MoveLive(w http.ResponseWriter, r *http.Request) {
	var req MoveLiveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.live.MoveTo(r.Context(), req.SlideOrder); err != nil {
		h.fail(w, r, err)
		return
	}
	if h.events != nil {
		h.events.PublishSlideChanged(req.SlideOrder)
	}
	httputil.OK(w, map[string]int{"slide_order": req.SlideOrder})
}

// POST /live/pause
func (h *Handler) PauseLive(w http.ResponseWriter, r *http.Request) {
	if err := h.live.Pause(); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "paused"})
}

// POST /live/resume
func (h *Handler) ResumeLive(w http.ResponseWriter, r *http.Request) {
	if err := h.live.Resume(); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "recording"})
}

// POST /live/finish
func (h *Handler) FinishLive(w http.ResponseWriter, r *http.Request) {
	var req FinishLiveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.live.Finish(r.Context(), req.Background); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "finished"})
}

// POST /live/quick-question inserts a question slide into the running
// session: either one picked from a recommendation batch (batch +
// slide_id) or a freshly authored one (text + options). A batch slide is
// removed from its batch only after the backend accepted the insert.
func (h *Handler) QuickQuestion(w http.ResponseWriter, r *http.Request) {
	var req QuickQuestionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, ok := h.live.Session()
	if !ok {
		h.fail(w, r, domain.ErrNoActiveSession)
		return
	}

	placement := domain.PlaceEnd
	if req.Placement == string(domain.PlaceNext) {
		placement = domain.PlaceNext
	}

	sl, fromBatch, err := h.resolveQuickSlide(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.sync.InsertQuickQuestion(r.Context(), session.SessionID, sl, placement); err != nil {
		h.fail(w, r, err)
		return
	}
	if fromBatch {
		if _, err := h.store.RemoveRecommendation(req.Batch, req.SlideID); err != nil {
			slog.Warn("recommended slide already gone from batch", slog.Any("err", err))
		}
	}
	httputil.OK(w, h.store.Slides())
}

func (h *Handler) resolveQuickSlide(req QuickQuestionRequest) (*domain.Slide, bool, error) {
	if req.SlideID == "" {
		opts := make([]domain.Option, 0, len(req.Options))
		for _, o := range req.Options {
			opts = append(opts, domain.Option{Text: o.Text, Correct: o.Correct})
		}
		sl := domain.NewQuizSlide(0, req.Text, opts)
		sl.Question.Answer = req.Answer
		return sl, false, nil
	}

	batches := h.store.Batches()
	if req.Batch < 0 || req.Batch >= len(batches) {
		return nil, false, domain.ErrBatchNotFound
	}
	for _, sl := range batches[req.Batch].Slides {
		if sl.ID == req.SlideID {
			return sl, true, nil
		}
	}
	return nil, false, domain.ErrSlideNotFound
}

// GET /live/roster
func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, RosterResponse{
		State:        h.tracker.State().String(),
		Participants: h.tracker.Roster(),
	})
}

// GET /batches
func (h *Handler) GetBatches(w http.ResponseWriter, r *http.Request) {
	batches := h.store.Batches()
	items := make([]BatchItem, 0, len(batches))
	for i, b := range batches {
		items = append(items, BatchItem{Index: i, Label: b.Label, Slides: b.Slides})
	}
	httputil.OK(w, items)
}

// DELETE /batches/{index}/slides/{id} dismisses one recommended slide.
func (h *Handler) DismissRecommendation(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid batch index", nil)
		return
	}
	if _, err := h.store.RemoveRecommendation(idx, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "dismissed"})
}

// GET /audio/export serves the session recording, transcoded to MP3 when
// possible and as the raw clip otherwise.
func (h *Handler) ExportAudio(w http.ResponseWriter, r *http.Request) {
	clip, ok := h.live.SessionClip()
	if !ok {
		httputil.Error(r.Context(), w, http.StatusNotFound, "no session recording available", nil)
		return
	}
	path := clip
	if h.exporter != nil {
		path = h.exporter.ExportMP3(r.Context(), clip)
	}
	http.ServeFile(w, r, path)
}

// POST /drafts persists the current working deck locally.
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftSaveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PresentationID == "" {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "presentation_id is required", nil)
		return
	}

	err := h.drafts.Save(r.Context(), drafts.Draft{
		PresentationID: req.PresentationID,
		Title:          req.Title,
		Slides:         h.store.Slides(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "saved"})
}

// GET /drafts
func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	list, err := h.drafts.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]DraftItem, 0, len(list))
	for _, d := range list {
		items = append(items, DraftItem{
			PresentationID: d.PresentationID,
			Title:          d.Title,
			UpdatedAt:      d.UpdatedAt,
		})
	}
	httputil.OK(w, items)
}

// POST /drafts/{id}/restore replaces the working deck with the draft.
func (h *Handler) RestoreDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.drafts.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.store.Load(d.Slides)
	httputil.OK(w, LoadDeckResponse{Title: d.Title, Slides: h.store.Slides()})
}

// DELETE /drafts/{id}
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "deleted"})
}
