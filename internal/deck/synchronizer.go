package deck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/voltclass/presenterd/internal/api"
	"github.com/voltclass/presenterd/internal/domain"
	"github.com/voltclass/presenterd/internal/store"
)

// Backend is the slice of the API client the synchronizer depends on.
type Backend interface {
	GetPresentation(ctx context.Context, id string) (api.PresentationResponse, error)
	CreatePresentation(ctx context.Context, req api.SavePresentationRequest) (api.PresentationResponse, error)
	UpdatePresentation(ctx context.Context, id string, req api.SavePresentationRequest) (api.PresentationResponse, error)
	InsertSlide(ctx context.Context, sessionID string, req api.InsertSlideRequest) ([]api.SlideItem, error)
	UploadContent(ctx context.Context, fileID string, blob []byte) error
	GetContent(ctx context.Context, fileID string) ([]byte, error)
	RegenerateSlide(ctx context.Context, language, instruction string, current json.RawMessage) (api.RegenerateResponse, error)
	GenerateSlides(ctx context.Context, language, text string) (api.GenerateResponse, error)
}

// Synchronizer keeps the slide store consistent with the authoritative
// slide list the backend holds, across bulk save, live quick-question
// insertion and single-slide regeneration.
type Synchronizer struct {
	store    *store.SlideStore
	backend  Backend
	language string
}

func NewSynchronizer(st *store.SlideStore, backend Backend, language string) *Synchronizer {
	if language == "" {
		language = "en"
	}
	return &Synchronizer{store: st, backend: backend, language: language}
}

// pending pairs one local slide with its wire payload by position. The
// index pairing is what lets server-issued ids be reconciled after the
// call: new slides have no identifier the backend could echo back.
type pending struct {
	index   int
	local   *domain.Slide
	payload api.SlidePayload
	isNew   bool
}

// Save pushes the whole deck. presentationID is empty for a first save.
// Returns the (possibly new) presentation id.
//
// Any single content upload failing aborts the save before the backend
// call, and a failed backend call leaves the store untouched.
func (s *Synchronizer) Save(ctx context.Context, presentationID, title string) (string, error) {
	if !s.store.TryBeginSave() {
		return "", domain.ErrSaveInProgress
	}
	defer s.store.EndSave()

	local := s.store.Slides()
	orig := s.store.OriginalIDs()

	pendings := make([]pending, 0, len(local))
	for i, sl := range local {
		p, err := s.prepare(ctx, i, sl, orig)
		if err != nil {
			return "", fmt.Errorf("prepare slide %d: %w", i, err)
		}
		pendings = append(pendings, p)
	}

	req := api.SavePresentationRequest{
		Title:         title,
		AddedSlides:   []api.SlidePayload{},
		UpdatedSlides: []api.SlidePayload{},
		DeletedSlides: deletedRefs(orig, local),
	}
	for _, p := range pendings {
		if p.isNew {
			req.AddedSlides = append(req.AddedSlides, p.payload)
		} else {
			req.UpdatedSlides = append(req.UpdatedSlides, p.payload)
		}
	}

	var (
		resp api.PresentationResponse
		err  error
	)
	editing := presentationID != ""
	if editing {
		resp, err = s.backend.UpdatePresentation(ctx, presentationID, req)
	} else {
		resp, err = s.backend.CreatePresentation(ctx, req)
	}
	if err != nil {
		return "", err
	}

	merged := s.mergeSaved(resp.Slides, pendings)
	s.store.ReplaceAll(merged)

	ids := make([]string, 0, len(merged))
	for _, sl := range merged {
		ids = append(ids, sl.ID)
	}
	s.store.SetOriginalIDs(ids)

	return resp.ID, nil
}

// Load fetches a presentation and replaces the working deck with it,
// resetting the original-ID baseline. Returns the deck title.
func (s *Synchronizer) Load(ctx context.Context, presentationID string) (string, error) {
	resp, err := s.backend.GetPresentation(ctx, presentationID)
	if err != nil {
		return "", err
	}
	s.store.Load(s.rebuild(ctx, resp.Slides))
	return resp.Title, nil
}

// prepare uploads canvas content and builds the wire payload for one slide.
func (s *Synchronizer) prepare(ctx context.Context, index int, sl *domain.Slide, orig map[string]struct{}) (pending, error) {
	_, existed := orig[sl.ID]
	isNew := !existed

	payload := api.SlidePayload{
		SlideOrder: index,
		Type:       string(sl.Type),
	}
	if !isNew {
		id := sl.ID
		payload.ID = &id
	}

	switch {
	case sl.Type == domain.SlideCanvas:
		fileID := sl.FileID
		if fileID == "" {
			fileID = uuid.NewString()
			sl.FileID = fileID
		}
		blob, err := json.Marshal(sl.Canvas)
		if err != nil {
			return pending{}, fmt.Errorf("encode canvas: %w", err)
		}
		if err := s.backend.UploadContent(ctx, fileID, blob); err != nil {
			return pending{}, fmt.Errorf("upload content: %w", err)
		}
		payload.FileID = fileID

	case sl.IsQuestion():
		q := &api.QuestionPayload{
			Text:   sl.Question.Text,
			Answer: sl.Question.Answer,
		}
		// option ids are nulled under a new parent so the backend issues
		// fresh ones
		if !isNew && sl.Question.ID != "" {
			id := sl.Question.ID
			q.ID = &id
		}
		for _, opt := range sl.Question.Options {
			op := api.OptionPayload{Text: opt.Text, Correct: opt.Correct}
			if !isNew && opt.ID != "" {
				id := opt.ID
				op.ID = &id
			}
			q.Options = append(q.Options, op)
		}
		payload.Question = q
	}

	return pending{index: index, local: sl, payload: payload, isNew: isNew}, nil
}

// mergeSaved joins the backend's authoritative shells back onto the local
// rich content. The join key is slide_order against the pre-save index:
// the deck was sent in order, so the shell at order k describes the local
// slide that sat at index k.
func (s *Synchronizer) mergeSaved(items []api.SlideItem, pendings []pending) []*domain.Slide {
	merged := make([]*domain.Slide, 0, len(items))
	for _, item := range items {
		idx := item.SlideOrder
		if idx < 0 || idx >= len(pendings) {
			// more slides than we sent; keep whatever the backend knows
			slog.Warn("save response slide outside sent range", "id", item.ID, "order", item.SlideOrder)
			merged = append(merged, slideFromItem(item, nil))
			continue
		}
		sl := pendings[idx].local.Clone()
		sl.ID = item.ID
		sl.Order = item.SlideOrder
		if item.FileID != "" {
			sl.FileID = item.FileID
		}
		if sl.IsQuestion() && item.Question != nil && sl.Question != nil {
			sl.Question.ID = item.Question.ID
			for i := range sl.Question.Options {
				if i < len(item.Question.Options) {
					sl.Question.Options[i].ID = item.Question.Options[i].ID
				}
			}
		}
		merged = append(merged, sl)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Order < merged[j].Order })
	return merged
}

// InsertQuickQuestion pushes a freshly authored question slide into the
// running session. The backend answers with the entire slide list, which
// replaces the local deck; the displayed slide stays where it was.
func (s *Synchronizer) InsertQuickQuestion(ctx context.Context, sessionID string, sl *domain.Slide, placement domain.Placement) error {
	if !sl.IsQuestion() {
		return domain.ErrNotQuestionSlide
	}

	insertAfter := s.store.Len() - 1
	if placement == domain.PlaceNext {
		cur, ok := s.store.Current()
		if !ok {
			return domain.ErrSlideNotFound
		}
		insertAfter = cur.Order
	}

	payload := api.SlidePayload{
		SlideOrder: insertAfter + 1,
		Type:       string(sl.Type),
		Question:   &api.QuestionPayload{Text: sl.Question.Text, Answer: sl.Question.Answer},
	}
	for _, opt := range sl.Question.Options {
		payload.Question.Options = append(payload.Question.Options, api.OptionPayload{Text: opt.Text, Correct: opt.Correct})
	}

	items, err := s.backend.InsertSlide(ctx, sessionID, api.InsertSlideRequest{
		InsertAfterIndex: insertAfter,
		Slide:            payload,
	})
	if err != nil {
		return err
	}

	s.store.ReplaceAll(s.rebuild(ctx, items))
	return nil
}

// rebuild materialises the backend's full slide list. Question slides carry
// their content inline; canvas content is fetched from storage and defaults
// to an empty scene on any failure, never an error.
func (s *Synchronizer) rebuild(ctx context.Context, items []api.SlideItem) []*domain.Slide {
	sort.Slice(items, func(i, j int) bool { return items[i].SlideOrder < items[j].SlideOrder })

	out := make([]*domain.Slide, 0, len(items))
	for _, item := range items {
		var canvas *domain.CanvasContent
		if domain.SlideType(item.Type) == domain.SlideCanvas {
			canvas = s.fetchCanvas(ctx, item.FileID)
		}
		out = append(out, slideFromItem(item, canvas))
	}
	return out
}

func (s *Synchronizer) fetchCanvas(ctx context.Context, fileID string) *domain.CanvasContent {
	if fileID == "" {
		return domain.EmptyCanvas()
	}
	blob, err := s.backend.GetContent(ctx, fileID)
	if err != nil {
		slog.Warn("fetch canvas content failed, using empty scene", "file_id", fileID, "err", err)
		return domain.EmptyCanvas()
	}
	var content domain.CanvasContent
	if err := json.Unmarshal(blob, &content); err != nil {
		slog.Warn("decode canvas content failed, using empty scene", "file_id", fileID, "err", err)
		return domain.EmptyCanvas()
	}
	return &content
}

// Regenerate rewrites one canvas slide from a free-text instruction. The
// returned view state wins on key conflicts; attached files are untouched.
func (s *Synchronizer) Regenerate(ctx context.Context, slideID, instruction string) error {
	sl, ok := s.store.Get(slideID)
	if !ok {
		return domain.ErrSlideNotFound
	}
	if sl.IsQuestion() {
		return domain.ErrNotCanvasSlide
	}

	current, err := json.Marshal(sl.Canvas)
	if err != nil {
		return fmt.Errorf("encode canvas: %w", err)
	}
	resp, err := s.backend.RegenerateSlide(ctx, s.language, instruction, current)
	if err != nil {
		return err
	}

	// the response crossed a JSON boundary, so its collaborator set arrives
	// as a plain object; unmarshalling into AppState restores the map shape
	var incoming domain.AppState
	if len(resp.AppState) > 0 {
		if err := json.Unmarshal(resp.AppState, &incoming); err != nil {
			return fmt.Errorf("decode regenerated view state: %w", err)
		}
	}

	merged := &domain.CanvasContent{
		Elements: resp.Elements,
		AppState: domain.MergeAppState(sl.Canvas.AppState, incoming),
		Files:    sl.Canvas.Files,
	}
	return s.store.UpdateCanvas(slideID, merged)
}

// GenerateFromText asks the AI service for deck suggestions from free
// text (an imported document) and appends the materialized slides.
// Returns how many slides were added.
func (s *Synchronizer) GenerateFromText(ctx context.Context, text string) (int, error) {
	resp, err := s.backend.GenerateSlides(ctx, s.language, text)
	if err != nil {
		return 0, err
	}
	slides := Materialize(resp, s.store.Len())
	for _, sl := range slides {
		s.store.Append(sl)
	}
	return len(slides), nil
}

func deletedRefs(orig map[string]struct{}, local []*domain.Slide) []api.SlideRef {
	present := make(map[string]struct{}, len(local))
	for _, sl := range local {
		present[sl.ID] = struct{}{}
	}
	refs := []api.SlideRef{}
	for id := range orig {
		if _, ok := present[id]; !ok {
			refs = append(refs, api.SlideRef{ID: id})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

func slideFromItem(item api.SlideItem, canvas *domain.CanvasContent) *domain.Slide {
	sl := &domain.Slide{
		ID:     item.ID,
		Order:  item.SlideOrder,
		Type:   domain.SlideType(item.Type),
		FileID: item.FileID,
	}
	switch {
	case sl.IsQuestion():
		q := &domain.Question{}
		if item.Question != nil {
			q.ID = item.Question.ID
			q.Text = item.Question.Text
			q.Answer = item.Question.Answer
			for _, opt := range item.Question.Options {
				q.Options = append(q.Options, domain.Option{ID: opt.ID, Text: opt.Text, Correct: opt.Correct})
			}
		}
		sl.Question = q
	default:
		if canvas == nil {
			canvas = domain.EmptyCanvas()
		}
		sl.Canvas = canvas
	}
	return sl
}
