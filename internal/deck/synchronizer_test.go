package deck

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/voltclass/presenterd/internal/api"
	"github.com/voltclass/presenterd/internal/domain"
	"github.com/voltclass/presenterd/internal/store"
)

type fakeBackend struct {
	uploads    map[string][]byte
	uploadErr  error
	contents   map[string][]byte
	contentErr error

	saveReq    api.SavePresentationRequest
	saveResp   api.PresentationResponse
	saveErr    error
	creates    int
	updates    int
	updatedID  string
	insertReq  api.InsertSlideRequest
	insertResp []api.SlideItem
	insertErr  error

	regenInstruction string
	regenCurrent     json.RawMessage
	regenResp        api.RegenerateResponse
	regenErr         error

	generateResp api.GenerateResponse
	generateErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		uploads:  map[string][]byte{},
		contents: map[string][]byte{},
	}
}

func (f *fakeBackend) GetPresentation(_ context.Context, _ string) (api.PresentationResponse, error) {
	return f.saveResp, f.saveErr
}

func (f *fakeBackend) GenerateSlides(_ context.Context, _, _ string) (api.GenerateResponse, error) {
	return f.generateResp, f.generateErr
}

func (f *fakeBackend) CreatePresentation(_ context.Context, req api.SavePresentationRequest) (api.PresentationResponse, error) {
	f.creates++
	f.saveReq = req
	return f.saveResp, f.saveErr
}

func (f *fakeBackend) UpdatePresentation(_ context.Context, id string, req api.SavePresentationRequest) (api.PresentationResponse, error) {
	f.updates++
	f.updatedID = id
	f.saveReq = req
	return f.saveResp, f.saveErr
}

func (f *fakeBackend) InsertSlide(_ context.Context, _ string, req api.InsertSlideRequest) ([]api.SlideItem, error) {
	f.insertReq = req
	return f.insertResp, f.insertErr
}

func (f *fakeBackend) UploadContent(_ context.Context, fileID string, blob []byte) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads[fileID] = blob
	return nil
}

func (f *fakeBackend) GetContent(_ context.Context, fileID string) ([]byte, error) {
	if f.contentErr != nil {
		return nil, f.contentErr
	}
	blob, ok := f.contents[fileID]
	if !ok {
		return nil, errors.New("no such blob")
	}
	return blob, nil
}

func (f *fakeBackend) RegenerateSlide(_ context.Context, _, instruction string, current json.RawMessage) (api.RegenerateResponse, error) {
	f.regenInstruction = instruction
	f.regenCurrent = current
	return f.regenResp, f.regenErr
}

// Scenario: first save of a fresh deck with one canvas and one quiz slide.
func TestSaveNewPresentation(t *testing.T) {
	st := store.NewSlideStore()
	canvas := domain.NewCanvasSlide(0)
	canvas.Canvas.Elements = []json.RawMessage{json.RawMessage(`{"type":"rect"}`)}
	st.Append(canvas)
	st.Append(domain.NewQuizSlide(1, "2+2?", []domain.Option{
		{Text: "3"},
		{Text: "4", Correct: true},
	}))

	backend := newFakeBackend()
	backend.saveResp = api.PresentationResponse{
		ID: "p1",
		Slides: []api.SlideItem{
			{ID: "s1", SlideOrder: 0, Type: "canvas", FileID: "f1"},
			{ID: "s2", SlideOrder: 1, Type: "quiz", Question: &api.QuestionItem{
				ID: "q1", Text: "2+2?",
				Options: []api.OptionItem{{ID: "o1", Text: "3"}, {ID: "o2", Text: "4", Correct: true}},
			}},
		},
	}

	sync := NewSynchronizer(st, backend, "en")
	id, err := sync.Save(context.Background(), "", "My deck")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id != "p1" {
		t.Fatalf("presentation id = %q", id)
	}
	if backend.creates != 1 || backend.updates != 0 {
		t.Fatalf("expected create path, got creates=%d updates=%d", backend.creates, backend.updates)
	}

	req := backend.saveReq
	if len(req.AddedSlides) != 2 || len(req.UpdatedSlides) != 0 || len(req.DeletedSlides) != 0 {
		t.Fatalf("partition wrong: added=%d updated=%d deleted=%d",
			len(req.AddedSlides), len(req.UpdatedSlides), len(req.DeletedSlides))
	}
	if req.AddedSlides[0].ID != nil || req.AddedSlides[1].ID != nil {
		t.Fatal("new slides must go out with null ids")
	}
	quiz := req.AddedSlides[1].Question
	if quiz == nil || quiz.ID != nil {
		t.Fatal("question id of a new slide must be null")
	}
	for _, opt := range quiz.Options {
		if opt.ID != nil {
			t.Fatal("option ids of a new slide must be null")
		}
	}
	if len(backend.uploads) != 1 {
		t.Fatalf("expected exactly one content upload, got %d", len(backend.uploads))
	}

	// post-save state: authoritative ids, local content intact
	slides := st.Slides()
	if len(slides) != 2 {
		t.Fatalf("deck length %d", len(slides))
	}
	if slides[0].ID != "s1" || slides[1].ID != "s2" {
		t.Fatalf("ids not adopted: %q %q", slides[0].ID, slides[1].ID)
	}
	if len(slides[0].Canvas.Elements) != 1 {
		t.Fatal("canvas content lost in merge")
	}
	if slides[1].Question.Text != "2+2?" || slides[1].Question.Options[1].ID != "o2" {
		t.Fatalf("question content/ids wrong: %+v", slides[1].Question)
	}

	orig := st.OriginalIDs()
	if len(orig) != 2 {
		t.Fatalf("original-ID set size %d", len(orig))
	}
	for _, id := range []string{"s1", "s2"} {
		if _, ok := orig[id]; !ok {
			t.Fatalf("original-ID set missing %q", id)
		}
	}
}

// Scenario: edit of {a,b,c} with b deleted and one slide added.
func TestSaveEditPartition(t *testing.T) {
	st := store.NewSlideStore()
	st.Load([]*domain.Slide{
		{ID: "a", Type: domain.SlideCanvas, Canvas: domain.EmptyCanvas(), FileID: "fa"},
		{ID: "b", Type: domain.SlideCanvas, Canvas: domain.EmptyCanvas(), FileID: "fb"},
		{ID: "c", Type: domain.SlideQuiz, Question: &domain.Question{ID: "qc", Text: "?"}},
	})
	if err := st.Delete("b"); err != nil {
		t.Fatal(err)
	}
	st.Append(domain.NewCanvasSlide(2))

	backend := newFakeBackend()
	backend.saveResp = api.PresentationResponse{
		ID: "p1",
		Slides: []api.SlideItem{
			{ID: "a", SlideOrder: 0, Type: "canvas", FileID: "fa"},
			{ID: "c", SlideOrder: 1, Type: "quiz", Question: &api.QuestionItem{ID: "qc", Text: "?"}},
			{ID: "d", SlideOrder: 2, Type: "canvas", FileID: "fd"},
		},
	}

	sync := NewSynchronizer(st, backend, "en")
	if _, err := sync.Save(context.Background(), "p1", ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	if backend.updates != 1 || backend.updatedID != "p1" {
		t.Fatalf("expected update of p1, got updates=%d id=%q", backend.updates, backend.updatedID)
	}

	req := backend.saveReq
	if len(req.DeletedSlides) != 1 || req.DeletedSlides[0].ID != "b" {
		t.Fatalf("deleted_slides = %+v", req.DeletedSlides)
	}
	if len(req.AddedSlides) != 1 {
		t.Fatalf("added_slides = %d", len(req.AddedSlides))
	}
	if len(req.UpdatedSlides) != 2 {
		t.Fatalf("updated_slides = %d", len(req.UpdatedSlides))
	}
	for _, p := range req.UpdatedSlides {
		if p.ID == nil || (*p.ID != "a" && *p.ID != "c") {
			t.Fatalf("unexpected updated slide %+v", p)
		}
	}

	orig := st.OriginalIDs()
	if _, ok := orig["b"]; ok {
		t.Fatal("deleted id survived the baseline refresh")
	}
	if _, ok := orig["d"]; !ok {
		t.Fatal("new id missing from refreshed baseline")
	}
}

func TestSaveAbortsWhenUploadFails(t *testing.T) {
	st := store.NewSlideStore()
	st.Append(domain.NewCanvasSlide(0))
	before := st.Slides()

	backend := newFakeBackend()
	backend.uploadErr = errors.New("storage down")

	sync := NewSynchronizer(st, backend, "en")
	if _, err := sync.Save(context.Background(), "", ""); err == nil {
		t.Fatal("expected save to fail")
	}
	if backend.creates != 0 || backend.updates != 0 {
		t.Fatal("backend save must not be attempted after an upload failure")
	}
	after := st.Slides()
	if len(after) != len(before) || after[0].ID != before[0].ID {
		t.Fatal("failed save mutated local state")
	}
}

func TestSaveNetworkFailureLeavesStateUntouched(t *testing.T) {
	st := store.NewSlideStore()
	st.Load([]*domain.Slide{{ID: "a", Type: domain.SlideQuiz, Question: &domain.Question{Text: "?"}}})

	backend := newFakeBackend()
	backend.saveErr = errors.New("503")

	sync := NewSynchronizer(st, backend, "en")
	if _, err := sync.Save(context.Background(), "p1", ""); err == nil {
		t.Fatal("expected save to fail")
	}
	if len(st.OriginalIDs()) != 1 {
		t.Fatal("original-ID set changed on failed save")
	}
	if st.Len() != 1 {
		t.Fatal("deck changed on failed save")
	}
}

func TestSaveIsMutuallyExclusive(t *testing.T) {
	st := store.NewSlideStore()
	if !st.TryBeginSave() {
		t.Fatal("setup claim failed")
	}
	sync := NewSynchronizer(st, newFakeBackend(), "en")
	if _, err := sync.Save(context.Background(), "", ""); !errors.Is(err, domain.ErrSaveInProgress) {
		t.Fatalf("want ErrSaveInProgress, got %v", err)
	}
}

// Scenario: quick question with "next" while slide at order 2 of 5 is shown.
func TestInsertQuickQuestionNext(t *testing.T) {
	st := store.NewSlideStore()
	ids := []string{"s0", "s1", "s2", "s3", "s4"}
	slides := make([]*domain.Slide, 0, len(ids))
	for _, id := range ids {
		slides = append(slides, &domain.Slide{ID: id, Type: domain.SlideCanvas, Canvas: domain.EmptyCanvas(), FileID: "f-" + id})
	}
	st.Load(slides)
	if err := st.Select("s2"); err != nil {
		t.Fatal(err)
	}

	backend := newFakeBackend()
	for _, id := range ids {
		backend.contents["f-"+id] = []byte(`{"elements":[],"appState":{}}`)
	}
	var resp []api.SlideItem
	for i, id := range []string{"s0", "s1", "s2", "new", "s3", "s4"} {
		item := api.SlideItem{ID: id, SlideOrder: i, Type: "canvas", FileID: "f-" + id}
		if id == "new" {
			item.Type = "quiz"
			item.FileID = ""
			item.Question = &api.QuestionItem{ID: "qn", Text: "pop quiz"}
		}
		resp = append(resp, item)
	}
	backend.insertResp = resp

	sync := NewSynchronizer(st, backend, "en")
	q := domain.NewQuizSlide(0, "pop quiz", []domain.Option{{Text: "a", Correct: true}})
	if err := sync.InsertQuickQuestion(context.Background(), "sess", q, domain.PlaceNext); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if backend.insertReq.InsertAfterIndex != 2 {
		t.Fatalf("insert_after_index = %d, want 2", backend.insertReq.InsertAfterIndex)
	}

	cur, ok := st.Current()
	if !ok || cur.ID != "s2" {
		t.Fatalf("displayed slide changed: %+v", cur)
	}
	got := st.Slides()
	if len(got) != 6 || got[3].ID != "new" || got[3].Question.Text != "pop quiz" {
		t.Fatalf("deck not rebuilt from full list: %+v", got)
	}
	for i, sl := range got {
		if sl.Order != i {
			t.Fatalf("dense order broken at %d", i)
		}
	}
}

func TestInsertQuickQuestionEnd(t *testing.T) {
	st := store.NewSlideStore()
	st.Load([]*domain.Slide{
		{ID: "s0", Type: domain.SlideCanvas, Canvas: domain.EmptyCanvas()},
		{ID: "s1", Type: domain.SlideCanvas, Canvas: domain.EmptyCanvas()},
	})

	backend := newFakeBackend()
	backend.insertResp = []api.SlideItem{
		{ID: "s0", SlideOrder: 0, Type: "canvas"},
		{ID: "s1", SlideOrder: 1, Type: "canvas"},
		{ID: "new", SlideOrder: 2, Type: "feedback", Question: &api.QuestionItem{Text: "thoughts?"}},
	}

	sync := NewSynchronizer(st, backend, "en")
	f := domain.NewFeedbackSlide(0, "thoughts?", nil)
	if err := sync.InsertQuickQuestion(context.Background(), "sess", f, domain.PlaceEnd); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if backend.insertReq.InsertAfterIndex != 1 {
		t.Fatalf("insert_after_index = %d, want 1 (last index)", backend.insertReq.InsertAfterIndex)
	}
}

func TestInsertRebuildSurvivesContentFetchFailure(t *testing.T) {
	st := store.NewSlideStore()
	st.Load([]*domain.Slide{{ID: "s0", Type: domain.SlideCanvas, Canvas: domain.EmptyCanvas(), FileID: "f0"}})

	backend := newFakeBackend()
	backend.contentErr = errors.New("storage flaking")
	backend.insertResp = []api.SlideItem{
		{ID: "s0", SlideOrder: 0, Type: "canvas", FileID: "f0"},
		{ID: "new", SlideOrder: 1, Type: "quiz", Question: &api.QuestionItem{Text: "?"}},
	}

	sync := NewSynchronizer(st, backend, "en")
	q := domain.NewQuizSlide(0, "?", nil)
	if err := sync.InsertQuickQuestion(context.Background(), "sess", q, domain.PlaceEnd); err != nil {
		t.Fatalf("insert must not fail on content fetch: %v", err)
	}
	got := st.Slides()
	if got[0].Canvas == nil || len(got[0].Canvas.Elements) != 0 {
		t.Fatal("canvas slide should fall back to an empty scene")
	}
}

func TestRegenerateRejectsQuestionSlides(t *testing.T) {
	st := store.NewSlideStore()
	st.Load([]*domain.Slide{{ID: "q", Type: domain.SlideQuiz, Question: &domain.Question{Text: "?"}}})

	backend := newFakeBackend()
	sync := NewSynchronizer(st, backend, "en")

	err := sync.Regenerate(context.Background(), "q", "make it nicer")
	if !errors.Is(err, domain.ErrNotCanvasSlide) {
		t.Fatalf("want ErrNotCanvasSlide, got %v", err)
	}
	if backend.regenInstruction != "" {
		t.Fatal("network must not be touched for question slides")
	}
}

func TestRegenerateMergesViewState(t *testing.T) {
	st := store.NewSlideStore()
	sl := domain.NewCanvasSlide(0)
	sl.ID = "c1"
	sl.Canvas.Elements = []json.RawMessage{json.RawMessage(`{"type":"old"}`)}
	sl.Canvas.AppState.SetExtra("gridSize", json.RawMessage(`20`))
	sl.Canvas.AppState.SetExtra("viewBackgroundColor", json.RawMessage(`"#fff"`))
	sl.Canvas.Files = map[string]json.RawMessage{"img1": json.RawMessage(`{"mimeType":"image/png"}`)}
	st.Load([]*domain.Slide{sl})

	backend := newFakeBackend()
	backend.regenResp = api.RegenerateResponse{
		Elements: []json.RawMessage{json.RawMessage(`{"type":"new"}`)},
		AppState: json.RawMessage(`{"viewBackgroundColor":"#000","collaborators":{"s1":{"username":"x"}}}`),
	}

	sync := NewSynchronizer(st, backend, "en")
	if err := sync.Regenerate(context.Background(), "c1", "dark mode please"); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if backend.regenInstruction != "dark mode please" {
		t.Fatalf("instruction not forwarded: %q", backend.regenInstruction)
	}
	if len(backend.regenCurrent) == 0 {
		t.Fatal("current content not sent as initial_data")
	}

	got, _ := st.Get("c1")
	if string(got.Canvas.Elements[0]) != `{"type":"new"}` {
		t.Fatal("elements not replaced")
	}
	if v, _ := got.Canvas.AppState.Extra("viewBackgroundColor"); string(v) != `"#000"` {
		t.Fatal("returned view state must win on conflicts")
	}
	if _, ok := got.Canvas.AppState.Extra("gridSize"); !ok {
		t.Fatal("untouched view-state keys must survive")
	}
	if got.Canvas.AppState.Collaborators.Len() != 1 {
		t.Fatal("collaborators not reconstructed into the map shape")
	}
	if _, ok := got.Canvas.Files["img1"]; !ok {
		t.Fatal("attached files must be preserved")
	}
}

func TestMaterializePrefersQuizForOptionQuestions(t *testing.T) {
	resp := api.GenerateResponse{
		Slides: []api.GeneratedSlide{{Elements: []json.RawMessage{json.RawMessage(`{}`)}}},
	}
	resp.Assessment.Questions = []api.GeneratedQuestion{
		{Text: "pick one", Options: []string{"a", "b"}, Answer: "b"},
		{Text: "free form"},
	}

	slides := Materialize(resp, 0)
	if len(slides) != 3 {
		t.Fatalf("materialized %d slides", len(slides))
	}
	if slides[0].Type != domain.SlideCanvas {
		t.Fatalf("slide 0 type %s", slides[0].Type)
	}
	if slides[1].Type != domain.SlideQuiz || !slides[1].Question.Options[1].Correct {
		t.Fatalf("quiz materialization wrong: %+v", slides[1])
	}
	if slides[2].Type != domain.SlideFeedback {
		t.Fatalf("optionless question should become feedback, got %s", slides[2].Type)
	}
	for i, sl := range slides {
		if sl.Order != i {
			t.Fatalf("order %d at index %d", sl.Order, i)
		}
	}
}

func TestLoadReplacesDeckAndBaseline(t *testing.T) {
	st := store.NewSlideStore()
	st.Append(domain.NewCanvasSlide(0)) // leftover working state

	backend := newFakeBackend()
	backend.contents["f1"] = []byte(`{"elements":[{"type":"rect"}],"appState":{},"files":{}}`)
	backend.saveResp = api.PresentationResponse{
		ID:    "pres-1",
		Title: "Algorithms",
		Slides: []api.SlideItem{
			{ID: "s2", SlideOrder: 1, Type: "quiz", Question: &api.QuestionItem{ID: "q1", Text: "?"}},
			{ID: "s1", SlideOrder: 0, Type: "canvas", FileID: "f1"},
		},
	}

	sync := NewSynchronizer(st, backend, "en")
	title, err := sync.Load(context.Background(), "pres-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if title != "Algorithms" {
		t.Errorf("title = %q", title)
	}

	slides := st.Slides()
	if len(slides) != 2 || slides[0].ID != "s1" || slides[1].ID != "s2" {
		t.Fatalf("deck = %+v", slides)
	}
	if len(slides[0].Canvas.Elements) != 1 {
		t.Error("canvas content not fetched")
	}

	orig := st.OriginalIDs()
	if _, ok := orig["s1"]; !ok {
		t.Error("baseline missing loaded id")
	}
	if len(orig) != 2 {
		t.Errorf("baseline size = %d, want 2", len(orig))
	}
}
