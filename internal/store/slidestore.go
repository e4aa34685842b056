package store

import (
	"sync"

	"github.com/voltclass/presenterd/internal/domain"
)

// SlideStore is the single mutable source of truth for the working deck:
// the ordered slide collection, the selection pointer, the original-ID set
// of the loaded presentation and the accumulated recommendation batches.
// Writers are the editor operations below plus the synchronizer's
// post-save/post-insert replacements; nothing else mutates it.
type SlideStore struct {
	mu sync.RWMutex

	slides      []*domain.Slide
	currentID   string
	originalIDs map[string]struct{}
	batches     []domain.RecommendationBatch

	saving bool
}

func NewSlideStore() *SlideStore {
	return &SlideStore{originalIDs: make(map[string]struct{})}
}

// Load replaces the deck with a freshly fetched presentation and captures
// its identifier set as the original-ID baseline for the next save.
func (s *SlideStore) Load(slides []*domain.Slide) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slides = cloneSlides(slides)
	s.renumber()
	s.originalIDs = make(map[string]struct{}, len(s.slides))
	for _, sl := range s.slides {
		if !domain.IsTempID(sl.ID) {
			s.originalIDs[sl.ID] = struct{}{}
		}
	}
	s.currentID = ""
	if len(s.slides) > 0 {
		s.currentID = s.slides[0].ID
	}
}

// Slides returns a deep copy of the deck in presentation order.
func (s *SlideStore) Slides() []*domain.Slide {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlides(s.slides)
}

func (s *SlideStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slides)
}

// Append adds a slide at the end of the deck and selects it.
func (s *SlideStore) Append(sl *domain.Slide) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slides = append(s.slides, sl.Clone())
	s.renumber()
	s.currentID = sl.ID
}

// InsertAt places a slide at index i, shifting the tail right.
func (s *SlideStore) InsertAt(i int, sl *domain.Slide) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 {
		i = 0
	}
	if i > len(s.slides) {
		i = len(s.slides)
	}
	cp := sl.Clone()
	s.slides = append(s.slides, nil)
	copy(s.slides[i+1:], s.slides[i:])
	s.slides[i] = cp
	s.renumber()
}

// Delete removes the slide with the given id.
func (s *SlideStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return domain.ErrSlideNotFound
	}
	s.slides = append(s.slides[:idx], s.slides[idx+1:]...)
	s.renumber()
	if s.currentID == id {
		s.currentID = ""
		if len(s.slides) > 0 {
			if idx >= len(s.slides) {
				idx = len(s.slides) - 1
			}
			s.currentID = s.slides[idx].ID
		}
	}
	return nil
}

// Move reorders the slide at index from to index to.
func (s *SlideStore) Move(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from < 0 || from >= len(s.slides) || to < 0 || to >= len(s.slides) {
		return domain.ErrSlideNotFound
	}
	sl := s.slides[from]
	s.slides = append(s.slides[:from], s.slides[from+1:]...)
	s.slides = append(s.slides[:to], append([]*domain.Slide{sl}, s.slides[to:]...)...)
	s.renumber()
	return nil
}

// UpdateCanvas replaces the drawing content of a canvas slide.
func (s *SlideStore) UpdateCanvas(id string, content *domain.CanvasContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return domain.ErrSlideNotFound
	}
	if s.slides[idx].Type != domain.SlideCanvas {
		return domain.ErrNotCanvasSlide
	}
	s.slides[idx].Canvas = content.Clone()
	return nil
}

// UpdateQuestion replaces the question content of a quiz/feedback slide.
func (s *SlideStore) UpdateQuestion(id string, q *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return domain.ErrSlideNotFound
	}
	if !s.slides[idx].IsQuestion() {
		return domain.ErrSlideNotFound
	}
	cp := *q
	cp.Options = append([]domain.Option(nil), q.Options...)
	s.slides[idx].Question = &cp
	return nil
}

// ReplaceAll swaps the whole deck for the authoritative post-save or
// post-insert list. The selection is re-pointed by id so the displayed
// slide never changes as a side effect; a vanished selection falls back to
// the first slide.
func (s *SlideStore) ReplaceAll(slides []*domain.Slide) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.currentID
	s.slides = cloneSlides(slides)
	s.renumber()

	s.currentID = ""
	if s.indexOf(prev) >= 0 {
		s.currentID = prev
	} else if len(s.slides) > 0 {
		s.currentID = s.slides[0].ID
	}
}

func (s *SlideStore) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return domain.ErrSlideNotFound
	}
	s.currentID = id
	return nil
}

// Current returns a copy of the currently selected slide.
func (s *SlideStore) Current() (*domain.Slide, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return nil, false
	}
	return s.slides[idx].Clone(), true
}

// Get returns a copy of the slide with the given id.
func (s *SlideStore) Get(id string) (*domain.Slide, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, false
	}
	return s.slides[idx].Clone(), true
}

// OriginalIDs returns the identifier set captured at load / last save.
func (s *SlideStore) OriginalIDs() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]struct{}, len(s.originalIDs))
	for id := range s.originalIDs {
		out[id] = struct{}{}
	}
	return out
}

// SetOriginalIDs refreshes the baseline after a successful save so the next
// save's new/updated/deleted split stays correct.
func (s *SlideStore) SetOriginalIDs(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.originalIDs = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.originalIDs[id] = struct{}{}
	}
}

// TryBeginSave claims the single save slot. The caller must EndSave.
func (s *SlideStore) TryBeginSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saving {
		return false
	}
	s.saving = true
	return true
}

func (s *SlideStore) EndSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
}

// AppendBatch adds a recommendation batch; prior batches are never touched.
func (s *SlideStore) AppendBatch(b domain.RecommendationBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := domain.RecommendationBatch{Label: b.Label, Slides: cloneSlides(b.Slides)}
	s.batches = append(s.batches, cp)
}

// Batches returns a deep copy of the accumulated batches in arrival order.
func (s *SlideStore) Batches() []domain.RecommendationBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RecommendationBatch, len(s.batches))
	for i, b := range s.batches {
		out[i] = domain.RecommendationBatch{Label: b.Label, Slides: cloneSlides(b.Slides)}
	}
	return out
}

// RemoveRecommendation takes one suggested slide out of its batch, after it
// was applied to the deck or dismissed, and returns a copy of it. A batch
// emptied by the removal is pruned.
func (s *SlideStore) RemoveRecommendation(batch int, slideID string) (*domain.Slide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch < 0 || batch >= len(s.batches) {
		return nil, domain.ErrBatchNotFound
	}
	b := &s.batches[batch]
	for i, sl := range b.Slides {
		if sl.ID != slideID {
			continue
		}
		out := sl.Clone()
		b.Slides = append(b.Slides[:i], b.Slides[i+1:]...)
		if len(b.Slides) == 0 {
			s.batches = append(s.batches[:batch], s.batches[batch+1:]...)
		}
		return out, nil
	}
	return nil, domain.ErrSlideNotFound
}

// ClearBatches drops all accumulated batches (new live session).
func (s *SlideStore) ClearBatches() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = nil
}

// renumber enforces slide_order == array index. Callers hold the lock.
func (s *SlideStore) renumber() {
	for i, sl := range s.slides {
		sl.Order = i
	}
}

func (s *SlideStore) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, sl := range s.slides {
		if sl.ID == id {
			return i
		}
	}
	return -1
}

func cloneSlides(in []*domain.Slide) []*domain.Slide {
	out := make([]*domain.Slide, len(in))
	for i, sl := range in {
		out[i] = sl.Clone()
	}
	return out
}
