package deck

import (
	"encoding/json"
	"log/slog"

	"github.com/voltclass/presenterd/internal/api"
	"github.com/voltclass/presenterd/internal/domain"
)

// Materialize turns a generation response into deck slides: canvas
// suggestions first, assessment questions after, orders starting at base.
func Materialize(resp api.GenerateResponse, base int) []*domain.Slide {
	out := make([]*domain.Slide, 0, len(resp.Slides)+len(resp.Assessment.Questions))

	for _, gs := range resp.Slides {
		sl := domain.NewCanvasSlide(base + len(out))
		sl.Canvas.Elements = gs.Elements
		if len(gs.AppState) > 0 {
			var st domain.AppState
			if err := json.Unmarshal(gs.AppState, &st); err != nil {
				slog.Warn("generated appState undecodable, using defaults", "err", err)
			} else {
				sl.Canvas.AppState = st
			}
		}
		out = append(out, sl)
	}

	for _, gq := range resp.Assessment.Questions {
		opts := make([]domain.Option, 0, len(gq.Options))
		for _, text := range gq.Options {
			opts = append(opts, domain.Option{Text: text, Correct: text == gq.Answer})
		}
		var sl *domain.Slide
		if gq.Type == string(domain.SlideFeedback) || len(opts) == 0 {
			sl = domain.NewFeedbackSlide(base+len(out), gq.Text, opts)
		} else {
			sl = domain.NewQuizSlide(base+len(out), gq.Text, opts)
		}
		out = append(out, sl)
	}

	return out
}
