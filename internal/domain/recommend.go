package domain

// RecommendationBatch groups the AI-suggested slides produced from one
// audio window of a recorded live session. Batches only accumulate;
// individual slides are removed when applied to the deck or dismissed.
type RecommendationBatch struct {
	// Label is the elapsed-time range of the source window, e.g. "2-4 mins".
	Label  string   `json:"label"`
	Slides []*Slide `json:"slides"`
}
