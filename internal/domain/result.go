package domain

import "encoding/json"

// Segment is a time-bounded transcript record as produced by an engine.
// It is kept raw and passed through without interpretation.
type Segment = json.RawMessage

// Result is what an engine returns for a whole audio file
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}
