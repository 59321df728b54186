package api

// Hypothesis is one recognition alternative of kaldi-gstreamer-server
type Hypothesis struct {
	Transcript    string          `json:"transcript"`
	Likelihood    float64         `json:"likelihood"`
	Confidence    float64         `json:"confidence,omitempty"`
	WordAlignment []WordAlignment `json:"word-alignment,omitempty"`
}

type WordAlignment struct {
	Start      float64 `json:"start"`
	Length     float64 `json:"length"`
	Word       string  `json:"word"`
	Confidence float64 `json:"confidence"`
}

type Result struct {
	Hypotheses []Hypothesis `json:"hypotheses"`
	Final      bool         `json:"final"`
}

// FullResult is a message sent by the kaldi server over websocket
type FullResult struct {
	Status        int     `json:"status"`
	Message       string  `json:"message,omitempty"`
	SegmentStart  float64 `json:"segment-start"`
	SegmentLength float64 `json:"segment-length"`
	TotalLength   float64 `json:"total-length"`
	Result        Result  `json:"result,omitempty"`
	Segment       int     `json:"segment"`
	ID            string  `json:"id,omitempty"`
}

// kaldi-gstreamer-server status codes
const (
	StatusSuccess      = 0
	StatusNoSpeech     = 1
	StatusAborted      = 2
	StatusNotAvailable = 9
	MessageEndOfStream = "EOS"
)

// Segment is the record the kaldi engine emits for one final result
type Segment struct {
	ID    int           `json:"id"`
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Text  string        `json:"text"`
	Words []SegmentWord `json:"words,omitempty"`
}

type SegmentWord struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Word       string  `json:"word"`
	Confidence float64 `json:"confidence"`
}

// JobStatus is the service answer about a transcription job
type JobStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SearchResult is the service answer to a question over a transcript
type SearchResult struct {
	Answer   string `json:"answer"`
	Evidence string `json:"evidence"`
}
