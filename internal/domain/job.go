//go:generate stringer -type=State
package domain

import "time"

// State of a transcription job
type State int

const (
	Queued State = iota
	Running
	Done
	Failed
)

// Job is one transcription request accepted by the service
type Job struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Error     string    `json:"error,omitempty"`
	AudioFile string    `json:"audioFile"`
	Language  string    `json:"language"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}
