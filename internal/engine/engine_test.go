package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/airenas/transcriber/internal/domain"
	"github.com/airenas/transcriber/internal/runner"
)

func TestNew(t *testing.T) {
	cfg := Config{
		OpenAI: OpenAIConfig{URL: "http://localhost:8000/v1/audio/transcriptions"},
		Kaldi:  KaldiConfig{URL: "ws://localhost:9090/client/ws/speech"},
	}
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "whisper", cfg: cfg},
		{name: "Whisper", cfg: cfg},
		{name: "openai", cfg: cfg},
		{name: "kaldi", cfg: cfg},
		{name: "openai", cfg: Config{}, wantErr: true},
		{name: "kaldi", cfg: Config{Kaldi: KaldiConfig{URL: "http://localhost"}}, wantErr: true},
		{name: "vosk", cfg: cfg, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.name, tt.cfg)
			if err != nil {
				if !tt.wantErr {
					t.Errorf("New() failed: %v", err)
				}
				return
			}
			if tt.wantErr {
				t.Fatal("New() succeeded unexpectedly")
			}
			if got == nil {
				t.Error("New() = nil")
			}
		})
	}
}

type countingLoader struct {
	calls int
	err   error
}

type nopEngine struct{}

func (nopEngine) Transcribe(context.Context, string, string) (*domain.Result, error) {
	return &domain.Result{}, nil
}

func (l *countingLoader) Load(_ context.Context, _ string) (runner.Engine, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return nopEngine{}, nil
}

func TestCached(t *testing.T) {
	l := &countingLoader{}
	c := NewCached(l)
	for i := 0; i < 3; i++ {
		if _, err := c.Load(context.Background(), "medium"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.Load(context.Background(), "small"); err != nil {
		t.Fatal(err)
	}
	if l.calls != 2 {
		t.Errorf("loads = %d, want 2", l.calls)
	}
}

func TestCached_ErrorNotCached(t *testing.T) {
	l := &countingLoader{err: errors.New("oom")}
	c := NewCached(l)
	if _, err := c.Load(context.Background(), "medium"); err != l.err {
		t.Fatalf("Load() = %v", err)
	}
	l.err = nil
	if _, err := c.Load(context.Background(), "medium"); err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if l.calls != 2 {
		t.Errorf("loads = %d, want 2", l.calls)
	}
}

func TestDecodeResult(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    *domain.Result
		wantErr bool
	}{
		{name: "segments kept raw",
			data: `{"text":" こんにちは","segments":[{"id":0,"seek":0,"start":0.0,"end":1.2,"text":" こんにちは","tokens":[1,2]}],"language":"ja"}`,
			want: &domain.Result{Text: " こんにちは", Segments: []domain.Segment{
				domain.Segment(`{"id":0,"seek":0,"start":0.0,"end":1.2,"text":" こんにちは","tokens":[1,2]}`)}},
		},
		{name: "no segments", data: `{"text":"a"}`, want: &domain.Result{Text: "a", Segments: []domain.Segment{}}},
		{name: "bad", data: `{"text":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeResult([]byte(tt.data))
			if err != nil {
				if !tt.wantErr {
					t.Errorf("decodeResult() failed: %v", err)
				}
				return
			}
			if tt.wantErr {
				t.Fatal("decodeResult() succeeded unexpectedly")
			}
			if got.Text != tt.want.Text || len(got.Segments) != len(tt.want.Segments) {
				t.Fatalf("decodeResult() = %+v, want %+v", got, tt.want)
			}
			for i := range got.Segments {
				if string(got.Segments[i]) != string(tt.want.Segments[i]) {
					t.Errorf("segment %d = %s, want %s", i, got.Segments[i], tt.want.Segments[i])
				}
			}
		})
	}
}
