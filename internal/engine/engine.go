package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcriber/internal/domain"
	"github.com/airenas/transcriber/internal/runner"
)

// Engine names accepted by New
const (
	NameWhisper = "whisper"
	NameOpenAI  = "openai"
	NameKaldi   = "kaldi"
)

// Config keeps settings of all engines, only the selected one is used
type Config struct {
	Whisper WhisperConfig
	OpenAI  OpenAIConfig
	Kaldi   KaldiConfig
}

// New creates a model loader for the named engine
func New(name string, cfg Config) (runner.Loader, error) {
	goapp.Log.Info().Str("engine", name).Msg("Engine")
	switch strings.ToLower(name) {
	case NameWhisper:
		return NewWhisperLoader(cfg.Whisper)
	case NameOpenAI:
		return NewOpenAILoader(cfg.OpenAI)
	case NameKaldi:
		return NewKaldiLoader(cfg.Kaldi)
	default:
		return nil, fmt.Errorf("unknown engine '%s'", name)
	}
}

// Cached loads a model once per size and then reuses it
type Cached struct {
	loader  runner.Loader
	lock    sync.Mutex
	engines map[string]runner.Engine
}

// NewCached wraps loader
func NewCached(loader runner.Loader) *Cached {
	return &Cached{loader: loader, engines: map[string]runner.Engine{}}
}

// Load returns the cached engine, failed loads are not cached
func (c *Cached) Load(ctx context.Context, size string) (runner.Engine, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if res, ok := c.engines[size]; ok {
		return res, nil
	}
	res, err := c.loader.Load(ctx, size)
	if err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("model", size).Msg("model cached")
	c.engines[size] = res
	return res, nil
}

// whisperOutput is the json shape whisper and whisper-compatible APIs produce
type whisperOutput struct {
	Text     string            `json:"text"`
	Segments []json.RawMessage `json:"segments"`
}

func decodeResult(data []byte) (*domain.Result, error) {
	var wo whisperOutput
	if err := json.Unmarshal(data, &wo); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	res := &domain.Result{Text: wo.Text, Segments: make([]domain.Segment, 0, len(wo.Segments))}
	for _, s := range wo.Segments {
		res.Segments = append(res.Segments, domain.Segment(s))
	}
	return res, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: newTransport(), Timeout: timeout}
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 2
	res.MaxIdleConns = 2
	res.MaxIdleConnsPerHost = 2
	res.IdleConnTimeout = 90 * time.Second
	return res
}
