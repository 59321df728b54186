package engine

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcriber/internal/domain"
	"github.com/airenas/transcriber/internal/runner"
)

// OpenAIConfig configures an OpenAI compatible /audio/transcriptions endpoint
type OpenAIConfig struct {
	URL string
	Key string
	// Model overrides the model name, the size tier is sent if empty
	Model   string
	Timeout time.Duration
}

// OpenAILoader prepares a client for the endpoint
type OpenAILoader struct {
	cfg        OpenAIConfig
	httpclient *http.Client
}

// OpenAI uploads audio to the endpoint
type OpenAI struct {
	url        string
	key        string
	model      string
	httpclient *http.Client
}

// NewOpenAILoader creates loader
func NewOpenAILoader(cfg OpenAIConfig) (*OpenAILoader, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("no openai url")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("wrong url scheme '%s'", u.Scheme)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Hour
	}
	goapp.Log.Info().Str("url", cfg.URL).Str("model", cfg.Model).Dur("timeout", cfg.Timeout).Msg("OpenAI")
	return &OpenAILoader{cfg: cfg, httpclient: newHTTPClient(cfg.Timeout)}, nil
}

// Load selects the model, nothing is loaded locally
func (l *OpenAILoader) Load(ctx context.Context, size string) (runner.Engine, error) {
	model := l.cfg.Model
	if model == "" {
		model = size
	}
	if model == "" {
		return nil, fmt.Errorf("no model")
	}
	return &OpenAI{url: l.cfg.URL, key: l.cfg.Key, model: model, httpclient: l.httpclient}, nil
}

// Transcribe posts the file and returns text with segments
func (o *OpenAI) Transcribe(ctx context.Context, audioPath, language string) (*domain.Result, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(o.writeForm(mw, f, filepath.Base(audioPath), language))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if o.key != "" {
		req.Header.Set("Authorization", "Bearer "+o.key)
	}
	resp, err := o.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return nil, fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return decodeResult(data)
}

func (o *OpenAI) writeForm(mw *multipart.Writer, r io.Reader, name, language string) error {
	fields := [][2]string{{"model", o.model}, {"response_format", "verbose_json"}, {"timestamp_granularities[]", "segment"}}
	if language != "" {
		fields = append(fields, [2]string{"language", language})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return err
	}
	return mw.Close()
}
