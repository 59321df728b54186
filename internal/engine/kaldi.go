package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcriber/internal/api"
	"github.com/airenas/transcriber/internal/audio"
	"github.com/airenas/transcriber/internal/domain"
	"github.com/airenas/transcriber/internal/runner"
	"github.com/gorilla/websocket"
)

// KaldiConfig configures a kaldi-gstreamer-server speech websocket
type KaldiConfig struct {
	URL string
	// ChunkSize of audio bytes per websocket message
	ChunkSize int
	// ChunkDelay slows down sending, servers decode in real time
	ChunkDelay time.Duration
}

// KaldiLoader checks the server settings
type KaldiLoader struct {
	cfg KaldiConfig
}

// Kaldi streams a wav file to the server and collects final results
type Kaldi struct {
	cfg    KaldiConfig
	dialer *websocket.Dialer
}

// NewKaldiLoader creates loader
func NewKaldiLoader(cfg KaldiConfig) (*KaldiLoader, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("no kaldi url")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("wrong url scheme '%s'", u.Scheme)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 8000
	}
	goapp.Log.Info().Str("url", cfg.URL).Int("chunk", cfg.ChunkSize).Msg("Kaldi")
	return &KaldiLoader{cfg: cfg}, nil
}

// Load returns the engine, the model is selected by the server
func (l *KaldiLoader) Load(ctx context.Context, size string) (runner.Engine, error) {
	if size != "" {
		goapp.Log.Debug().Str("model", size).Msg("model size is defined by the kaldi server")
	}
	return &Kaldi{cfg: l.cfg, dialer: websocket.DefaultDialer}, nil
}

// Transcribe sends PCM of audioPath and waits for the server to finish
func (k *Kaldi) Transcribe(ctx context.Context, audioPath, language string) (*domain.Result, error) {
	pcm, rate, err := audio.ReadPCM16Mono(audioPath)
	if err != nil {
		return nil, err
	}
	if language != "" {
		goapp.Log.Debug().Str("language", language).Msg("language is defined by the kaldi server")
	}

	c, _, err := k.dialer.DialContext(ctx, k.speechURL(rate), nil)
	if err != nil {
		return nil, fmt.Errorf("can't dial to URL: %w", err)
	}
	defer c.Close()

	ctx, cf := context.WithCancel(ctx)
	defer cf()
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- k.send(ctx, c, pcm)
	}()

	res, err := readResults(ctx, c)
	if err != nil {
		return nil, err
	}
	select {
	case err := <-writeErr:
		if err != nil {
			return nil, fmt.Errorf("send audio: %w", err)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return res, nil
}

func (k *Kaldi) speechURL(rate int) string {
	ct := fmt.Sprintf("audio/x-raw, layout=(string)interleaved, rate=(int)%d, format=(string)S16LE, channels=(int)1", rate)
	sep := "?"
	if strings.Contains(k.cfg.URL, "?") {
		sep = "&"
	}
	return k.cfg.URL + sep + "content-type=" + url.QueryEscape(ct)
}

func (k *Kaldi) send(ctx context.Context, c *websocket.Conn, pcm []byte) error {
	for len(pcm) > 0 {
		n := min(k.cfg.ChunkSize, len(pcm))
		if err := c.WriteMessage(websocket.BinaryMessage, pcm[:n]); err != nil {
			return err
		}
		pcm = pcm[n:]
		if k.cfg.ChunkDelay > 0 {
			select {
			case <-time.After(k.cfg.ChunkDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return c.WriteMessage(websocket.TextMessage, []byte(api.MessageEndOfStream))
}

func readResults(ctx context.Context, c *websocket.Conn) (*domain.Result, error) {
	var texts []string
	res := &domain.Result{Segments: []domain.Segment{}}
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return nil, fmt.Errorf("read: %w", err)
		}
		var fr api.FullResult
		if err := json.Unmarshal(msg, &fr); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		goapp.Log.Trace().Int("status", fr.Status).Int("segment", fr.Segment).Bool("final", fr.Result.Final).Send()
		if fr.Status != api.StatusSuccess {
			if fr.Status == api.StatusNoSpeech {
				continue
			}
			return nil, newKaldiError(fr)
		}
		if !fr.Result.Final || len(fr.Result.Hypotheses) == 0 {
			continue
		}
		seg := toSegment(len(res.Segments), &fr)
		if seg.Text == "" {
			continue
		}
		b, err := json.Marshal(seg)
		if err != nil {
			return nil, err
		}
		res.Segments = append(res.Segments, domain.Segment(b))
		texts = append(texts, seg.Text)
	}
	res.Text = strings.Join(texts, " ")
	return res, nil
}

func toSegment(id int, fr *api.FullResult) *api.Segment {
	h := fr.Result.Hypotheses[0]
	res := &api.Segment{ID: id, Start: fr.SegmentStart, End: fr.SegmentStart + fr.SegmentLength, Text: clean(h.Transcript)}
	for _, wa := range h.WordAlignment {
		res.Words = append(res.Words, api.SegmentWord{Start: fr.SegmentStart + wa.Start,
			End: fr.SegmentStart + wa.Start + wa.Length, Word: clean(wa.Word), Confidence: wa.Confidence})
	}
	return res
}

// clean drops kaldi word joiners
func clean(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "_", " "))
}

// ErrKaldiStatus is wrapped by errors with a non success server status
var ErrKaldiStatus = errors.New("kaldi status")

func newKaldiError(fr api.FullResult) error {
	if fr.Message != "" {
		return fmt.Errorf("%w %d: %s", ErrKaldiStatus, fr.Status, fr.Message)
	}
	return fmt.Errorf("%w %d", ErrKaldiStatus, fr.Status)
}
