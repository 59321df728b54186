package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/airenas/transcriber/internal/api"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gorilla/websocket"
)

type kaldiServer struct {
	lock        sync.Mutex
	contentType string
	received    int
	responses   []api.FullResult
}

func (ks *kaldiServer) handle(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		ks.lock.Lock()
		ks.contentType = r.URL.Query().Get("content-type")
		ks.lock.Unlock()
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()
		for {
			mt, msg, err := c.ReadMessage()
			if err != nil {
				t.Errorf("read: %v", err)
				return
			}
			if mt == websocket.TextMessage && string(msg) == api.MessageEndOfStream {
				break
			}
			ks.lock.Lock()
			ks.received += len(msg)
			ks.lock.Unlock()
		}
		for _, fr := range ks.responses {
			if err := c.WriteJSON(fr); err != nil {
				t.Errorf("write: %v", err)
				return
			}
		}
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_, _, _ = c.ReadMessage()
	}
}

func newKaldi(t *testing.T, ks *kaldiServer) *Kaldi {
	t.Helper()
	srv := httptest.NewServer(ks.handle(t))
	t.Cleanup(srv.Close)
	l, err := NewKaldiLoader(KaldiConfig{URL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/client/ws/speech", ChunkSize: 1000})
	if err != nil {
		t.Fatal(err)
	}
	e, err := l.Load(context.Background(), "medium")
	if err != nil {
		t.Fatal(err)
	}
	return e.(*Kaldi)
}

func writeWAV16k(t *testing.T, samples int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "lecture.wav")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &goaudio.IntBuffer{Format: &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data: make([]int, samples), SourceBitDepth: 16}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return p
}

func final(start, length float64, text string, words ...api.WordAlignment) api.FullResult {
	return api.FullResult{SegmentStart: start, SegmentLength: length,
		Result: api.Result{Final: true, Hypotheses: []api.Hypothesis{{Transcript: text, WordAlignment: words}}}}
}

func TestKaldi_Transcribe(t *testing.T) {
	ks := &kaldiServer{responses: []api.FullResult{
		{Result: api.Result{Hypotheses: []api.Hypothesis{{Transcript: "labas"}}}},
		final(0, 1.5, "labas_rytas", api.WordAlignment{Start: 0.1, Length: 0.5, Word: "labas_rytas", Confidence: 0.9}),
		{Status: api.StatusNoSpeech},
		final(2, 1, " antras "),
	}}
	k := newKaldi(t, ks)

	res, err := k.Transcribe(context.Background(), writeWAV16k(t, 8000), "ja")
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}
	ks.lock.Lock()
	defer ks.lock.Unlock()
	if ks.received != 16000 {
		t.Errorf("server got %d bytes, want 16000", ks.received)
	}
	if !strings.Contains(ks.contentType, "rate=(int)16000") {
		t.Errorf("content-type = %q", ks.contentType)
	}
	if res.Text != "labas rytas antras" {
		t.Errorf("Text = %q", res.Text)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("Segments = %d, want 2", len(res.Segments))
	}
	var seg api.Segment
	if err := json.Unmarshal(res.Segments[1], &seg); err != nil {
		t.Fatal(err)
	}
	if seg.ID != 1 || seg.Start != 2 || seg.End != 3 || seg.Text != "antras" {
		t.Errorf("segment = %+v", seg)
	}
	if err := json.Unmarshal(res.Segments[0], &seg); err != nil {
		t.Fatal(err)
	}
	if len(seg.Words) != 1 || seg.Words[0].Start != 0.1 || seg.Words[0].End != 0.6 || seg.Words[0].Word != "labas rytas" {
		t.Errorf("words = %+v", seg.Words)
	}
}

func TestKaldi_Status(t *testing.T) {
	ks := &kaldiServer{responses: []api.FullResult{{Status: api.StatusNotAvailable, Message: "no decoder available"}}}
	k := newKaldi(t, ks)

	_, err := k.Transcribe(context.Background(), writeWAV16k(t, 100), "")
	if !errors.Is(err, ErrKaldiStatus) {
		t.Fatalf("Transcribe() = %v, want ErrKaldiStatus", err)
	}
	if !strings.Contains(err.Error(), "no decoder available") {
		t.Errorf("message lost: %v", err)
	}
}

func TestKaldi_BadAudio(t *testing.T) {
	k := newKaldi(t, &kaldiServer{})
	p := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(p, []byte("not wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := k.Transcribe(context.Background(), p, ""); err == nil {
		t.Fatal("Transcribe() succeeded unexpectedly")
	}
}

func TestKaldi_speechURL(t *testing.T) {
	k := &Kaldi{cfg: KaldiConfig{URL: "ws://host/speech?user=a"}}
	got := k.speechURL(8000)
	if !strings.HasPrefix(got, "ws://host/speech?user=a&content-type=") {
		t.Errorf("speechURL() = %s", got)
	}
}
