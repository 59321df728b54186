package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcriber/internal/domain"
	"github.com/airenas/transcriber/internal/runner"
)

// WhisperConfig configures the openai-whisper command line engine
type WhisperConfig struct {
	// Cmd is the whisper executable, "whisper" if empty
	Cmd string
	// Device passed as --device if set: cpu, cuda
	Device string
	// TmpDir for whisper output files, system temp if empty
	TmpDir string
}

// WhisperLoader resolves the whisper command for a model
type WhisperLoader struct {
	cfg WhisperConfig
}

// Whisper runs the whisper command per file
type Whisper struct {
	cmd    string
	model  string
	device string
	tmpDir string
}

// NewWhisperLoader creates loader
func NewWhisperLoader(cfg WhisperConfig) (*WhisperLoader, error) {
	if cfg.Cmd == "" {
		cfg.Cmd = "whisper"
	}
	goapp.Log.Info().Str("cmd", cfg.Cmd).Str("device", cfg.Device).Msg("Whisper")
	return &WhisperLoader{cfg: cfg}, nil
}

// Load checks the command is available, the model itself is loaded by whisper on each run
func (l *WhisperLoader) Load(ctx context.Context, size string) (runner.Engine, error) {
	if size == "" {
		return nil, fmt.Errorf("no model size")
	}
	path, err := exec.LookPath(l.cfg.Cmd)
	if err != nil {
		return nil, fmt.Errorf("can't find whisper '%s': %w", l.cfg.Cmd, err)
	}
	return &Whisper{cmd: path, model: size, device: l.cfg.Device, tmpDir: l.cfg.TmpDir}, nil
}

// Transcribe runs whisper and reads its json output
func (w *Whisper) Transcribe(ctx context.Context, audioPath, language string) (*domain.Result, error) {
	dir, err := os.MkdirTemp(w.tmpDir, "whisper-")
	if err != nil {
		return nil, fmt.Errorf("make temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{audioPath, "--model", w.model, "--output_format", "json", "--output_dir", dir, "--verbose", "False"}
	if language != "" {
		args = append(args, "--language", language)
	}
	if w.device != "" {
		args = append(args, "--device", w.device)
	}
	goapp.Log.Debug().Strs("args", args).Msg("running whisper")

	cmd := exec.CommandContext(ctx, w.cmd, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("whisper failed: %w: %s", err, lastLines(stderr.String(), 5))
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(dir, stem+".json"))
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}
	return decodeResult(data)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
