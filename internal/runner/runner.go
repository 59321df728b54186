package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcriber/internal/domain"
	"github.com/airenas/transcriber/internal/output"
	"github.com/airenas/transcriber/internal/utils"
)

// Config holds everything one transcription run needs
type Config struct {
	AudioPath  string
	OutputPath string
	ModelSize  string
	Language   string
}

// Engine transcribes a whole audio file
type Engine interface {
	Transcribe(ctx context.Context, audioPath, language string) (*domain.Result, error)
}

// Loader loads a model of the given size tier
type Loader interface {
	Load(ctx context.Context, size string) (Engine, error)
}

// Run transcribes cfg.AudioPath and writes the result to cfg.OutputPath.
//
// A missing audio file yields *domain.NotFoundError before the model is loaded.
// Engine and write errors are returned as is, nothing is written on engine failure.
func Run(ctx context.Context, cfg Config, loader Loader) error {
	if cfg.OutputPath == "" {
		return fmt.Errorf("no output path")
	}
	res, err := Transcribe(ctx, cfg, loader)
	if err != nil {
		return err
	}
	if err := output.WriteFile(cfg.OutputPath, res); err != nil {
		return err
	}
	goapp.Log.Info().Str("file", cfg.OutputPath).Msg("saved")
	return nil
}

// Transcribe does the Run steps up to the engine result
func Transcribe(ctx context.Context, cfg Config, loader Loader) (*domain.Result, error) {
	if cfg.AudioPath == "" {
		return nil, fmt.Errorf("no audio path")
	}
	if _, err := os.Stat(cfg.AudioPath); err != nil {
		return nil, &domain.NotFoundError{Path: cfg.AudioPath, Err: err}
	}
	defer utils.MeasureTime("transcribe", time.Now())

	goapp.Log.Info().Str("model", cfg.ModelSize).Msg("loading model")
	engine, err := loader.Load(ctx, cfg.ModelSize)
	if err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("file", cfg.AudioPath).Str("language", cfg.Language).Msg("transcribing")
	res, err := engine.Transcribe(ctx, cfg.AudioPath, cfg.Language)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("engine returned no result")
	}
	goapp.Log.Info().Int("segments", len(res.Segments)).Int("chars", len([]rune(res.Text))).Msg("transcribed")
	return res, nil
}
