package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcriber/internal/audio"
	"github.com/airenas/transcriber/internal/engine"
	"github.com/airenas/transcriber/internal/runner"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

const (
	defaultAudioPath  = "audio/lecture_cleaned.wav"
	defaultOutputPath = "transcripts/lecture_transcript.json"
	defaultModelSize  = "medium"
	defaultLanguage   = "ja"
	defaultEngine     = engine.NameWhisper
)

func main() {
	envErr := godotenv.Load()
	flag.Usage = usage
	goapp.StartWithDefault()
	if !flag.Parsed() {
		flag.Parse()
	}
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		goapp.Log.Warn().Err(envErr).Msg("can't load .env")
	}

	cfg := goapp.Config
	rc, err := runConfig(cfg, flag.Args())
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		flag.Usage()
		os.Exit(2)
	}

	name := cfg.GetString("engine")
	loader, err := engine.New(name, engine.ReadConfig(cfg))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init engine")
	}
	logAudio(rc.AudioPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	goapp.Log.Info().Str("engine", name).Str("model", rc.ModelSize).Str("language", rc.Language).
		Str("audio", rc.AudioPath).Str("output", rc.OutputPath).Msg("transcribing")
	if err := runner.Run(ctx, rc, loader); err != nil {
		goapp.Log.Error().Err(err).Msg("transcription failed")
		color.New(color.FgRed).Fprintf(os.Stderr, "failed: %v\n", err)
		stop()
		os.Exit(1)
	}
	color.New(color.FgGreen).Fprintf(os.Stderr, "saved %s\n", rc.OutputPath)
}

type config interface {
	SetDefault(key string, value any)
	GetString(key string) string
}

var errTooManyArgs = errors.New("too many arguments")

// runConfig sets defaults and reads the run settings, args are [audio_path [output_path]]
func runConfig(cfg config, args []string) (runner.Config, error) {
	cfg.SetDefault("audio.path", defaultAudioPath)
	cfg.SetDefault("output.path", defaultOutputPath)
	cfg.SetDefault("model.size", defaultModelSize)
	cfg.SetDefault("language", defaultLanguage)
	cfg.SetDefault("engine", defaultEngine)

	if len(args) > 2 {
		return runner.Config{}, errTooManyArgs
	}
	res := runner.Config{
		AudioPath:  cfg.GetString("audio.path"),
		OutputPath: cfg.GetString("output.path"),
		ModelSize:  cfg.GetString("model.size"),
		Language:   cfg.GetString("language"),
	}
	if len(args) > 0 {
		res.AudioPath = args[0]
	}
	if len(args) > 1 {
		res.OutputPath = args[1]
	}
	return res, nil
}

func logAudio(path string) {
	info, err := audio.Probe(path)
	if err != nil {
		goapp.Log.Debug().Err(err).Str("audio", path).Msg("can't probe")
		return
	}
	goapp.Log.Info().Str("format", string(info.Format)).Int("rate", info.SampleRate).
		Int("channels", info.Channels).Dur("duration", info.Duration).Msg("audio")
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-c config.yaml] [audio_path [output_path]]\n", os.Args[0])
	flag.PrintDefaults()
}
