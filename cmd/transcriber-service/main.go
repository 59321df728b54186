package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcriber/internal/db"
	"github.com/airenas/transcriber/internal/engine"
	"github.com/airenas/transcriber/internal/service"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/color"
)

func main() {
	_ = godotenv.Load()
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	cfg.SetDefault("engine", engine.NameWhisper)
	cfg.SetDefault("model.size", "medium")
	cfg.SetDefault("language", "ja")
	cfg.SetDefault("queue.size", 10)
	cfg.SetDefault("port", 8000)
	cfg.SetDefault("work.dir", os.TempDir())
	cfg.SetDefault("upload.limit", "1G")
	cfg.SetDefault("http.timeout", 10*time.Minute)

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	loader, err := engine.New(cfg.GetString("engine"), engine.ReadConfig(cfg))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init engine")
	}

	var store service.Store
	if url := cfg.GetString("redis.url"); url != "" {
		rdb, err := db.NewRedisDataManager(ctx, url, cfg.GetString("redis.key"))
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init redis")
		}
		defer rdb.Close()
		store = rdb
	} else {
		goapp.Log.Warn().Msg("no redis.url, keeping jobs in memory")
		store = db.NewMemoryDataManager()
	}

	worker, err := service.NewWorker(store, engine.NewCached(loader), cfg.GetString("model.size"),
		cfg.GetInt("queue.size"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init worker")
	}

	data := &service.Data{}
	data.Port = cfg.GetInt("port")
	data.Store = store
	data.Queue = worker
	data.WorkDir = cfg.GetString("work.dir")
	data.Language = cfg.GetString("language")
	data.UploadLimit = cfg.GetString("upload.limit")
	data.Timeout = cfg.GetDuration("http.timeout")
	if err := os.MkdirAll(data.WorkDir, 0o755); err != nil {
		goapp.Log.Fatal().Err(err).Str("dir", data.WorkDir).Msg("can't create work dir")
	}

	workerDone := worker.Start(ctx)
	doneCh, err := service.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}

	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-workerDone:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

var (
	version = "DEV"
)

func printBanner() {
	banner :=
		`
    TRANSCRIBER SERVICE v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/transcriber"))
}
