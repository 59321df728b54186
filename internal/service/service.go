package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/oklog/ulid/v2"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcriber/internal/api"
	"github.com/airenas/transcriber/internal/db"
	"github.com/airenas/transcriber/internal/domain"
	"github.com/airenas/transcriber/internal/search"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Store keeps jobs and results
type Store interface {
	SaveJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	SaveResult(ctx context.Context, id string, data []byte) error
	GetResult(ctx context.Context, id string) ([]byte, error)
}

// Queue accepts jobs for processing
type Queue interface {
	Add(job *domain.Job) error
}

// Data keeps data required for service work
type Data struct {
	Port        int
	Store       Store
	Queue       Queue
	WorkDir     string
	Language    string
	UploadLimit string
	Timeout     time.Duration
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) (<-chan struct{}, error) {
	goapp.Log.Info().Msgf("Starting transcriber service at %d", data.Port)
	if err := validate(data); err != nil {
		return nil, err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = data.Timeout
	e.Server.WriteTimeout = data.Timeout

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	res := make(chan struct{}, 1)
	go func() {
		defer close(res)
		if err := gracehttp.Serve(e.Server); err != nil {
			goapp.Log.Error().Err(err).Msg("can't start web server")
		}
		goapp.Log.Info().Msg("exit http routine")
	}()
	return res, nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("transcriber", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	if data.UploadLimit != "" {
		e.Use(middleware.BodyLimit(data.UploadLimit))
	}
	promMdlw.Use(e)

	e.GET("/live", live(data))
	e.POST("/transcribe", upload(data))
	e.GET("/transcribe/:id", status(data))
	e.GET("/transcribe/:id/result", result(data))
	e.GET("/transcribe/:id/search", find(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func upload(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		file, err := c.FormFile("file")
		if err != nil {
			goapp.Log.Warn().Err(err).Msg("no file")
			return echo.NewHTTPError(http.StatusBadRequest, "no file")
		}
		id := ulid.Make().String()
		audioFile := filepath.Join(data.WorkDir, id+extension(file.Filename))
		if err := saveUpload(file, audioFile); err != nil {
			goapp.Log.Error().Err(err).Str("file", audioFile).Msg("can't save upload")
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		language := c.FormValue("language")
		if language == "" {
			language = data.Language
		}
		now := time.Now()
		job := &domain.Job{ID: id, State: domain.Queued, AudioFile: audioFile, Language: language,
			Created: now, Updated: now}
		ctx := c.Request().Context()
		if err := data.Store.SaveJob(ctx, job); err != nil {
			_ = os.Remove(audioFile)
			goapp.Log.Error().Err(err).Msg("can't save job")
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if err := data.Queue.Add(job); err != nil {
			_ = os.Remove(audioFile)
			job.State, job.Error, job.Updated = domain.Failed, err.Error(), time.Now()
			if err := data.Store.SaveJob(ctx, job); err != nil {
				goapp.Log.Error().Err(err).Msg("can't save job")
			}
			if errors.Is(err, ErrQueueFull) {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "queue is full")
			}
			goapp.Log.Error().Err(err).Msg("can't enqueue")
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		goapp.Log.Info().Str("id", id).Str("file", file.Filename).Str("language", language).Msg("queued")
		return c.JSON(http.StatusAccepted, api.JobStatus{ID: id, Status: job.State.String()})
	}
}

func status(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		job, err := getJob(c, data)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, api.JobStatus{ID: job.ID, Status: job.State.String(), Error: job.Error})
	}
}

func result(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		res, err := getResult(c, data)
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, res)
	}
}

// getResult returns the stored transcript of a finished job
func getResult(c echo.Context, data *Data) ([]byte, error) {
	job, err := getJob(c, data)
	if err != nil {
		return nil, err
	}
	if job.State != domain.Done {
		return nil, echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("job is %s", job.State))
	}
	res, err := data.Store.GetResult(c.Request().Context(), job.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "no result")
		}
		goapp.Log.Error().Err(err).Str("id", job.ID).Msg("can't get result")
		return nil, echo.NewHTTPError(http.StatusInternalServerError)
	}
	return res, nil
}

func find(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		question := strings.TrimSpace(c.QueryParam("q"))
		if question == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no q")
		}
		res, err := getResult(c, data)
		if err != nil {
			return err
		}
		var transcript struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(res, &transcript); err != nil {
			goapp.Log.Error().Err(err).Str("id", c.Param("id")).Msg("can't decode result")
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		found := search.InText(transcript.Text, question)
		goapp.Log.Info().Str("id", c.Param("id")).Bool("found", found.Found).Msg("search")
		return c.JSON(http.StatusOK, api.SearchResult{Answer: found.Answer, Evidence: found.Evidence})
	}
}

func getJob(c echo.Context, data *Data) (*domain.Job, error) {
	id := c.Param("id")
	job, err := data.Store.GetJob(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "no job")
		}
		goapp.Log.Error().Err(err).Str("id", id).Msg("can't get job")
		return nil, echo.NewHTTPError(http.StatusInternalServerError)
	}
	return job, nil
}

func saveUpload(file *multipart.FileHeader, path string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return dst.Close()
}

// extension keeps a short alphanumeric extension of the uploaded file name
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func validate(data *Data) error {
	if data.Store == nil {
		return fmt.Errorf("no Store")
	}
	if data.Queue == nil {
		return fmt.Errorf("no Queue")
	}
	if data.WorkDir == "" {
		return fmt.Errorf("no WorkDir")
	}
	if data.Timeout <= 0 {
		return fmt.Errorf("no Timeout")
	}
	return nil
}
