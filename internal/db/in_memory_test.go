package db

import (
	"context"
	"errors"
	"testing"

	"github.com/airenas/transcriber/internal/domain"
)

func TestMemoryDataManager_Job(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDataManager()
	if _, err := m.GetJob(ctx, "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetJob() = %v, want ErrNotFound", err)
	}
	job := &domain.Job{ID: "1", State: domain.Queued}
	if err := m.SaveJob(ctx, job); err != nil {
		t.Fatal(err)
	}
	job.State = domain.Failed
	got, err := m.GetJob(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != domain.Queued {
		t.Errorf("stored job changed by caller: %v", got.State)
	}
	got.State = domain.Done
	again, _ := m.GetJob(ctx, "1")
	if again.State != domain.Queued {
		t.Errorf("stored job changed by reader: %v", again.State)
	}
}

func TestMemoryDataManager_Result(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDataManager()
	if _, err := m.GetResult(ctx, "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetResult() = %v, want ErrNotFound", err)
	}
	data := []byte(`{"text": "a"}`)
	if err := m.SaveResult(ctx, "1", data); err != nil {
		t.Fatal(err)
	}
	data[0] = 'x'
	got, err := m.GetResult(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"text": "a"}` {
		t.Errorf("GetResult() = %s", got)
	}
}
