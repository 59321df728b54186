package db

import (
	"context"
	"sync"

	"github.com/airenas/transcriber/internal/domain"
)

// MemoryDataManager keeps jobs and results in process memory
type MemoryDataManager struct {
	jobs    map[string]*domain.Job
	results map[string][]byte

	lock sync.RWMutex
}

func NewMemoryDataManager() *MemoryDataManager {
	return &MemoryDataManager{
		jobs:    make(map[string]*domain.Job),
		results: make(map[string][]byte),
	}
}

func (am *MemoryDataManager) SaveJob(_ context.Context, job *domain.Job) error {
	am.lock.Lock()
	defer am.lock.Unlock()
	cp := *job
	am.jobs[job.ID] = &cp
	return nil
}

func (am *MemoryDataManager) GetJob(_ context.Context, id string) (*domain.Job, error) {
	am.lock.RLock()
	defer am.lock.RUnlock()
	data, ok := am.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *data
	return &cp, nil
}

func (am *MemoryDataManager) SaveResult(_ context.Context, id string, data []byte) error {
	am.lock.Lock()
	defer am.lock.Unlock()
	am.results[id] = append([]byte(nil), data...)
	return nil
}

func (am *MemoryDataManager) GetResult(_ context.Context, id string) ([]byte, error) {
	am.lock.RLock()
	defer am.lock.RUnlock()
	data, ok := am.results[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (am *MemoryDataManager) Close() error {
	return nil
}
