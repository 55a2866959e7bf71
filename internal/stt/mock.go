package stt

import (
	"context"
	"fmt"
	"sync"

	"github.com/loqalabs/loqa-dictate/internal/model"
)

// MockLoader returns models that answer with scripted texts in order, then a
// placeholder describing the segment.
type MockLoader struct {
	mu    sync.Mutex
	texts []string
	next  int
}

func NewMockLoader(texts ...string) *MockLoader {
	return &MockLoader{texts: texts}
}

func (l *MockLoader) Load(_ context.Context, _ string) (model.Model, error) {
	return &mockModel{loader: l}, nil
}

func (l *MockLoader) take() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.next >= len(l.texts) {
		return "", false
	}
	t := l.texts[l.next]
	l.next++
	return t, true
}

type mockModel struct {
	loader *MockLoader
}

func (m *mockModel) Transcribe(_ context.Context, samples []int16, sampleRate int, _ model.Hints) (model.Result, error) {
	if text, ok := m.loader.take(); ok {
		return model.Result{Text: text, Confidence: 1}, nil
	}
	ms := 0
	if sampleRate > 0 {
		ms = len(samples) * 1000 / sampleRate
	}
	return model.Result{Text: fmt.Sprintf("[transcript %dms]", ms)}, nil
}

func (m *mockModel) Close() error { return nil }
