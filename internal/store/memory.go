package store

import (
	"context"
	"sync"

	"github.com/dlovans/formrt/pkg/formrt"
)

type memoryStore struct {
	mu    sync.RWMutex
	forms map[string]*formrt.Form
}

// NewMemoryStore creates a process-local form store.
func NewMemoryStore() FormStore {
	return &memoryStore{forms: make(map[string]*formrt.Form)}
}

func (s *memoryStore) Create(ctx context.Context, form *formrt.Form) (string, error) {
	if err := Prepare(form); err != nil {
		return "", err
	}
	stored, err := clone(form)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms[stored.ID] = stored
	return stored.ID, nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (*formrt.Form, error) {
	s.mu.RLock()
	form, ok := s.forms[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrFormNotFound
	}
	return clone(form)
}

func (s *memoryStore) Update(ctx context.Context, form *formrt.Form) error {
	if form == nil || form.ID == "" {
		return ErrFormNotFound
	}
	if err := Prepare(form); err != nil {
		return err
	}
	stored, err := clone(form)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[form.ID]; !ok {
		return ErrFormNotFound
	}
	s.forms[form.ID] = stored
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[id]; !ok {
		return ErrFormNotFound
	}
	delete(s.forms, id)
	return nil
}
