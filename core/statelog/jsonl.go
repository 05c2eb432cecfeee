package statelog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/parkpulse/parkpulse/core/model"
)

// JSONLStore stores transitions in a JSONL file.
type JSONLStore struct {
	path string
	mu   sync.Mutex
}

func NewJSONLStore(path string) (*JSONLStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	if cerr := f.Close(); cerr != nil {
		return nil, cerr
	}
	return &JSONLStore{path: path}, nil
}

func (s *JSONLStore) Append(_ context.Context, tr model.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	return enc.Encode(tr)
}

func (s *JSONLStore) Query(_ context.Context, q Query) ([]model.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var res []model.Transition
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var tr model.Transition
		if err := json.Unmarshal(scanner.Bytes(), &tr); err != nil {
			continue
		}
		if match(tr, q) {
			res = append(res, tr)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *JSONLStore) Close() error { return nil }
