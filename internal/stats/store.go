// Package stats samples host CPU, memory, and disk usage on a fixed
// interval and keeps a bounded history for the dashboard graphs.
package stats

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Sample is one point of host usage, percentages in [0,100].
type Sample struct {
	TS   int64   `json:"ts"`
	CPU  float64 `json:"cpu"`
	RAM  float64 `json:"ram"`
	Disk float64 `json:"disk"`
}

// Store holds the bounded sample history: an in-memory window backed by a
// JSONL file so graphs survive restarts.
type Store struct {
	path string
	max  int

	mu       sync.Mutex
	samples  []Sample
	appended int
}

// NewStore opens (or creates) the store at path, keeping at most max
// samples. An unreadable or corrupt line in an existing file is skipped
// rather than failing startup.
func NewStore(path string, max int) (*Store, error) {
	st := &Store{path: path, max: max}
	if err := st.load(); err != nil {
		return nil, err
	}
	return st, nil
}

// Append records one sample, evicting the oldest when the window is full.
func (st *Store) Append(s Sample) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.samples = append(st.samples, s)
	if len(st.samples) > st.max {
		st.samples = st.samples[len(st.samples)-st.max:]
	}

	// The file grows past max between compactions; rewriting on every
	// sample would thrash the disk for nothing.
	st.appended++
	if st.appended >= st.max {
		st.appended = 0
		return st.rewrite()
	}
	return st.appendLine(s)
}

// Recent returns a copy of the in-memory window, oldest first.
func (st *Store) Recent() []Sample {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Sample, len(st.samples))
	copy(out, st.samples)
	return out
}

func (st *Store) load() error {
	f, err := os.Open(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open stats file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var s Sample
		if err := json.Unmarshal(scanner.Bytes(), &s); err != nil {
			continue
		}
		st.samples = append(st.samples, s)
	}
	if len(st.samples) > st.max {
		st.samples = st.samples[len(st.samples)-st.max:]
	}
	return scanner.Err()
}

func (st *Store) appendLine(s Sample) error {
	f, err := os.OpenFile(st.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("append stats file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

func (st *Store) rewrite() error {
	var buf []byte
	for _, s := range st.samples {
		line, err := json.Marshal(s)
		if err != nil {
			return err
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return os.WriteFile(st.path, buf, 0o644)
}
