// Package store loads persisted range indexes from the data directory.
// Each index is a JSON-lines file: one {"range": ..., "value": ...}
// object per line.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TomasB/ipintel/internal/rangeidx"
)

// Entry is one persisted line of an index file.
type Entry[V any] struct {
	Range string `json:"range"`
	Value V      `json:"value"`
}

// Read parses every entry of the named index file. It fails if the
// file is missing, unreadable or contains a malformed line.
func Read[V any](path string) ([]Entry[V], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	var entries []Entry[V]
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry[V]
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("corrupt index file %s line %d: %w", filepath.Base(path), line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read index file %s: %w", filepath.Base(path), err)
	}
	return entries, nil
}

// ReadIndex loads the named index file into a finalized RangeIndex
// with the given overlap policy.
func ReadIndex[V any](path string, policy rangeidx.Policy) (*rangeidx.Index[V], error) {
	entries, err := Read[V](path)
	if err != nil {
		return nil, err
	}
	idx := rangeidx.New[V](policy)
	for _, e := range entries {
		if err := idx.Add(e.Range, e.Value); err != nil {
			return nil, fmt.Errorf("corrupt index file %s: %w", filepath.Base(path), err)
		}
	}
	if err := idx.Finalize(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Version reports the freshness of the index file, taken from its
// modification time.
func Version(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat index file: %w", err)
	}
	return info.ModTime(), nil
}
