// Package cache implements the content-addressed analysis cache. An entry
// is valid for reuse iff its stored hash equals the current content hash of
// the same path; at run end the cache is merged with prior entries for
// untouched files and pruned of entries whose files no longer exist.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jward/understory/internal/record"
)

// Entry pairs a content hash with the full record snapshot produced when
// that content was last analyzed.
type Entry struct {
	Hash     string         `json:"hash"`
	Analysis *record.Record `json:"analysis"`
}

// Cache holds prior-run entries plus entries accumulated during the
// current run. Workers share one Cache; the mutex guards both maps.
type Cache struct {
	path string

	mu    sync.Mutex
	prior map[string]Entry
	run   map[string]Entry
}

// Load reads the cache file at path. A missing or corrupt file is a cold
// start, never an error: the run continues with an empty cache.
func Load(path string) *Cache {
	c := &Cache{
		path:  path,
		prior: make(map[string]Entry),
		run:   make(map[string]Entry),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).Warn("analysis cache unreadable, starting cold")
		}
		return c
	}
	if err := json.Unmarshal(data, &c.prior); err != nil {
		logrus.WithError(err).Warn("analysis cache corrupt, starting cold")
		c.prior = make(map[string]Entry)
	}
	return c
}

// Lookup returns the cached record for path when the stored hash matches
// the current content hash. The returned record is a copy so callers may
// annotate it without mutating the cache.
func (c *Cache) Lookup(path, hash string) (*record.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.prior[path]
	if !ok || e.Hash != hash || e.Analysis == nil {
		return nil, false
	}
	cp := *e.Analysis
	return &cp, true
}

// Put records this run's result for path. Called by workers as files
// complete; safe for concurrent use.
func (c *Cache) Put(path, hash string, rec *record.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run[path] = Entry{Hash: hash, Analysis: rec}
}

// Touched reports whether path was processed this run.
func (c *Cache) Touched(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.run[path]
	return ok
}

// Save merges this run's entries with prior entries for files not touched
// this run, prunes entries whose files no longer exist on disk, and writes
// the result back to the cache file.
func (c *Cache) Save() error {
	return c.SaveWith(func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})
}

// SaveWith is Save with an injectable existence check.
func (c *Cache) SaveWith(exists func(string) bool) error {
	c.mu.Lock()
	merged := make(map[string]Entry, len(c.run)+len(c.prior))
	for path, e := range c.prior {
		if _, touched := c.run[path]; touched {
			continue
		}
		if !exists(path) {
			continue // pruned: file deleted since the last run
		}
		merged[path] = e
	}
	for path, e := range c.run {
		merged[path] = e
	}
	c.mu.Unlock()

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analysis cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write analysis cache: %w", err)
	}
	return nil
}

// Len returns the number of entries accumulated this run.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.run)
}
