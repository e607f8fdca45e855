package understory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jward/understory/internal/analyzer"
	"github.com/jward/understory/internal/cache"
	"github.com/jward/understory/internal/classify"
	"github.com/jward/understory/internal/record"
)

// skipDirs are directories excluded from the walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// walk visits directories sequentially and fans each directory's files out
// to the worker pool. Only one directory's file list is in flight at a
// time, which bounds memory on large trees.
func (e *Engine) walk(ctx context.Context) error {
	return e.walkDir(ctx, e.root)
}

func (e *Engine) walkDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// An unreadable subdirectory costs its own files, nothing else.
		logrus.WithError(err).WithField("dir", dir).Warn("skipping unreadable directory")
		return nil
	}

	module, err := filepath.Rel(e.root, dir)
	if err != nil {
		return fmt.Errorf("module path for %s: %w", dir, err)
	}

	var files []string
	var subdirs []string
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)
		if entry.IsDir() {
			// Never descend into our own output: a second run must not
			// ingest the module logs it wrote.
			if strings.HasPrefix(name, ".") || skipDirs[name] || path == e.outAbs {
				continue
			}
			subdirs = append(subdirs, path)
			continue
		}
		if path == e.cacheAbs {
			continue
		}
		files = append(files, path)
	}

	e.processBatch(ctx, module, files)

	for _, sub := range subdirs {
		if err := e.walkDir(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

// processBatch executes one directory's tasks on a fixed-size worker pool.
// No completion order is guaranteed, within or across directories; a
// task's failure never aborts its siblings.
func (e *Engine) processBatch(ctx context.Context, module string, paths []string) {
	if len(paths) == 0 {
		return
	}

	numWorkers := min(e.workers, len(paths))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan string, len(paths))
	for _, path := range paths {
		workCh <- path
	}
	close(workCh)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range workCh {
				e.processFile(ctx, path, module)
			}
		}()
	}
	wg.Wait()
}

// processFile is one task: classify, cache lookup, dispatch, validate,
// persist. Every failure path here is isolated at the task boundary,
// including analyzer panics, which the dispatcher converts to errors.
func (e *Engine) processFile(ctx context.Context, path, module string) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("path", path).Errorf("task panic: %v", r)
			e.countSkip()
		}
	}()

	cls := classify.Detect(path)
	if cls.Binary {
		logrus.WithField("path", path).Debug("skipping binary file")
		e.countSkip()
		return
	}
	if e.languages != nil && !e.languages[cls.Language] {
		e.countSkip()
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Warn("unreadable file skipped")
		e.countSkip()
		return
	}
	hash := cache.HashBytes(content)

	if cached, ok := e.cache.Lookup(path, hash); ok {
		// Reused record: facts are identical to the prior run, no
		// analyzer or external tool is invoked.
		cached.FilePath = path
		cached.ModulePath = module
		e.commit(cached, path, hash, true)
		return
	}

	req := analyzer.Request{
		Path:       path,
		ModulePath: module,
		Language:   cls.Language,
		Content:    content,
		Size:       int64(len(content)),
	}
	rec, err := e.dispatcher.Dispatch(ctx, req, cls)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Warn("file skipped")
		e.countSkip()
		return
	}
	e.commit(rec, path, hash, false)
}

// commit validates, persists, and indexes one record, then feeds the
// cache. Shared state mutation is confined here.
func (e *Engine) commit(rec *record.Record, path, hash string, fromCache bool) {
	if err := record.Validate(rec); err != nil {
		logrus.WithError(err).WithField("path", path).Error("record discarded")
		e.mu.Lock()
		e.counters.ValidationFailures++
		e.mu.Unlock()
		return
	}

	if err := e.store.Append(rec); err != nil {
		logrus.WithError(err).WithField("path", path).Error("persist failed")
		e.countSkip()
		return
	}

	e.cache.Put(path, hash, rec)

	e.mu.Lock()
	e.modules[rec.ModulePath] = append(e.modules[rec.ModulePath], rec)
	if fromCache {
		e.counters.CacheHits++
	}
	e.counters.Processed++
	e.mu.Unlock()
}

func (e *Engine) countSkip() {
	e.mu.Lock()
	e.counters.Skipped++
	e.mu.Unlock()
}
