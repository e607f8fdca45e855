package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store appends serialized records to one JSON-Lines log per module
// directory. Logs are append-only: reprocessing a file across runs produces
// duplicate lines by design; deduplication is a consumer responsibility.
//
// Concurrent appends to the same module log are serialized by a per-module
// mutex so lines are never interleaved.
type Store struct {
	dir string

	mu    sync.Mutex // guards files and locks maps
	files map[string]*os.File
	locks map[string]*sync.Mutex
}

// NewStore creates the output directory and returns a Store writing into
// it. An uncreatable output directory is a fatal setup error.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Store{
		dir:   dir,
		files: make(map[string]*os.File),
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// LogPath returns the on-disk log file for a module path. The repository
// root module "." maps to root.jsonl; nested modules keep their directory
// structure under the output dir.
func (s *Store) LogPath(module string) string {
	if module == "" || module == "." {
		return filepath.Join(s.dir, "root.jsonl")
	}
	return filepath.Join(s.dir, module+".jsonl")
}

// logFor returns the open log file and its mutex for a module, opening the
// file on first use.
func (s *Store) logFor(module string) (*os.File, *sync.Mutex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.LogPath(module)
	if f, ok := s.files[path]; ok {
		return f, s.locks[path], nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create module log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open module log: %w", err)
	}
	s.files[path] = f
	s.locks[path] = &sync.Mutex{}
	return f, s.locks[path], nil
}

// Append serializes the record and appends it as one line to its module's
// log. Safe for concurrent use across workers.
func (s *Store) Append(r *Record) error {
	f, lock, err := s.logFor(r.ModulePath)
	if err != nil {
		return err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", r.FilePath, err)
	}
	data = append(data, '\n')

	lock.Lock()
	defer lock.Unlock()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append record %s: %w", r.FilePath, err)
	}
	return nil
}

// Verify re-reads a module's log and confirms every line is valid JSON.
func (s *Store) Verify(module string) error {
	return VerifyFile(s.LogPath(module))
}

// VerifyFile confirms every line of a JSON-Lines log parses as JSON.
func VerifyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open module log %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if !json.Valid(sc.Bytes()) {
			return fmt.Errorf("%s line %d: invalid JSON", path, line)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan module log %s: %w", path, err)
	}
	return nil
}

// Close flushes and closes all open module logs.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for path, f := range s.files {
		if err := f.Close(); err != nil && first == nil {
			first = fmt.Errorf("close module log %s: %w", path, err)
		}
		delete(s.files, path)
		delete(s.locks, path)
	}
	return first
}
