// =============================================================================
// Stock Scan - Snapshot Storage
// =============================================================================
//
// Two durable backends implement session.Store:
//   - FileStore   : a JSON document mapping namespaces to snapshots
//   - SQLiteStore : one row per namespace in a SQLite database
//
// Both key the snapshot by a fixed namespace, so several tools (or several
// versions of the snapshot format) can share one file without clobbering
// each other. A missing snapshot loads as the empty state; an unreadable one
// loads as the empty state together with session.ErrStorageCorrupt.
//
// =============================================================================

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ginjaninja78/stock-scan/internal/config"
	"github.com/ginjaninja78/stock-scan/internal/session"
)

// Durable is a store backed by a file that can drop its own snapshot.
// Both backends implement it; session.MemoryStore does not.
type Durable interface {
	session.Store
	Clear(ctx context.Context) error
	Path() string
}

var (
	_ Durable = (*FileStore)(nil)
	_ Durable = (*SQLiteStore)(nil)
)

// New opens the backend selected in the storage settings.
func New(settings config.StorageSettings) (Durable, error) {
	switch settings.Backend {
	case config.BackendSQLite:
		s, err := OpenSQLite(settings.Path, settings.Namespace)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendFile, "":
		return NewFileStore(settings.Path, settings.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", settings.Backend)
	}
}

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps snapshots in a JSON document on disk:
//
//	{ "stockscan_state_v1": { ...snapshot... }, "other": { ... } }
type FileStore struct {
	path      string
	namespace string

	mu sync.Mutex
}

// NewFileStore returns a store writing to path under namespace.
func NewFileStore(path, namespace string) *FileStore {
	if namespace == "" {
		namespace = config.DefaultNamespace
	}
	return &FileStore{path: path, namespace: namespace}
}

// Path returns the document path.
func (f *FileStore) Path() string { return f.path }

// Load implements session.Store.
func (f *FileStore) Load(_ context.Context) (session.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readDocument()
	if err != nil {
		return session.Empty(), err
	}
	raw, ok := doc[f.namespace]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return session.Empty(), nil
	}
	return session.Decode(raw)
}

// Save implements session.Store. Other namespaces in the document are kept;
// a corrupt document is replaced.
func (f *FileStore) Save(_ context.Context, s session.State) error {
	data, err := session.Encode(s)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readDocument()
	if err != nil {
		doc = make(map[string]json.RawMessage)
	}
	doc[f.namespace] = data

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot document: %w", err)
	}
	return writeFileAtomic(f.path, out)
}

// Clear removes this namespace from the document.
func (f *FileStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readDocument()
	if err != nil {
		return os.Remove(f.path)
	}
	if _, ok := doc[f.namespace]; !ok {
		return nil
	}
	delete(doc, f.namespace)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot document: %w", err)
	}
	return writeFileAtomic(f.path, out)
}

// readDocument returns the namespace map. A missing file is an empty map.
func (f *FileStore) readDocument() (map[string]json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read snapshot document: %w", err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return make(map[string]json.RawMessage), fmt.Errorf("%w: %v", session.ErrStorageCorrupt, err)
	}
	return doc, nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
