// Package store implements the durable backing document shared by every
// cell that persists to the same path.
//
// The document is a single JSON object mapping a property name to a
// two-element array [value, computed_at], computed_at being seconds since the
// Unix epoch:
//
//	{"answer": [42, 1700000000.25], "motd": ["hello", 1700000003.5]}
//
// Every Load reads the whole document and every Update rewrites it. Rewrites
// go to a temporary file in the same directory which is then renamed over the
// document, so readers only ever observe a complete document. Writers within
// one process are serialised per path; writers in different processes are not
// coordinated and can lose each other's updates.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"math"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"

	"github.com/krisalay/cached-property/types"
)

// defaultFS is shared so that every store created without WithFS agrees on
// the per-path lock.
var defaultFS core.FS = billy.NewLocal()

// pathLocks holds one mutex per (filesystem, path) pair.
var pathLocks sync.Map // map[lockKey]*sync.Mutex

type lockKey struct {
	fs   core.FS
	path string
}

// FileStore is a types.Store backed by a JSON document on a core.FS.
type FileStore struct {
	fs     core.FS
	path   string
	mu     *sync.Mutex
	logger *slog.Logger
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithFS sets the filesystem the document lives on. The default is the local
// disk. The filesystem identifies the per-path lock, so its dynamic type must
// be comparable; pointer implementations such as the billy filesystems are.
func WithFS(fsys core.FS) Option {
	return func(s *FileStore) {
		s.fs = fsys
	}
}

// WithLogger sets the logger used for read and write diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// NewFileStore returns a store for the document at path. The document does
// not need to exist yet.
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	if path == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "store path cannot be empty")
	}

	s := &FileStore{
		fs:     defaultFS,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fs == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "store filesystem cannot be nil")
	}
	if !reflect.TypeOf(s.fs).Comparable() {
		return nil, errors.Newf(errors.CodeInvalidConfig, "store filesystem %T is not comparable", s.fs)
	}

	// The local filesystem is rooted at "/", so relative paths have to be
	// resolved against the working directory first.
	if s.fs.Type() == core.FSTypeLocal {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeInvalidConfig, "failed to resolve store path %q", path)
		}
		path = abs
	}
	s.path = filepath.Clean(path)

	lock, _ := pathLocks.LoadOrStore(lockKey{fs: s.fs, path: s.path}, &sync.Mutex{})
	s.mu = lock.(*sync.Mutex)
	s.logger = s.logger.With("path", s.path)

	return s, nil
}

// Path returns the location of the document.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the record stored under key. See types.Store.
func (s *FileStore) Load(ctx context.Context, key string) (types.Record, bool) {
	s.mu.Lock()
	doc, err := s.read()
	s.mu.Unlock()
	if err != nil {
		s.logger.DebugContext(ctx, "durable store unreadable", "key", key, "error", err)
		return types.Record{}, false
	}

	raw, ok := doc[key]
	if !ok {
		return types.Record{}, false
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		s.logger.DebugContext(ctx, "durable record malformed", "key", key, "error", err)
		return types.Record{}, false
	}
	return rec, true
}

// Update sets or, for a nil record, removes key and rewrites the document.
func (s *FileStore) Update(ctx context.Context, key string, rec *types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		// An unreadable document is replaced rather than repaired.
		doc = make(map[string]json.RawMessage)
	}

	if rec == nil {
		// Nothing to remove from a healthy or missing document.
		if _, ok := doc[key]; !ok && (err == nil || errors.GetCode(err) == errors.CodeNotFound) {
			return nil
		}
		delete(doc, key)
	} else {
		raw, err := encodeRecord(*rec)
		if err != nil {
			return err
		}
		doc[key] = raw
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to encode store document")
	}
	return s.writeAtomically(ctx, data)
}

// read loads the whole document. A missing file is an error like any other;
// callers decide whether that means "empty".
func (s *FileStore) read() (map[string]json.RawMessage, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, errors.CodeNotFound, "store document does not exist")
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to read store document")
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "store document is not a JSON object")
	}
	if doc == nil {
		// The literal "null" decodes to a nil map.
		return nil, errors.New(errors.CodeInvalidInput, "store document is null")
	}
	return doc, nil
}

// writeAtomically writes data next to the document and renames it into place.
func (s *FileStore) writeAtomically(ctx context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, errors.CodeInternal, "failed to create directory %q", dir)
		}
	}

	tmp := filepath.Join(dir, "."+filepath.Base(s.path)+"."+uuid.NewString()+".tmp")
	if err := s.fs.WriteFile(tmp, data, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrap(err, errors.CodeInternal, "failed to write temporary store file")
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrapf(err, errors.CodeInternal, "failed to replace store document %q", s.path)
	}

	s.logger.DebugContext(ctx, "durable store written", "bytes", len(data))
	return nil
}

// decodeRecord parses a [value, computed_at] pair.
func decodeRecord(raw json.RawMessage) (types.Record, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return types.Record{}, errors.New(errors.CodeNotFound, "record was cleared")
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil {
		return types.Record{}, errors.Wrap(err, errors.CodeInvalidInput, "record is not an array")
	}
	if len(pair) != 2 {
		return types.Record{}, errors.Newf(errors.CodeInvalidInput, "record has %d elements, want 2", len(pair))
	}

	var secs *float64
	if err := json.Unmarshal(pair[1], &secs); err != nil {
		return types.Record{}, errors.Wrap(err, errors.CodeInvalidInput, "record timestamp is not a number")
	}
	if secs == nil {
		return types.Record{}, errors.New(errors.CodeInvalidInput, "record has no timestamp")
	}

	return types.Record{Value: pair[0], ComputedAt: fromSeconds(*secs)}, nil
}

func encodeRecord(rec types.Record) (json.RawMessage, error) {
	value := rec.Value
	if len(value) == 0 {
		value = json.RawMessage("null")
	}
	raw, err := json.Marshal([]any{value, toSeconds(rec.ComputedAt)})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "failed to encode record")
	}
	return raw, nil
}

func toSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromSeconds(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second)))
}

var _ types.Store = (*FileStore)(nil)
