// Package cachestore implements spec.md §6's persisted cache layout: a
// content-addressed blob store keyed by a hash of (kind, key, options),
// generalizing the teacher's internal/cache (an in-process AST cache keyed
// by file path) into something that survives across process invocations on
// a real filesystem. Entries are immutable once written, mirroring the
// teacher's own invariant ("the AST information in the cache must be
// considered immutable") — a changed input gets a new key, never an
// overwrite.
package cachestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"

	"github.com/bundlecore/bundlecore/internal/workpool"
)

// ErrNotFound is returned by Get when no blob exists for a key.
var ErrNotFound = errors.New("cachestore: entry not found")

// Key identifies one cache entry. Kind namespaces unrelated cache
// consumers (codegen results, parsed ASTs, resolve answers, ...) so two
// callers can never collide even if their own keys happen to match.
type Key struct {
	Kind    string
	Id      string
	Options string
}

// Hash returns the content-addressed digest Store uses as the entry's
// filename, so identical (kind, id, options) always resolves to the same
// path regardless of Id's own length or character set.
func (k Key) Hash() string {
	h := sha256.New()
	h.Write([]byte(k.Kind))
	h.Write([]byte{0})
	h.Write([]byte(k.Id))
	h.Write([]byte{0})
	h.Write([]byte(k.Options))
	return hex.EncodeToString(h.Sum(nil))
}

// Store is a content-addressed, zstd-compressed blob store. afero.Fs lets
// tests run against an in-memory filesystem and production run against the
// OS filesystem with the same code path (spec.md §6 "in-memory for tests,
// OS-backed in prod").
type Store struct {
	fs      afero.Fs
	root    string
	mu      sync.Mutex
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	writes  *workpool.Limiter
}

// WithWriteLimiter bounds how many Put calls may have their filesystem
// write in flight at once, independent of however many callers are
// concurrently invoking Put (a large parallel codegen fan-out shouldn't
// also turn into an equally wide burst of concurrent disk writes). Returns
// s for chaining after NewStore.
func (s *Store) WithWriteLimiter(l *workpool.Limiter) *Store {
	s.writes = l
	return s
}

// NewStore opens (creating if needed) a persisted cache rooted at root on
// fs. Pass afero.NewMemMapFs() for tests, afero.NewOsFs() in production.
func NewStore(fs afero.Fs, root string) (*Store, error) {
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &Store{fs: fs, root: root, encoder: enc, decoder: dec}, nil
}

func (s *Store) Close() {
	s.encoder.Close()
	s.decoder.Close()
}

// pathFor shards entries into two levels of subdirectory by hash prefix
// (the same layout a content-addressed object store like git's uses) so no
// single directory accumulates millions of entries.
func (s *Store) pathFor(hash string) string {
	return filepath.Join(s.root, hash[:2], hash[2:4], hash)
}

// Get returns a previously Put blob for key, or ErrNotFound.
func (s *Store) Get(key Key) ([]byte, error) {
	path := s.pathFor(key.Hash())
	compressed, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decoder.DecodeAll(compressed, nil)
}

// Put stores value under key, compressing with zstd. Safe to call
// concurrently for distinct keys; two writers racing on the same key both
// succeed and agree on content, since the key is a hash of the content's
// own identity, not of this write.
func (s *Store) Put(key Key, value []byte) error {
	path := s.pathFor(key.Hash())
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	s.mu.Lock()
	compressed := s.encoder.EncodeAll(value, make([]byte, 0, len(value)))
	s.mu.Unlock()

	write := func() error {
		f, err := afero.TempFile(s.fs, filepath.Dir(path), filepath.Base(path)+".tmp*")
		if err != nil {
			return err
		}
		tmp := f.Name()
		if _, err := io.Copy(f, bytes.NewReader(compressed)); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		return s.fs.Rename(tmp, path)
	}

	if s.writes != nil {
		return s.writes.Do(context.Background(), write)
	}
	return write()
}

// Has reports whether key has an entry, without paying the decompression
// cost Get does.
func (s *Store) Has(key Key) bool {
	_, err := s.fs.Stat(s.pathFor(key.Hash()))
	return err == nil
}
