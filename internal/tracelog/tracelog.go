// Package tracelog is the orchestration layer's internal trace log: hook
// dispatch, the factorize pool, incremental chunk-graph rebuilds, and
// persisted cache hits/misses all go through here. It is deliberately not
// internal/logger; that package is the user-facing diagnostics surface
// (errors and warnings about the user's own source), streamed to the
// terminal in clang's format. This one is operational, structured, and
// off by default: a maintainer trying to understand why a rebuild touched
// more chunks than expected turns it on, users never see it.
package tracelog

import (
	"github.com/sirupsen/logrus"
)

// Tracer is a structured logger scoped to a module, build phase, and/or
// runtime. Every field added via With* returns a new Tracer so callers can
// narrow scope down a call chain without mutating a shared instance.
type Tracer struct {
	entry logrus.FieldLogger
}

// New wraps a logrus.FieldLogger (normally logrus.StandardLogger(), or a
// *logrus.Logger dedicated to tracing so its level can be toggled
// independently of internal/logger's own output).
func New(base logrus.FieldLogger) *Tracer {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return &Tracer{entry: base}
}

// WithModule scopes subsequent log calls to a module identifier.
func (t *Tracer) WithModule(module string) *Tracer {
	return &Tracer{entry: t.entry.WithField("module", module)}
}

// WithPhase scopes subsequent log calls to a named build phase, e.g.
// "factorize", "chunk-graph-rebuild", "persisted-cache".
func (t *Tracer) WithPhase(phase string) *Tracer {
	return &Tracer{entry: t.entry.WithField("phase", phase)}
}

// WithRuntime scopes subsequent log calls to a runtime key.
func (t *Tracer) WithRuntime(runtime string) *Tracer {
	return &Tracer{entry: t.entry.WithField("runtime", runtime)}
}

// WithFields scopes subsequent log calls with arbitrary extra fields, for
// call sites that carry something beyond module/phase/runtime (a chunk id,
// a cache key hash, a rebuild generation number).
func (t *Tracer) WithFields(fields logrus.Fields) *Tracer {
	return &Tracer{entry: t.entry.WithFields(fields)}
}

func (t *Tracer) Debugf(format string, args ...interface{}) { t.entry.Debugf(format, args...) }
func (t *Tracer) Infof(format string, args ...interface{})  { t.entry.Infof(format, args...) }
func (t *Tracer) Warnf(format string, args ...interface{})  { t.entry.Warnf(format, args...) }

// CacheHit and CacheMiss give the persisted-cache call sites (see
// internal/codegen's PersistedChunkCache) a one-line call instead of
// repeating the same WithFields shape at every caller.
func (t *Tracer) CacheHit(key string) {
	t.entry.WithField("key", key).Debug("persisted cache hit")
}

func (t *Tracer) CacheMiss(key string) {
	t.entry.WithField("key", key).Debug("persisted cache miss")
}

// RebuildStarted and RebuildFinished bracket one incremental chunk-graph
// rebuild, reporting how many chunks it touched.
func (t *Tracer) RebuildStarted(generation int) {
	t.entry.WithField("generation", generation).Debug("incremental rebuild started")
}

func (t *Tracer) RebuildFinished(generation int, chunksTouched int) {
	t.entry.WithFields(logrus.Fields{
		"generation":     generation,
		"chunks_touched": chunksTouched,
	}).Debug("incremental rebuild finished")
}
