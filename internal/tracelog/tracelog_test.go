package tracelog_test

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/tracelog"
)

func newCapturingTracer() (*tracelog.Tracer, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.Out = &buf
	logger.Level = logrus.DebugLevel
	logger.Formatter = &logrus.JSONFormatter{}
	return tracelog.New(logger), &buf
}

func TestWithModulePhaseRuntimeAttachesFields(t *testing.T) {
	tracer, buf := newCapturingTracer()

	tracer.WithModule("entry.js").WithPhase("factorize").WithRuntime("main").Infof("resolved")

	out := buf.String()
	require.Contains(t, out, `"module":"entry.js"`)
	require.Contains(t, out, `"phase":"factorize"`)
	require.Contains(t, out, `"runtime":"main"`)
	require.Contains(t, out, `"msg":"resolved"`)
}

func TestCacheHitAndMissLogDistinctMessages(t *testing.T) {
	tracer, buf := newCapturingTracer()

	tracer.CacheHit("abc123")
	require.Contains(t, buf.String(), "persisted cache hit")
	require.Contains(t, buf.String(), `"key":"abc123"`)

	buf.Reset()
	tracer.CacheMiss("def456")
	require.Contains(t, buf.String(), "persisted cache miss")
	require.Contains(t, buf.String(), `"key":"def456"`)
}

func TestRebuildStartedAndFinishedReportGenerationAndChunkCount(t *testing.T) {
	tracer, buf := newCapturingTracer()

	tracer.RebuildStarted(3)
	require.Contains(t, buf.String(), `"generation":3`)

	buf.Reset()
	tracer.RebuildFinished(3, 7)
	out := buf.String()
	require.Contains(t, out, `"generation":3`)
	require.Contains(t, out, `"chunks_touched":7`)
}
