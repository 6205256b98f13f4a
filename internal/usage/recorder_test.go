package usage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noesis/internal/pipeline"
)

func openTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecordAndSummarize(t *testing.T) {
	r := openTestRecorder(t)

	r.Record(pipeline.TurnRecord{
		Route:         pipeline.RouteMath,
		Difficulty:    pipeline.DifficultyMedium,
		UseSpecialist: true,
		UseVerifier:   true,
		Latency:       120 * time.Millisecond,
	})
	r.Record(pipeline.TurnRecord{
		Route:      pipeline.RouteGeneral,
		Difficulty: pipeline.DifficultyEasy,
		CacheHit:   true,
		Streamed:   true,
		Latency:    40 * time.Millisecond,
	})
	r.Record(pipeline.TurnRecord{
		Route:         pipeline.RouteCode,
		Difficulty:    pipeline.DifficultyHard,
		UseSpecialist: true,
		ToolsUsed:     true,
		Latency:       200 * time.Millisecond,
	})

	s, err := r.Summarize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, s.Turns)
	assert.Equal(t, 1, s.CacheHits)
	assert.Equal(t, 2, s.SpecialistTurns)
	assert.Equal(t, 1, s.VerifierTurns)
	assert.Equal(t, 1, s.ToolTurns)
	assert.Equal(t, 1, s.StreamedTurns)
	assert.Equal(t, 120*time.Millisecond, s.AvgLatency)
	assert.Equal(t, map[string]int{"math": 1, "general": 1, "code": 1}, s.ByRoute)
}

func TestSummarizeEmpty(t *testing.T) {
	r := openTestRecorder(t)

	s, err := r.Summarize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Turns)
	assert.Empty(t, s.ByRoute)
	assert.Equal(t, time.Duration(0), s.AvgLatency)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")

	r, err := Open(path)
	require.NoError(t, err)
	r.Record(pipeline.TurnRecord{Route: pipeline.RouteMath, Difficulty: pipeline.DifficultyEasy})
	require.NoError(t, r.Close())

	r2, err := Open(path)
	require.NoError(t, err)
	defer r2.Close()

	s, err := r2.Summarize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Turns)
}
