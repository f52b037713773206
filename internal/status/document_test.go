package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarshal_RoundTrip(t *testing.T) {
	doc := &Document{
		Task:       "wiring the egress proxy",
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Blocked:    false,
		Tests:      TestsPassed,
		Confidence: ConfidenceHigh,
		Todos:      "3/5",
	}

	data, err := Marshal(doc)
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Task, got.Task)
	assert.True(t, doc.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, doc.Tests, got.Tests)
	assert.Equal(t, doc.Confidence, got.Confidence)
	assert.Equal(t, doc.Todos, got.Todos)
}

func TestParse_MinimalDocument(t *testing.T) {
	got, err := Parse([]byte("task: in progress\ntimestamp: 2026-01-02T03:04:05Z\nblocked: true\n"))
	require.NoError(t, err)
	assert.Equal(t, "in progress", got.Task)
	assert.True(t, got.Blocked)
	assert.Empty(t, got.Tests)
	assert.Empty(t, got.Confidence)
}

func TestIsFresh(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	fresh := &Document{Timestamp: now.Add(-10 * time.Second)}
	stale := &Document{Timestamp: now.Add(-5 * time.Minute)}

	assert.True(t, IsFresh(fresh, now))
	assert.False(t, IsFresh(stale, now))
}
