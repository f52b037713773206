package state

import (
	"sync"
	"testing"
	"time"

	"github.com/para-dev/para/internal/common/paraerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestStore_PutGet_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	rec := &Record{Name: "auth-api", Branch: "para/auth-api", State: Active, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Put(rec, false))

	got, err := s.Get("auth-api")
	require.NoError(t, err)
	assert.Equal(t, "para/auth-api", got.Branch)
}

func TestStore_Put_RejectsNameCollisionWithoutOverwrite(t *testing.T) {
	s := newTestStore(t)
	rec := &Record{Name: "auth-api", State: Active}
	require.NoError(t, s.Put(rec, false))

	err := s.Put(rec, false)
	require.Error(t, err)
	assert.True(t, paraerr.IsConflict(err))
}

func TestStore_Put_InvalidNames(t *testing.T) {
	s := newTestStore(t)
	cases := []string{
		"", ".dot", "a/b", "has space", "lock", "current",
		string(make([]byte, 65)),
	}
	for _, name := range cases {
		err := s.Put(&Record{Name: name}, false)
		assert.Error(t, err, "expected %q to be rejected", name)
	}
}

func TestStore_Put_BoundaryLengths(t *testing.T) {
	s := newTestStore(t)
	name64 := make([]byte, 64)
	for i := range name64 {
		name64[i] = 'a'
	}
	require.NoError(t, s.Put(&Record{Name: string(name64)}, false))

	name65 := append(name64, 'a')
	err := s.Put(&Record{Name: string(name65)}, false)
	require.Error(t, err)
}

func TestStore_Get_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("missing")
	require.Error(t, err)
	assert.True(t, paraerr.IsNotFound(err))
}

func TestStore_ArchiveAndList(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(&Record{Name: "x", State: Finished}, false))
	require.NoError(t, s.Archive("x"))

	active, err := s.List(FilterActiveOnly)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := s.List(FilterIncludeArchived)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotNil(t, all[0].ArchivedAt)
}

func TestStore_Restore(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(&Record{Name: "x", State: Cancelled}, false))
	require.NoError(t, s.Archive("x"))

	rec, err := s.Restore("x")
	require.NoError(t, err)
	assert.Equal(t, Active, rec.State)

	_, err = s.Get("x")
	require.NoError(t, err)
}

func TestStore_SweepRetention(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(&Record{Name: "old", State: Finished}, false))
	require.NoError(t, s.Archive("old"))

	// A negative retention window treats "now" as already past the cutoff,
	// exercising the sweep without needing to fabricate an aged timestamp.
	removed, err := s.SweepRetention(-1 * time.Hour)
	require.NoError(t, err)
	assert.Contains(t, removed, "old")

	_, err = s.GetArchived("old")
	require.Error(t, err)
}

func TestStore_SweepRetention_KeepsRecentRecords(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(&Record{Name: "fresh", State: Cancelled}, false))
	require.NoError(t, s.Archive("fresh"))

	removed, err := s.SweepRetention(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestStore_ConcurrentPut_OnlyOneSucceeds(t *testing.T) {
	s := newTestStore(t)
	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Put(&Record{Name: "contested", State: Active}, false)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
}
