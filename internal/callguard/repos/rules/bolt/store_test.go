package bolt

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
	"github.com/haukened/rr-callguard/internal/callguard/infra/boltdb"
	"github.com/haukened/rr-callguard/internal/callguard/repos/rules"
)

func newTestStore(t *testing.T) (rules.Store, *bbolt.DB) {
	t.Helper()
	db, err := boltdb.Open(filepath.Join(t.TempDir(), "rules.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st, err := New(db)
	require.NoError(t, err)
	return st, db
}

func rule(pattern string, createdAt int64, enabled bool) domain.PrefixRule {
	return domain.PrefixRule{Pattern: pattern, Label: "l-" + pattern, Enabled: enabled, CreatedAt: createdAt}
}

func patterns(rs []domain.PrefixRule) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Pattern
	}
	return out
}

func TestBoltStore_InsertAssignsIDs(t *testing.T) {
	st, _ := newTestStore(t)

	id1, err := st.Insert(rule("0162", 1, true))
	require.NoError(t, err)
	id2, err := st.Insert(rule("0163", 2, true))
	require.NoError(t, err)

	assert.NotEqual(t, domain.UnassignedID, id1)
	assert.Greater(t, id2, id1)

	got, ok, err := st.Get(id1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0162", got.Pattern)
	assert.Equal(t, id1, got.ID)
	assert.Equal(t, "l-0162", got.Label)
}

func TestBoltStore_InsertReplacesOnIDConflict(t *testing.T) {
	st, _ := newTestStore(t)

	id, err := st.Insert(rule("0162", 1, true))
	require.NoError(t, err)

	replaced := rule("0170", 5, false)
	replaced.ID = id
	got, err := st.Insert(replaced)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	all, err := st.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "0170", all[0].Pattern)
	assert.False(t, all[0].Enabled)
}

func TestBoltStore_ExplicitIDAdvancesSequence(t *testing.T) {
	st, _ := newTestStore(t)

	explicit := rule("0162", 1, true)
	explicit.ID = 50
	_, err := st.Insert(explicit)
	require.NoError(t, err)

	next, err := st.Insert(rule("0163", 2, true))
	require.NoError(t, err)
	assert.Greater(t, next, uint64(50))

	all, err := st.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBoltStore_ListOrdering(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.Insert(rule("old", 100, true))
	require.NoError(t, err)
	_, err = st.Insert(rule("new", 300, true))
	require.NoError(t, err)
	_, err = st.Insert(rule("mid-disabled", 200, false))
	require.NoError(t, err)
	// same createdAt as "new": the later id sorts first
	_, err = st.Insert(rule("new-tie", 300, true))
	require.NoError(t, err)

	all, err := st.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"new-tie", "new", "mid-disabled", "old"}, patterns(all))

	enabled, err := st.ListEnabled()
	require.NoError(t, err)
	assert.Equal(t, []string{"new-tie", "new", "old"}, patterns(enabled))
}

func TestBoltStore_EmptyListings(t *testing.T) {
	st, _ := newTestStore(t)

	all, err := st.ListAll()
	require.NoError(t, err)
	assert.Empty(t, all)

	_, ok, err := st.Get(1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBoltStore_ExistsTracksInsertAndDelete(t *testing.T) {
	st, _ := newTestStore(t)

	ok, err := st.Exists("0162")
	require.NoError(t, err)
	assert.False(t, ok)

	id, err := st.Insert(rule("0162", 1, true))
	require.NoError(t, err)
	ok, _ = st.Exists("0162")
	assert.True(t, ok, "exists right after insert")

	_, err = st.Insert(rule("0163", 2, true))
	require.NoError(t, err)
	ok, _ = st.Exists("0162")
	assert.True(t, ok, "unaffected by unrelated insert")
	ok, _ = st.Exists("016")
	assert.False(t, ok, "exact match only")

	require.NoError(t, st.Delete(id))
	ok, _ = st.Exists("0162")
	assert.False(t, ok, "gone after delete")
	ok, _ = st.Exists("0163")
	assert.True(t, ok)
}

func TestBoltStore_InsertBatch(t *testing.T) {
	st, _ := newTestStore(t)

	ids, err := st.InsertBatch(domain.DefaultRules(10))
	require.NoError(t, err)
	assert.Len(t, ids, 16)

	stats, err := st.Stats()
	require.NoError(t, err)
	assert.Equal(t, rules.StoreStats{Total: 16, Enabled: 16}, stats)
}

func TestBoltStore_Update(t *testing.T) {
	st, _ := newTestStore(t)

	id, err := st.Insert(rule("0162", 1, true))
	require.NoError(t, err)

	r, _, _ := st.Get(id)
	r.Label = "edited"
	r.Enabled = false
	require.NoError(t, st.Update(r))

	got, _, _ := st.Get(id)
	assert.Equal(t, "edited", got.Label)
	assert.False(t, got.Enabled)
	assert.Equal(t, int64(1), got.CreatedAt)

	missing := rule("x1", 1, true)
	missing.ID = 999
	err = st.Update(missing)
	assert.True(t, errors.Is(err, rules.ErrNotFound))

	err = st.Update(rule("x2", 1, true))
	assert.True(t, errors.Is(err, rules.ErrNotFound), "unassigned id is never found")
}

func TestBoltStore_DeleteMissingIsNoop(t *testing.T) {
	st, _ := newTestStore(t)
	assert.NoError(t, st.Delete(12345))
}

func TestBoltStore_DeleteAllKeepsSequence(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.InsertBatch([]domain.PrefixRule{rule("a1", 1, true), rule("a2", 2, false)})
	require.NoError(t, err)
	require.NoError(t, st.DeleteAll())

	all, err := st.ListAll()
	require.NoError(t, err)
	assert.Empty(t, all)

	id, err := st.Insert(rule("b1", 3, true))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id, "ids are not reused after DeleteAll")
}

func TestBoltStore_CorruptValue(t *testing.T) {
	st, db := newTestStore(t)
	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRules).Put(boltdb.Itob(1), []byte("{not json"))
	}))

	_, err := st.ListAll()
	assert.Error(t, err)
	_, err = st.Exists("x")
	assert.Error(t, err)
	_, _, err = st.Get(1)
	assert.Error(t, err)
}

func TestBoltStore_ConcurrentInserts(t *testing.T) {
	st, _ := newTestStore(t)

	var wg sync.WaitGroup
	ids := make(chan uint64, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := st.Insert(rule("p", int64(i), true))
			assert.NoError(t, err)
			ids <- id
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[uint64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	all, err := st.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 40)
}
