package ruleset

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
	"github.com/haukened/rr-callguard/internal/callguard/repos/rules"
)

// --- fakes ---

type fakeStore struct {
	rules.Store // unused methods panic

	mu      sync.Mutex
	enabled []domain.PrefixRule
	err     error
	calls   int
}

func (s *fakeStore) ListEnabled() ([]domain.PrefixRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.PrefixRule(nil), s.enabled...), nil
}

func (s *fakeStore) set(rs []domain.PrefixRule, err error) {
	s.mu.Lock()
	s.enabled, s.err = rs, err
	s.mu.Unlock()
}

// exactBloom is a Bloom stand-in without false positives.
type exactBloom struct {
	keys map[string]bool
}

func (b *exactBloom) Add(key []byte)               { b.keys[string(key)] = true }
func (b *exactBloom) MightContain(key []byte) bool { return b.keys[string(key)] }

type fakeFactory struct {
	newCalls int
	lastCap  uint64
	last     *exactBloom
}

func (f *fakeFactory) New(capacity uint64, _ float64) BloomFilter {
	f.newCalls++
	f.lastCap = capacity
	f.last = &exactBloom{keys: map[string]bool{}}
	return f.last
}

func enabled(patterns ...string) []domain.PrefixRule {
	out := make([]domain.PrefixRule, len(patterns))
	for i, p := range patterns {
		out[i] = domain.PrefixRule{ID: uint64(i + 1), Pattern: p, Enabled: true}
	}
	return out
}

// --- tests ---

func TestRepository_SnapshotLoadsLazilyOnce(t *testing.T) {
	st := &fakeStore{enabled: enabled("0162")}
	repo := NewRepository(Options{Store: st, Factory: &fakeFactory{}})

	s1, err := repo.Snapshot()
	require.NoError(t, err)
	s2, err := repo.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, 1, st.calls)
	assert.Equal(t, uint64(1), s1.Version)
	assert.Equal(t, s1.Version, s2.Version)
	assert.Len(t, s1.Rules, 1)
}

func TestRepository_RefreshSwapsAndBumpsVersion(t *testing.T) {
	st := &fakeStore{enabled: enabled("0162")}
	repo := NewRepository(Options{Store: st, Factory: &fakeFactory{}})

	before, err := repo.Snapshot()
	require.NoError(t, err)

	st.set(enabled("0162", "0163"), nil)
	require.NoError(t, repo.Refresh())

	after, err := repo.Snapshot()
	require.NoError(t, err)
	assert.Greater(t, after.Version, before.Version)
	assert.Len(t, after.Rules, 2)
	assert.Len(t, before.Rules, 1, "old snapshot is immutable")
}

func TestRepository_RefreshFailureKeepsPrevious(t *testing.T) {
	st := &fakeStore{enabled: enabled("0162")}
	repo := NewRepository(Options{Store: st})
	_, err := repo.Snapshot()
	require.NoError(t, err)

	st.set(nil, errors.New("disk gone"))
	assert.Error(t, repo.Refresh())

	s, err := repo.Snapshot()
	require.NoError(t, err)
	assert.Len(t, s.Rules, 1)
}

func TestRepository_InitialLoadFailure(t *testing.T) {
	repo := NewRepository(Options{Store: &fakeStore{err: errors.New("boom")}})
	_, err := repo.Snapshot()
	assert.Error(t, err)
}

func TestRepository_NoStore(t *testing.T) {
	repo := NewRepository(Options{})
	_, err := repo.Snapshot()
	assert.Error(t, err)
}

func TestSnapshot_FilterIndexesRawAndNormalized(t *testing.T) {
	f := &fakeFactory{}
	s := newSnapshot(1, enabled("0162", "+33163"), f, 0.01)

	assert.Equal(t, 1, f.newCalls)
	assert.Equal(t, uint64(4), f.lastCap)
	assert.True(t, f.last.keys["0162"])
	assert.True(t, f.last.keys["+33162"])
	assert.True(t, f.last.keys["+33163"])
	assert.False(t, s.matchAll)
}

func TestSnapshot_MightMatch(t *testing.T) {
	s := newSnapshot(1, enabled("0162", "+33163"), &fakeFactory{}, 0.01)
	tests := []struct {
		raw  string
		want bool
	}{
		{"0162000000", true},
		{"+33162000000", true}, // normalized pattern
		{"0163000000", true},   // normalized number hits +33163
		{"33163111111", true},  // bare country code
		{"0612345678", false},  // no pattern is a prefix
		{"+4915112345678", false},
		{"", false},
	}
	for _, tt := range tests {
		got := s.MightMatch(tt.raw, domain.Normalize(tt.raw))
		assert.Equal(t, tt.want, got, "MightMatch(%q)", tt.raw)
	}
}

func TestSnapshot_MightMatchNeverHidesAMatch(t *testing.T) {
	var patterns []string
	for _, r := range domain.DefaultRules(0) {
		patterns = append(patterns, r.Pattern)
	}
	rs := enabled(patterns...)
	s := newSnapshot(1, rs, &fakeFactory{}, 0.01)
	numbers := []string{"0162123456", "+33 1 63 00 00 00", "0425999999", "33270000000", "0612345678", "+4420"}
	for _, n := range numbers {
		norm := domain.Normalize(n)
		_, matched := domain.Match(n, norm, rs)
		if matched {
			assert.True(t, s.MightMatch(n, norm), "prefilter rejected matching number %q", n)
		}
	}
}

func TestSnapshot_EmptyAndDegenerate(t *testing.T) {
	empty := newSnapshot(1, nil, &fakeFactory{}, 0.01)
	assert.True(t, empty.Empty())
	assert.False(t, empty.MightMatch("0162", "+33162"))

	noFilter := newSnapshot(1, enabled("0162"), nil, 0.01)
	assert.True(t, noFilter.MightMatch("0612", "+33612"), "without a filter every number is a candidate")

	degenerate := newSnapshot(1, enabled("0162", "abc"), &fakeFactory{}, 0.01)
	assert.True(t, degenerate.matchAll)
	assert.True(t, degenerate.MightMatch("0612", "+33612"))
}
