package screening

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-callguard/internal/callguard/common/clock"
	"github.com/haukened/rr-callguard/internal/callguard/domain"
	"github.com/haukened/rr-callguard/internal/callguard/repos/ruleset"
)

// Mock implementations for testing

type MockRules struct {
	mock.Mock
}

func (m *MockRules) Snapshot() (ruleset.Snapshot, error) {
	args := m.Called()
	return args.Get(0).(ruleset.Snapshot), args.Error(1)
}

type staticSettings struct{ s domain.Settings }

func (s staticSettings) Get() domain.Settings { return s.s }

type captureRecorder struct {
	mu     sync.Mutex
	recs   []domain.BlockedCallRecord
	accept bool
}

func (c *captureRecorder) Submit(rec domain.BlockedCallRecord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec)
	return c.accept
}

type panicRules struct{}

func (panicRules) Snapshot() (ruleset.Snapshot, error) { panic("corrupt snapshot") }

type mapCache struct {
	m    map[string]domain.Decision
	gets int
}

func (c *mapCache) Get(k string) (domain.Decision, bool) {
	c.gets++
	d, ok := c.m[k]
	return d, ok
}

func (c *mapCache) Put(k string, d domain.Decision) { c.m[k] = d }
func (c *mapCache) Len() int                        { return len(c.m) }
func (c *mapCache) Purge()                          { c.m = map[string]domain.Decision{} }
func (c *mapCache) Stats() ruleset.CacheStats       { return ruleset.CacheStats{Size: len(c.m)} }

var decisionTime = time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC)

func newTestScreener(rules RuleSnapshots, rec Recorder, opts ...func(*ScreenerOptions)) *Screener {
	o := ScreenerOptions{
		Rules:    rules,
		Settings: staticSettings{domain.DefaultSettings()},
		Recorder: rec,
		Clock:    &clock.MockClock{CurrentTime: decisionTime},
	}
	for _, f := range opts {
		f(&o)
	}
	return NewScreener(o)
}

func snapshot(version uint64, patterns ...string) ruleset.Snapshot {
	return ruleset.Snapshot{Version: version, Rules: enabledRules(patterns...)}
}

func TestScreener_BlockSubmitsRecord(t *testing.T) {
	rules := &MockRules{}
	rules.On("Snapshot").Return(snapshot(1, "0162"), nil)
	rec := &captureRecorder{accept: true}
	s := newTestScreener(rules, rec)

	d := s.ScreenCall(context.Background(), "0162000000")

	assert.True(t, d.Blocked)
	assert.Equal(t, "0162", d.Rule.Pattern)
	require.Len(t, rec.recs, 1)
	assert.Equal(t, domain.BlockedCallRecord{
		Number:         "0162000000",
		MatchedPattern: "0162",
		Timestamp:      decisionTime.UnixMilli(),
	}, rec.recs[0])
	rules.AssertExpectations(t)
}

func TestScreener_AllowWritesNoRecord(t *testing.T) {
	rules := &MockRules{}
	rules.On("Snapshot").Return(snapshot(1, "0162"), nil)
	rec := &captureRecorder{accept: true}
	s := newTestScreener(rules, rec)

	d := s.ScreenCall(context.Background(), "0612345678")

	assert.False(t, d.Blocked)
	assert.Empty(t, rec.recs)
}

func TestScreener_RejectedSubmitDoesNotChangeDecision(t *testing.T) {
	rules := &MockRules{}
	rules.On("Snapshot").Return(snapshot(1, "0162"), nil)
	s := newTestScreener(rules, &captureRecorder{accept: false})

	assert.True(t, s.ScreenCall(context.Background(), "0162000000").Blocked)
}

func TestScreener_NoRecorderStillBlocks(t *testing.T) {
	rules := &MockRules{}
	rules.On("Snapshot").Return(snapshot(1, "0162"), nil)
	s := newTestScreener(rules, nil)

	assert.True(t, s.ScreenCall(context.Background(), "0162000000").Blocked)
}

func TestScreener_FailsOpen(t *testing.T) {
	t.Run("store error", func(t *testing.T) {
		rules := &MockRules{}
		rules.On("Snapshot").Return(ruleset.Snapshot{}, errors.New("db closed"))
		rec := &captureRecorder{accept: true}
		s := newTestScreener(rules, rec)

		assert.False(t, s.ScreenCall(context.Background(), "0162000000").Blocked)
		assert.Empty(t, rec.recs)
	})
	t.Run("no rule source", func(t *testing.T) {
		s := newTestScreener(nil, nil)
		assert.False(t, s.ScreenCall(context.Background(), "0162000000").Blocked)
	})
	t.Run("panic", func(t *testing.T) {
		s := newTestScreener(panicRules{}, nil)
		var d domain.Decision
		assert.NotPanics(t, func() { d = s.ScreenCall(context.Background(), "0162000000") })
		assert.False(t, d.Blocked)
	})
	t.Run("expired context", func(t *testing.T) {
		rules := &MockRules{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := newTestScreener(rules, nil)

		assert.False(t, s.ScreenCall(ctx, "0162000000").Blocked)
		rules.AssertNotCalled(t, "Snapshot")
	})
}

func TestScreener_ShortCircuits(t *testing.T) {
	t.Run("blocking disabled", func(t *testing.T) {
		rules := &MockRules{}
		off := domain.DefaultSettings()
		off.BlockingEnabled = false
		s := newTestScreener(rules, nil, func(o *ScreenerOptions) { o.Settings = staticSettings{off} })

		assert.False(t, s.ScreenCall(context.Background(), "0162000000").Blocked)
		rules.AssertNotCalled(t, "Snapshot")
	})
	t.Run("empty number", func(t *testing.T) {
		rules := &MockRules{}
		s := newTestScreener(rules, nil)
		assert.False(t, s.ScreenCall(context.Background(), "").Blocked)
		rules.AssertNotCalled(t, "Snapshot")
	})
	t.Run("no enabled rules", func(t *testing.T) {
		rules := &MockRules{}
		rules.On("Snapshot").Return(ruleset.Snapshot{Version: 1}, nil)
		s := newTestScreener(rules, nil)
		assert.False(t, s.ScreenCall(context.Background(), "0162000000").Blocked)
	})
}

func TestScreener_CacheKeyedBySnapshotVersion(t *testing.T) {
	rules := &MockRules{}
	rules.On("Snapshot").Return(snapshot(1, "0162"), nil).Once()
	rules.On("Snapshot").Return(snapshot(2, "0163"), nil)
	cache := &mapCache{m: map[string]domain.Decision{}}
	rec := &captureRecorder{accept: true}
	s := newTestScreener(rules, rec, func(o *ScreenerOptions) { o.Cache = cache })

	assert.True(t, s.ScreenCall(context.Background(), "0162000000").Blocked)
	assert.Equal(t, 1, cache.Len())

	// new snapshot: the v1 decision must not be served
	assert.False(t, s.ScreenCall(context.Background(), "0162000000").Blocked)
	assert.Equal(t, 2, cache.Len())

	// cached block still produces an audit record per call
	assert.True(t, s.ScreenCall(context.Background(), "0163000000").Blocked)
	assert.True(t, s.ScreenCall(context.Background(), "0163000000").Blocked)
	assert.Len(t, rec.recs, 3)
}

func TestScreener_ConcurrentCalls(t *testing.T) {
	rules := &MockRules{}
	rules.On("Snapshot").Return(snapshot(1, "0162"), nil)
	rec := &captureRecorder{accept: true}
	s := newTestScreener(rules, rec)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n := "0612345678"
			if i%2 == 0 {
				n = "0162000000"
			}
			d := s.ScreenCall(context.Background(), n)
			assert.Equal(t, i%2 == 0, d.Blocked)
		}(i)
	}
	wg.Wait()
	assert.Len(t, rec.recs, 25)
}
