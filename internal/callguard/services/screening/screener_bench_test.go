package screening

import (
	"context"
	"fmt"
	"testing"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
	"github.com/haukened/rr-callguard/internal/callguard/repos/ruleset"
	"github.com/haukened/rr-callguard/internal/callguard/repos/ruleset/lru"
)

type fixedSnapshot struct{ s ruleset.Snapshot }

func (f fixedSnapshot) Snapshot() (ruleset.Snapshot, error) { return f.s, nil }

type discardRecorder struct{}

func (discardRecorder) Submit(domain.BlockedCallRecord) bool { return true }

func benchRules(n int) []domain.PrefixRule {
	out := make([]domain.PrefixRule, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.PrefixRule{ID: uint64(i + 1), Pattern: fmt.Sprintf("09%04d", i), Enabled: true})
	}
	return out
}

// Benchmark the pure pipeline scanning a realistic rule list.
func BenchmarkScreen_Allow(b *testing.B) {
	rs := benchRules(200)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if Screen("0612345678", rs).Blocked {
			b.Fatal("unexpected block")
		}
	}
}

// Benchmark ScreenCall with a warm decision cache.
func BenchmarkScreener_CachedBlock(b *testing.B) {
	cache, err := lru.New(1024)
	if err != nil {
		b.Fatalf("lru.New: %v", err)
	}
	s := NewScreener(ScreenerOptions{
		Rules:    fixedSnapshot{ruleset.Snapshot{Version: 1, Rules: benchRules(200)}},
		Cache:    cache,
		Recorder: discardRecorder{},
	})
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !s.ScreenCall(ctx, "090100123").Blocked {
			b.Fatal("expected block")
		}
	}
}
