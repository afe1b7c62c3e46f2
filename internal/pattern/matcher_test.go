package pattern

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxpadi/taxpadi/internal/common"
	"github.com/taxpadi/taxpadi/internal/model"
)

// fakeStore is an in-memory PatternStore for matcher tests.
type fakeStore struct {
	patterns          map[string]*model.BusinessPattern
	increments        map[int64]int
	failAll           bool
	incrementFailures int
	mu                sync.Mutex
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		patterns:   make(map[string]*model.BusinessPattern),
		increments: make(map[int64]int),
	}
}

func (f *fakeStore) add(p model.BusinessPattern) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns[p.TenantID+"|"+p.PatternText] = &p
}

func (f *fakeStore) GetPatternByText(_ context.Context, tenantID, patternText string) (*model.BusinessPattern, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, fmt.Errorf("store down")
	}
	if p, ok := f.patterns[tenantID+"|"+patternText]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, fmt.Errorf("pattern %q: %w", patternText, common.ErrNotFound)
}

func (f *fakeStore) GetTopPatterns(_ context.Context, tenantID string, _ int) ([]model.BusinessPattern, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, fmt.Errorf("store down")
	}
	var out []model.BusinessPattern
	for _, p := range f.patterns {
		if p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) IncrementPatternUsage(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementFailures > 0 {
		f.incrementFailures--
		return fmt.Errorf("database is locked")
	}
	f.increments[id]++
	return nil
}

func (f *fakeStore) UpsertPatternOnCorrection(context.Context, string, string, string, bool) error {
	return nil
}

func (f *fakeStore) incrementsFor(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.increments[id]
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "opay trf from adebayo", Normalize("  OPAY   TRF from\tADEBAYO "))
	assert.Equal(t, "", Normalize("   "))
}

func TestChannelPrefix(t *testing.T) {
	assert.Equal(t, "pos:", ChannelPrefix(model.SignalFlags{IsPOS: true}))
	assert.Equal(t, "mm_opay:", ChannelPrefix(model.SignalFlags{IsMobileMoney: true, MobileMoneyProvider: "opay"}))
	assert.Equal(t, "ussd:", ChannelPrefix(model.SignalFlags{IsUSSD: true}))
	// POS wins when several channel flags are set.
	assert.Equal(t, "pos:", ChannelPrefix(model.SignalFlags{IsPOS: true, IsUSSD: true}))
	assert.Equal(t, "", ChannelPrefix(model.SignalFlags{}))
}

func TestScore(t *testing.T) {
	t.Run("equality returns stored confidence", func(t *testing.T) {
		assert.InDelta(t, 0.85, Score("opay trf adebayo", "opay trf adebayo", 0.85), 1e-9)
	})

	t.Run("containment scales by length ratio", func(t *testing.T) {
		input := "opay trf from adebayo stores lagos"
		stored := "adebayo stores"
		want := 0.9 * 0.70 * (float64(len(stored)) / float64(len(input)))
		assert.InDelta(t, want, Score(input, stored, 0.9), 1e-9)
	})

	t.Run("containment is symmetric", func(t *testing.T) {
		a, b := "adebayo stores", "opay trf from adebayo stores lagos"
		assert.InDelta(t, Score(a, b, 0.9), Score(b, a, 0.9), 1e-9)
	})

	t.Run("token overlap", func(t *testing.T) {
		// input tokens {trf, adebayo, ventures}, stored {trf, adebayo, stores}:
		// 2 shared over max set size 3.
		want := 0.9 * (2.0 / 3.0) * 0.50
		assert.InDelta(t, want, Score("trf adebayo ventures", "trf adebayo stores", 0.9), 1e-9)
	})

	t.Run("no overlap scores zero", func(t *testing.T) {
		assert.Zero(t, Score("alpha beta", "gamma delta", 0.9))
	})
}

func TestFindExactPrefixedBeforePlain(t *testing.T) {
	store := newFakeStore()
	store.add(model.BusinessPattern{
		ID: 1, TenantID: "t1", PatternText: "pos:adebayo stores",
		Category: "sale", Confidence: 0.92,
	})
	store.add(model.BusinessPattern{
		ID: 2, TenantID: "t1", PatternText: "adebayo stores",
		Category: "expense", Confidence: 0.80,
	})

	m := NewMatcher(store, nil)
	match := m.Find(context.Background(), "t1", "ADEBAYO  STORES", model.SignalFlags{IsPOS: true})

	require.NotNil(t, match)
	assert.Equal(t, "sale", match.Pattern.Category)
	assert.InDelta(t, 0.92, match.Score, 1e-9)
}

func TestFindFallsBackToPlainExact(t *testing.T) {
	store := newFakeStore()
	store.add(model.BusinessPattern{
		ID: 2, TenantID: "t1", PatternText: "adebayo stores",
		Category: "sale", Confidence: 0.80,
	})

	m := NewMatcher(store, nil)
	match := m.Find(context.Background(), "t1", "Adebayo Stores", model.SignalFlags{IsPOS: true})

	require.NotNil(t, match)
	assert.Equal(t, int64(2), match.Pattern.ID)
}

func TestFindExactBelowFloorIsIgnored(t *testing.T) {
	store := newFakeStore()
	store.add(model.BusinessPattern{
		ID: 1, TenantID: "t1", PatternText: "adebayo stores",
		Category: "sale", Confidence: 0.50,
	})

	m := NewMatcher(store, nil)
	match := m.Find(context.Background(), "t1", "adebayo stores", model.SignalFlags{})

	assert.Nil(t, match)
}

func TestFindFuzzy(t *testing.T) {
	store := newFakeStore()
	store.add(model.BusinessPattern{
		ID: 3, TenantID: "t1", PatternText: "adebayo stores",
		Category: "sale", Confidence: 0.95,
	})

	m := NewMatcher(store, nil)
	// Containment: the narration contains the stored text.
	match := m.Find(context.Background(), "t1", "TRF adebayo stores", model.SignalFlags{})

	require.NotNil(t, match)
	assert.Equal(t, int64(3), match.Pattern.ID)
	assert.Less(t, match.Score, 0.95)
	assert.Greater(t, match.Score, 0.0)
}

func TestFindFuzzyRespectsFloors(t *testing.T) {
	store := newFakeStore()
	// Weak overlap on a weak pattern stays below the floors.
	store.add(model.BusinessPattern{
		ID: 4, TenantID: "t1", PatternText: "transfer kola ventures abuja",
		Category: "sale", Confidence: 0.60,
	})

	m := NewMatcher(store, nil)
	match := m.Find(context.Background(), "t1", "transfer chioma enterprises kano", model.SignalFlags{})

	assert.Nil(t, match)
}

func TestFindTenantIsolation(t *testing.T) {
	store := newFakeStore()
	store.add(model.BusinessPattern{
		ID: 5, TenantID: "other", PatternText: "adebayo stores",
		Category: "sale", Confidence: 0.95,
	})

	m := NewMatcher(store, nil)
	match := m.Find(context.Background(), "t1", "adebayo stores", model.SignalFlags{})

	assert.Nil(t, match)
}

func TestFindStoreFailureIsNoMatch(t *testing.T) {
	store := newFakeStore()
	store.failAll = true

	m := NewMatcher(store, nil)
	match := m.Find(context.Background(), "t1", "adebayo stores", model.SignalFlags{})

	assert.Nil(t, match)
}

func TestFindEmptyNarration(t *testing.T) {
	m := NewMatcher(newFakeStore(), nil)
	assert.Nil(t, m.Find(context.Background(), "t1", "   ", model.SignalFlags{}))
}

func TestFindRecordsUsage(t *testing.T) {
	store := newFakeStore()
	store.add(model.BusinessPattern{
		ID: 7, TenantID: "t1", PatternText: "adebayo stores",
		Category: "sale", Confidence: 0.90,
	})

	m := NewMatcher(store, nil)
	match := m.Find(context.Background(), "t1", "adebayo stores", model.SignalFlags{})
	require.NotNil(t, match)

	// Usage is recorded on a background goroutine.
	assert.Eventually(t, func() bool {
		return store.incrementsFor(7) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestFindRetriesUsageWrite(t *testing.T) {
	store := newFakeStore()
	store.add(model.BusinessPattern{
		ID: 8, TenantID: "t1", PatternText: "adebayo stores",
		Category: "sale", Confidence: 0.90,
	})
	store.incrementFailures = 2

	m := NewMatcher(store, nil)
	match := m.Find(context.Background(), "t1", "adebayo stores", model.SignalFlags{})
	require.NotNil(t, match)

	// Transient write failures are retried until the counter lands.
	assert.Eventually(t, func() bool {
		return store.incrementsFor(8) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStripChannelPrefix(t *testing.T) {
	assert.Equal(t, "adebayo stores", stripChannelPrefix("pos:adebayo stores"))
	assert.Equal(t, "adebayo stores", stripChannelPrefix("mm_opay:adebayo stores"))
	// A colon past the first word is not a channel tag.
	assert.Equal(t, "payment ref: 42", stripChannelPrefix("payment ref: 42"))
	assert.Equal(t, "no prefix here", stripChannelPrefix("no prefix here"))
}
