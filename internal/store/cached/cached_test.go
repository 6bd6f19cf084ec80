package cached

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-std/internal/place"
	"place-std/internal/store"
	"place-std/internal/store/mem"
)

// countingBackend：统计回源次数；release 非 nil 时每次回源阻塞到其关闭
type countingBackend struct {
	inner      *mem.Store
	placeCalls atomic.Int32
	wordCalls  atomic.Int32
	entered    chan struct{}
	release    chan struct{}
	fail       atomic.Bool
}

func newCountingBackend() *countingBackend {
	m := mem.New()
	m.Add(&place.Place{ID: 1, Name: "USA", Level: 1, CountryID: 1})
	m.AddWord("usa", 1)
	return &countingBackend{inner: m}
}

func (b *countingBackend) wait() {
	if b.entered != nil {
		select {
		case b.entered <- struct{}{}:
		default:
		}
	}
	if b.release != nil {
		<-b.release
	}
}

func (b *countingBackend) Place(ctx context.Context, id int) (*place.Place, error) {
	b.placeCalls.Add(1)
	b.wait()
	if b.fail.Load() {
		return nil, errors.New("backend down")
	}
	return b.inner.Place(ctx, id)
}

func (b *countingBackend) Words(ctx context.Context, token string) ([]int, error) {
	b.wordCalls.Add(1)
	b.wait()
	if b.fail.Load() {
		return nil, errors.New("backend down")
	}
	return b.inner.Words(ctx, token)
}

func newStore(t *testing.T, b store.Store) *Store {
	t.Helper()
	s, err := New(b, Options{PlaceSize: 100, WordSize: 100})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestCacheAside(t *testing.T) {
	b := newCountingBackend()
	s := newStore(t, b)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := s.Place(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "USA", p.Name)
		ids, err := s.Words(ctx, "usa")
		require.NoError(t, err)
		assert.Equal(t, []int{1}, ids)
	}
	assert.EqualValues(t, 1, b.placeCalls.Load())
	assert.EqualValues(t, 1, b.wordCalls.Load())
}

func TestAbsentEntries(t *testing.T) {
	b := newCountingBackend()
	s := newStore(t, b)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ids, err := s.Words(ctx, "atlantis")
		require.NoError(t, err)
		assert.Empty(t, ids)

		_, err = s.Place(ctx, 42)
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
	assert.EqualValues(t, 1, b.wordCalls.Load(), "absent words are cached as empty")
	assert.EqualValues(t, 2, b.placeCalls.Load(), "absent places are refetched")
}

func TestFailuresAreNotCached(t *testing.T) {
	b := newCountingBackend()
	b.fail.Store(true)
	s := newStore(t, b)
	ctx := context.Background()

	_, err := s.Place(ctx, 1)
	require.Error(t, err)
	_, err = s.Words(ctx, "usa")
	require.Error(t, err)

	b.fail.Store(false)
	p, err := s.Place(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)
	ids, err := s.Words(ctx, "usa")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids)
	assert.EqualValues(t, 2, b.placeCalls.Load())
	assert.EqualValues(t, 2, b.wordCalls.Load())
}

func TestConcurrentMissesCoalesce(t *testing.T) {
	b := newCountingBackend()
	b.entered = make(chan struct{}, 1)
	b.release = make(chan struct{})
	s := newStore(t, b)

	const callers = 32
	var wg sync.WaitGroup
	results := make([]*place.Place, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := s.Place(context.Background(), 1)
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	<-b.entered
	time.Sleep(50 * time.Millisecond)
	close(b.release)
	wg.Wait()

	assert.EqualValues(t, 1, b.placeCalls.Load())
	for _, p := range results {
		assert.Same(t, results[0], p)
	}
}

func TestConcurrentFailureShared(t *testing.T) {
	b := newCountingBackend()
	b.fail.Store(true)
	b.entered = make(chan struct{}, 1)
	b.release = make(chan struct{})
	s := newStore(t, b)

	const callers = 8
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Words(context.Background(), "usa"); err != nil {
				failures.Add(1)
			}
		}()
	}
	<-b.entered
	time.Sleep(50 * time.Millisecond)
	close(b.release)
	wg.Wait()

	assert.EqualValues(t, callers, failures.Load())
	assert.LessOrEqual(t, b.wordCalls.Load(), int32(callers))
}

func TestDegradesThroughReader(t *testing.T) {
	b := newCountingBackend()
	b.fail.Store(true)
	r := store.NewReader(newStore(t, b))
	assert.Nil(t, r.Place(context.Background(), 1))
	assert.Nil(t, r.Words(context.Background(), "usa"))
}
