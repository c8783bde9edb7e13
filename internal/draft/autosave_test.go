package draft

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// countingStore records how many writes reach the backend.
type countingStore struct {
	*MemoryStore
	sets    atomic.Int32
	failSet atomic.Bool
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: NewMemoryStore(time.Minute)}
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.failSet.Load() {
		return errors.New("store unavailable")
	}
	s.sets.Add(1)
	return s.MemoryStore.Set(ctx, key, value, ttl)
}

func sessionWithName(name string) *Session {
	s := NewSession(testNow)
	s.Draft.SellerFullName = name
	return s
}

const debounce = 30 * time.Millisecond

func TestAutosaver_DebouncesWrites(t *testing.T) {
	store := newCountingStore()
	a := NewAutosaver(store, debounce, time.Hour, zap.NewNop())
	ctx := context.Background()

	for _, name := range []string{"a", "ab", "abc", "abcd"} {
		require.NoError(t, a.Save(ctx, "uid-1", sessionWithName(name)))
	}

	_, err := store.Get(ctx, "uid-1")
	assert.ErrorIs(t, err, ErrDraftNotFound, "nothing written before the debounce interval")

	loaded, err := a.Load(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "abcd", loaded.Draft.SellerFullName)

	assert.Eventually(t, func() bool { return store.sets.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * debounce)
	assert.EqualValues(t, 1, store.sets.Load())

	raw, err := store.Get(ctx, "uid-1")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"seller_full_name":"abcd"`)
}

func TestAutosaver_FlushWritesImmediately(t *testing.T) {
	store := newCountingStore()
	a := NewAutosaver(store, time.Hour, time.Hour, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, "uid-1", sessionWithName("Jane")))
	require.NoError(t, a.Flush(ctx, "uid-1"))
	assert.EqualValues(t, 1, store.sets.Load())

	require.NoError(t, a.Flush(ctx, "uid-1"))
	assert.EqualValues(t, 1, store.sets.Load(), "nothing pending after a flush")
}

func TestAutosaver_FailedFlushKeepsPendingValue(t *testing.T) {
	store := newCountingStore()
	store.failSet.Store(true)
	a := NewAutosaver(store, time.Hour, time.Hour, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, "uid-1", sessionWithName("Jane")))
	assert.Error(t, a.Flush(ctx, "uid-1"))

	loaded, err := a.Load(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane", loaded.Draft.SellerFullName)

	store.failSet.Store(false)
	require.NoError(t, a.FlushAll(ctx))
	assert.EqualValues(t, 1, store.sets.Load())
}

func TestAutosaver_ClearCancelsPendingWrite(t *testing.T) {
	store := newCountingStore()
	a := NewAutosaver(store, debounce, time.Hour, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "uid-1", []byte(`{}`), time.Hour))
	require.NoError(t, a.Save(ctx, "uid-1", sessionWithName("Jane")))
	require.NoError(t, a.Clear(ctx, "uid-1"))

	time.Sleep(3 * debounce)
	_, err := a.Load(ctx, "uid-1")
	assert.ErrorIs(t, err, ErrDraftNotFound)
	assert.EqualValues(t, 1, store.sets.Load(), "only the seeded write happened")
}

func TestAutosaver_CloseFlushesAndRejectsSaves(t *testing.T) {
	store := newCountingStore()
	a := NewAutosaver(store, time.Hour, time.Hour, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, "uid-1", sessionWithName("one")))
	require.NoError(t, a.Save(ctx, "uid-2", sessionWithName("two")))
	require.NoError(t, a.Close(ctx))
	assert.EqualValues(t, 2, store.sets.Load())

	assert.ErrorIs(t, a.Save(ctx, "uid-1", sessionWithName("late")), ErrClosed)
}

func TestAutosaver_WriteThroughWithoutDebounce(t *testing.T) {
	store := newCountingStore()
	a := NewAutosaver(store, 0, time.Hour, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, "uid-1", sessionWithName("Jane")))
	assert.EqualValues(t, 1, store.sets.Load())

	loaded, err := a.Load(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane", loaded.Draft.SellerFullName)
	assert.Equal(t, StepSellerInfo, loaded.Wizard.Step)
}

type RedisStoreTestSuite struct {
	suite.Suite
	mr    *miniredis.Miniredis
	store *RedisStore
	ctx   context.Context
}

func (s *RedisStoreTestSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.store = NewRedisStore(redis.NewClient(&redis.Options{Addr: s.mr.Addr()}))
	s.ctx = context.Background()
}

func (s *RedisStoreTestSuite) TestSetGetDelete() {
	s.Require().NoError(s.store.Set(s.ctx, "uid-1", []byte(`{"draft":{}}`), 2*time.Hour))

	got, err := s.store.Get(s.ctx, "uid-1")
	s.Require().NoError(err)
	s.Equal(`{"draft":{}}`, string(got))
	s.Equal(2*time.Hour, s.mr.TTL(keyPrefix+"uid-1"))

	s.Require().NoError(s.store.Delete(s.ctx, "uid-1"))
	_, err = s.store.Get(s.ctx, "uid-1")
	s.ErrorIs(err, ErrDraftNotFound)
}

func (s *RedisStoreTestSuite) TestEntriesExpire() {
	s.Require().NoError(s.store.Set(s.ctx, "uid-1", []byte(`{}`), time.Minute))
	s.mr.FastForward(2 * time.Minute)

	_, err := s.store.Get(s.ctx, "uid-1")
	s.ErrorIs(err, ErrDraftNotFound)
}

func (s *RedisStoreTestSuite) TestAutosaverRoundTrip() {
	a := NewAutosaver(s.store, 0, time.Hour, zap.NewNop())
	sess := sessionWithName("Jane")
	sess.Wizard.Step = StepStory

	s.Require().NoError(a.Save(s.ctx, "uid-1", sess))
	loaded, err := a.Load(s.ctx, "uid-1")
	s.Require().NoError(err)
	s.Equal(StepStory, loaded.Wizard.Step)
	s.Equal("Jane", loaded.Draft.SellerFullName)

	s.Require().NoError(a.Clear(s.ctx, "uid-1"))
	s.False(s.mr.Exists(keyPrefix + "uid-1"))
}

func (s *RedisStoreTestSuite) TestBackendErrorsAreWrapped() {
	s.mr.SetError("ERR backend unavailable")
	defer s.mr.SetError("")
	_, err := s.store.Get(s.ctx, "uid-1")
	s.Error(err)
	s.NotErrorIs(err, ErrDraftNotFound)
}

func TestRedisStoreTestSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreTestSuite))
}
