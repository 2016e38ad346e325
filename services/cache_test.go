package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"backend_realty/models"
	"backend_realty/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// memoryListingStore хранилище кэша в памяти для тестов
type memoryListingStore struct {
	mu        sync.Mutex
	values    map[string]string
	beforeSet func()
	getErr    error
}

func newMemoryListingStore() *memoryListingStore {
	return &memoryListingStore{values: map[string]string{}}
}

func (m *memoryListingStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	val, ok := m.values[key]
	if !ok {
		return "", errCacheMiss
	}
	return val, nil
}

func (m *memoryListingStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	if hook := m.beforeSet; hook != nil {
		m.beforeSet = nil
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryListingStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.values[key], 10, 64)
	n++
	m.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func TestListingCache_Disabled(t *testing.T) {
	cache := NewListingCache(nil, 0, nil)
	ctx := context.Background()

	assert.False(t, cache.Enabled())
	assert.Equal(t, CacheTTLShort, cache.ttl)

	gen, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Zero(t, gen)

	var dest []string
	hit, err := cache.GetJSON(ctx, "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, cache.SetJSON(ctx, "k", []string{"a"}))
	assert.NoError(t, cache.InvalidatePublicListings(ctx))
}

func TestListingCache_InvalidateMovesGeneration(t *testing.T) {
	ctx := context.Background()
	cache := newListingCache(newMemoryListingStore(), time.Minute, testutils.NewTestLogger())
	filter := PropertyFilter{City: "Almaty"}

	gen, err := cache.Generation(ctx)
	require.NoError(t, err)
	key := PublicListingKey(gen, filter)
	require.NoError(t, cache.SetJSON(ctx, key, []string{"p1"}))

	require.NoError(t, cache.InvalidatePublicListings(ctx))

	next, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)
	assert.NotEqual(t, key, PublicListingKey(next, filter))

	var dest []string
	hit, err := cache.GetJSON(ctx, PublicListingKey(next, filter), &dest)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestPublicListingKey(t *testing.T) {
	minPrice := 100.0
	assert.Equal(t,
		"listing:public:g3:tx=rent:type=:city=Astana:min=100:max=-:featured=true",
		PublicListingKey(3, PropertyFilter{TransactionType: "rent", City: "Astana", MinPrice: &minPrice, FeaturedOnly: true}))
}

func TestPropertyService_ListPublicCache(t *testing.T) {
	mt := testutils.NewMockT(t)

	mt.Run("second read is served from cache", func(mt *mtest.T) {
		svc := newTestPropertyService(mt)
		svc.cache = newListingCache(newMemoryListingStore(), time.Minute, testutils.NewTestLogger())
		property := testutils.CreateTestProperty("Студия", nil)
		mt.AddMockResponses(testutils.CursorResponse(testutils.ToDoc(mt.T, property)))

		first, err := svc.ListPublic(context.Background(), PropertyFilter{})
		require.NoError(mt, err)
		second, err := svc.ListPublic(context.Background(), PropertyFilter{})
		require.NoError(mt, err)

		require.Len(mt, second, 1)
		assert.Equal(mt, first[0].ID, second[0].ID)
		assert.Len(mt, mt.GetAllStartedEvents(), 1)
	})

	mt.Run("archive during a fill is not served afterwards", func(mt *mtest.T) {
		store := newMemoryListingStore()
		svc := newTestPropertyService(mt)
		svc.cache = newListingCache(store, time.Minute, testutils.NewTestLogger())
		property := testutils.CreateTestProperty("Студия", nil)
		mt.AddMockResponses(
			testutils.CursorResponse(testutils.ToDoc(mt.T, property)),
			testutils.UpdateResponse(1, 1),
			testutils.CursorResponse(),
		)

		store.beforeSet = func() {
			require.NoError(mt, svc.SoftDelete(context.Background(), Scope{Role: models.RoleOwner}, property.ID))
		}

		stale, err := svc.ListPublic(context.Background(), PropertyFilter{})
		require.NoError(mt, err)
		require.Len(mt, stale, 1)

		fresh, err := svc.ListPublic(context.Background(), PropertyFilter{})
		require.NoError(mt, err)
		assert.Empty(mt, fresh)
	})

	mt.Run("unreadable generation bypasses cache", func(mt *mtest.T) {
		store := newMemoryListingStore()
		store.getErr = errors.New("redis down")
		svc := newTestPropertyService(mt)
		svc.cache = newListingCache(store, time.Minute, testutils.NewTestLogger())
		mt.AddMockResponses(testutils.CursorResponse())

		items, err := svc.ListPublic(context.Background(), PropertyFilter{})
		require.NoError(mt, err)
		assert.Empty(mt, items)
		assert.Empty(mt, store.values)
	})
}
