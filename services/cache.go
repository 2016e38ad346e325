package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Префикс ключей публичной выдачи
const publicListingPrefix = "listing:public:"

// Счетчик поколений публичной выдачи. Ключи прошлых поколений истекают по TTL.
const publicListingGenKey = publicListingPrefix + "gen"

// CacheTTLShort TTL публичной выдачи по умолчанию
const CacheTTLShort = 2 * time.Minute

var errCacheMiss = errors.New("cache miss")

// listingStore минимальный набор операций Redis, нужный кэшу выдачи
type listingStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

type redisListingStore struct {
	client *redis.Client
}

func (s redisListingStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errCacheMiss
	}
	return val, err
}

func (s redisListingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s redisListingStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

// ListingCache кэширует публичную выдачу объектов в Redis.
// Без подключения к Redis все методы ничего не делают.
type ListingCache struct {
	store  listingStore
	ttl    time.Duration
	logger *logrus.Logger
}

// NewListingCache создает новый экземпляр ListingCache
func NewListingCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *ListingCache {
	var store listingStore
	if redisClient != nil {
		store = redisListingStore{client: redisClient}
	}
	return newListingCache(store, ttl, logger)
}

func newListingCache(store listingStore, ttl time.Duration, logger *logrus.Logger) *ListingCache {
	if ttl <= 0 {
		ttl = CacheTTLShort
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ListingCache{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// Enabled сообщает, подключен ли Redis
func (lc *ListingCache) Enabled() bool {
	return lc != nil && lc.store != nil
}

// Generation возвращает текущее поколение выдачи. Отсутствующий счетчик равен 0.
func (lc *ListingCache) Generation(ctx context.Context) (int64, error) {
	if !lc.Enabled() {
		return 0, nil
	}

	val, err := lc.store.Get(ctx, publicListingGenKey)
	if errors.Is(err, errCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	gen, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное поколение кэша %q: %w", val, err)
	}
	return gen, nil
}

// PublicListingKey генерирует ключ кэша для фильтра в заданном поколении выдачи
func PublicListingKey(gen int64, filter PropertyFilter) string {
	return fmt.Sprintf("%sg%d:tx=%s:type=%s:city=%s:min=%v:max=%v:featured=%t",
		publicListingPrefix, gen, filter.TransactionType, filter.PropertyType, filter.City,
		optionalFloat(filter.MinPrice), optionalFloat(filter.MaxPrice), filter.FeaturedOnly)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

// GetJSON читает значение из кэша. Промах возвращает false без ошибки.
func (lc *ListingCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !lc.Enabled() {
		return false, nil
	}

	val, err := lc.store.Get(ctx, key)
	if errors.Is(err, errCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("ошибка десериализации JSON: %w", err)
	}
	return true, nil
}

// SetJSON сохраняет значение в кэш с TTL выдачи
func (lc *ListingCache) SetJSON(ctx context.Context, key string, value interface{}) error {
	if !lc.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка сериализации JSON: %w", err)
	}
	return lc.store.Set(ctx, key, string(data), lc.ttl)
}

// InvalidatePublicListings переводит выдачу в новое поколение.
// Запись, начатая до сброса, попадает под ключ старого поколения и больше не читается.
func (lc *ListingCache) InvalidatePublicListings(ctx context.Context) error {
	if !lc.Enabled() {
		return nil
	}
	_, err := lc.store.Incr(ctx, publicListingGenKey)
	return err
}

// invalidate сбрасывает кэш и только логирует ошибку: запись в БД уже выполнена
func (lc *ListingCache) invalidate(ctx context.Context) {
	if err := lc.InvalidatePublicListings(ctx); err != nil {
		lc.logger.WithError(err).Warn("failed to invalidate public listing cache")
	}
}
