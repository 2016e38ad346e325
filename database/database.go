package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"backend_realty/config"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"
)

// Имена коллекций
const (
	CollectionProperties     = "properties"
	CollectionClients        = "clients"
	CollectionDeals          = "deals"
	CollectionAdmins         = "admins"
	CollectionCalendarEvents = "calendar_events"
)

// ConnectivityError ошибка установления или проверки подключения к MongoDB
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("database %s failed: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// DialFunc открывает новый пул подключений
type DialFunc func(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error)

// PingFunc выполняет проверку живости подключения
type PingFunc func(ctx context.Context, client *mongo.Client) error

// Manager владеет единственным пулом подключений процесса.
// Создается один раз при старте и передается в сервисы.
type Manager struct {
	cfg    config.DatabaseConfig
	logger *logrus.Logger
	dial   DialFunc
	ping   PingFunc

	mu     sync.Mutex
	client *mongo.Client
	db     *mongo.Database

	reconnects singleflight.Group
}

// NewManager создает менеджер подключений. Подключение устанавливается лениво при первом Acquire.
func NewManager(cfg config.DatabaseConfig, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		cfg:    cfg,
		logger: logger,
		dial:   defaultDial,
		ping:   defaultPing,
	}
}

// WithDialer подменяет функцию открытия пула (для тестов)
func (m *Manager) WithDialer(dial DialFunc) *Manager {
	m.dial = dial
	return m
}

// WithPinger подменяет проверку живости (для тестов)
func (m *Manager) WithPinger(ping PingFunc) *Manager {
	m.ping = ping
	return m
}

func defaultDial(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	return mongo.Connect(ctx, opts)
}

func defaultPing(ctx context.Context, client *mongo.Client) error {
	return client.Ping(ctx, readpref.Primary())
}

// ClientOptions возвращает параметры пула подключений
func (m *Manager) ClientOptions() *options.ClientOptions {
	return options.Client().
		ApplyURI(m.cfg.URI).
		SetMaxPoolSize(m.cfg.MaxPoolSize).
		SetMinPoolSize(m.cfg.MinPoolSize).
		SetMaxConnIdleTime(m.cfg.MaxConnIdleTime).
		SetServerSelectionTimeout(m.cfg.ServerSelectionTimeout).
		SetSocketTimeout(m.cfg.SocketTimeout)
}

// Acquire возвращает закешированное подключение после проверки живости.
// Если проверка не прошла, пул пересоздается ровно один раз: параллельные
// вызовы дожидаются общего переподключения.
func (m *Manager) Acquire(ctx context.Context) (*mongo.Client, *mongo.Database, error) {
	m.mu.Lock()
	client, db := m.client, m.db
	m.mu.Unlock()

	if client != nil {
		err := m.checkLiveness(ctx, client)
		if err == nil {
			return client, db, nil
		}
		m.logger.WithError(err).Warn("MongoDB liveness check failed, reconnecting")
	}

	v, err, _ := m.reconnects.Do("reconnect", func() (interface{}, error) {
		return m.reconnect(ctx, client)
	})
	if err != nil {
		return nil, nil, err
	}
	h := v.(handle)
	return h.client, h.db, nil
}

type handle struct {
	client *mongo.Client
	db     *mongo.Database
}

// reconnect заменяет пул stale новым. m.mu не удерживается во время dial и ping.
func (m *Manager) reconnect(ctx context.Context, stale *mongo.Client) (handle, error) {
	m.mu.Lock()
	// Другой запрос уже успел переподключиться
	if m.client != nil && m.client != stale {
		current := handle{client: m.client, db: m.db}
		m.mu.Unlock()
		return current, nil
	}
	if m.client != nil {
		m.client, m.db = nil, nil
		go m.disconnect(stale)
	}
	m.mu.Unlock()

	fresh, err := m.dial(ctx, m.ClientOptions())
	if err != nil {
		return handle{}, &ConnectivityError{Op: "connect", Err: err}
	}
	if err := m.checkLiveness(ctx, fresh); err != nil {
		go m.disconnect(fresh)
		return handle{}, &ConnectivityError{Op: "ping", Err: err}
	}

	h := handle{client: fresh, db: fresh.Database(m.cfg.Name)}
	m.mu.Lock()
	m.client, m.db = h.client, h.db
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"database":      m.cfg.Name,
		"max_pool_size": m.cfg.MaxPoolSize,
		"min_pool_size": m.cfg.MinPoolSize,
	}).Info("✅ Успешно подключено к MongoDB")
	return h, nil
}

// Database возвращает дескриптор базы данных
func (m *Manager) Database(ctx context.Context) (*mongo.Database, error) {
	_, db, err := m.Acquire(ctx)
	return db, err
}

// Ping проверяет живость подключения (используется health check)
func (m *Manager) Ping(ctx context.Context) error {
	_, _, err := m.Acquire(ctx)
	return err
}

// Close закрывает пул подключений при остановке процесса
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client, m.db = nil, nil
	m.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func (m *Manager) checkLiveness(ctx context.Context, client *mongo.Client) error {
	timeout := m.cfg.PingTimeout
	if timeout <= 0 {
		return m.ping(ctx, client)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return m.ping(pingCtx, client)
}

func (m *Manager) disconnect(client *mongo.Client) {
	timeout := m.cfg.SocketTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		m.logger.WithError(err).Debug("failed to disconnect stale MongoDB client")
	}
}
