package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/mynotes/internal/pkg/messaging"
	"github.com/shandysiswandi/mynotes/internal/pkg/storage"
	"google.golang.org/api/option"
)

const pingTimeout = 5 * time.Second

func (a *App) ping(check func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(a.ctx, pingTimeout)
	defer cancel()
	return check(ctx)
}

func (a *App) setting(key string) string {
	return strings.TrimSpace(a.config.GetString(key))
}

func (a *App) initDatabase() {
	dsn := a.setting("database.url")
	if dsn == "" {
		slog.Info("database not configured, skipping")
		return
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		fatal("failed to parse database url", err)
	}
	//nolint:gosec // pool sizes come from trusted config
	cfg.MaxConns = int32(a.config.GetInt("database.pool.max_conns"))
	//nolint:gosec // pool sizes come from trusted config
	cfg.MinConns = int32(a.config.GetInt("database.pool.min_conns"))
	cfg.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	cfg.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	cfg.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, cfg)
	if err != nil {
		fatal("failed to open database pool", err)
	}
	if err := a.ping(pool.Ping); err != nil {
		fatal("failed to reach database", err)
	}

	a.dbConn = pool
}

func (a *App) initCache() {
	url := a.setting("redis.url")
	if url == "" {
		slog.Info("redis not configured, skipping")
		return
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		fatal("failed to parse redis url", err)
	}

	rdb := redis.NewClient(opt)
	if err := a.ping(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }); err != nil {
		fatal("failed to reach redis", err)
	}

	a.cacheConn = rdb
}

func (a *App) storageOptions() storage.FactoryOptions {
	return storage.FactoryOptions{
		S3: storage.S3Options{
			Region:       a.setting("storage.s3.region"),
			Endpoint:     a.setting("storage.s3.endpoint"),
			AccessKey:    a.setting("storage.s3.access_key"),
			SecretKey:    a.setting("storage.s3.secret_key"),
			SessionToken: a.setting("storage.s3.session_token"),
			UsePathStyle: a.config.GetBool("storage.s3.use_path_style"),
		},
		GCS: storage.GCSOptions{
			CredentialsJSON: a.config.GetBinary("storage.gcs.credentials_json"),
			CredentialsFile: a.setting("storage.gcs.credentials_file"),
			Endpoint:        a.setting("storage.gcs.endpoint"),
			WithoutAuth:     a.config.GetBool("storage.gcs.without_auth"),
		},
		MinIO: storage.MinIOOptions{
			Region:       a.setting("storage.minio.region"),
			Endpoint:     a.setting("storage.minio.endpoint"),
			AccessKey:    a.setting("storage.minio.access_key"),
			SecretKey:    a.setting("storage.minio.secret_key"),
			SessionToken: a.setting("storage.minio.session_token"),
			UseSSL:       a.config.GetBool("storage.minio.use_ssl"),
		},
	}
}

func (a *App) initStorage() {
	driver := a.setting("storage.driver")

	stg, err := storage.NewFromDriver(a.ctx, driver, a.storageOptions())
	switch {
	case errors.Is(err, storage.ErrNoDriver):
		slog.Info("storage not configured, skipping")
	case err != nil:
		fatal("failed to init storage", err, "driver", driver)
	default:
		a.storage = stg
	}
}

func (a *App) messagingOptions() messaging.FactoryOptions {
	producer := nsq.NewConfig()
	producer.DialTimeout = a.config.GetSecond("messaging.nsq.producer_config.dial_timeout_seconds")
	producer.ReadTimeout = a.config.GetSecond("messaging.nsq.producer_config.read_timeout_seconds")
	producer.WriteTimeout = a.config.GetSecond("messaging.nsq.producer_config.write_timeout_seconds")

	var pubsubOpts []option.ClientOption
	if ep := a.setting("messaging.pubsub.endpoint"); ep != "" {
		pubsubOpts = append(pubsubOpts, option.WithEndpoint(ep), option.WithoutAuthentication())
	}

	return messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr:   a.setting("messaging.nsq.producer_addr"),
			ProducerConfig: producer,
		},
		Kafka: messaging.KafkaConfig{
			Brokers:     a.config.GetArray("messaging.kafka.brokers"),
			ClientID:    a.setting("messaging.kafka.client_id"),
			DialTimeout: a.config.GetSecond("messaging.kafka.dial_timeout_seconds"),
		},
		NATS: messaging.NATSConfig{
			URL: a.setting("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.setting("messaging.pubsub.project_id"),
			ClientOptions: pubsubOpts,
		},
	}
}

func (a *App) initMessaging() {
	driver := a.setting("messaging.driver")

	client, err := messaging.NewFromDriver(a.ctx, driver, a.messagingOptions())
	switch {
	case errors.Is(err, messaging.ErrNoDriver):
		slog.Info("messaging not configured, security events will not be published")
	case err != nil:
		fatal("failed to init messaging", err, "driver", driver)
	default:
		a.messaging = client
	}
}

// initClosers registers the shared resources after the modules, so modules
// close first. Unconfigured resources are skipped.
func (a *App) initClosers() {
	a.addCloser("Instrument", a.ins.Shutdown)
	if a.messaging != nil {
		a.addCloser("Messaging", func(context.Context) error { return a.messaging.Close() })
	}
	if a.cacheConn != nil {
		a.addCloser("Redis", func(context.Context) error { return a.cacheConn.Close() })
	}
	if a.dbConn != nil {
		a.addCloser("Database", func(context.Context) error {
			a.dbConn.Close()
			return nil
		})
	}
	if a.storage != nil {
		a.addCloser("Storage", func(context.Context) error { return a.storage.Close() })
	}
	a.addCloser("Config", func(context.Context) error { return a.config.Close() })
}
