package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"smartdocs/internal/config"
	"smartdocs/internal/model"
	mysqlClient "smartdocs/internal/platform/mysql"
	rabbitmqClient "smartdocs/internal/platform/rabbitmq"
	redisClient "smartdocs/internal/platform/redis"
	"smartdocs/internal/platform/sqlitedb"
	"smartdocs/internal/repository"
	"smartdocs/internal/worker"
)

type App struct {
	Config *config.Config
	MySQL  *gorm.DB
	// CacheDB is the local SQLite database backing the embedding cache.
	CacheDB      *gorm.DB
	Redis        *redis.Client
	MQConn       *amqp.Connection
	IngestWorker *worker.IngestRecordWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	err = mysqlDB.AutoMigrate(
		&model.User{},
		&model.QASession{},
		&model.QATurn{},
		&model.IngestRecord{},
		&model.VectorCollection{},
		&model.VectorEntry{},
	)
	if err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	cacheDB, err := sqlitedb.New(cfg.Embedding.CachePath)
	if err != nil {
		return nil, err
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	recordRepo := repository.NewIngestRecordRepository(mysqlDB)
	ingestWorker := worker.NewIngestRecordWorker(mqConn, recordRepo, cfg.RabbitMQ.IngestAuditQueue)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest record worker failed: %w", err)
	}

	return &App{
		Config:       cfg,
		MySQL:        mysqlDB,
		CacheDB:      cacheDB,
		Redis:        redisCli,
		MQConn:       mqConn,
		IngestWorker: ingestWorker,
		StartedAt:    time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.CacheDB != nil {
		if sqlDB, err := a.CacheDB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
