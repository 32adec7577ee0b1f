// Package store 怪物数据访问
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"monsterlab/config"
	"monsterlab/dataset"
	"monsterlab/db"
	"monsterlab/monster"
)

var ErrUnsupported = errors.New("unsupported store type")

// Reader 只读数据源
type Reader interface {
	Count(ctx context.Context) (int, error)
	Table(ctx context.Context) (*dataset.Table, error)
}

// Store 怪物数据源
type Store interface {
	Reader
	Insert(ctx context.Context, monsters []monster.Monster) (int, error)
	Close() error
}

// New 按store.type创建数据源
func New(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Type {
	case "mongo":
		return NewMongo(ctx, MongoOptions{
			URL:        cfg.MongoURL,
			Database:   cfg.Database,
			Collection: cfg.Collection,
			Attempts:   cfg.ConnectAttempts,
		}, logger)
	case "sqlite":
		return db.NewMonsterStore("sqlite3", cfg.SQLitePath)
	case "mysql":
		return db.NewMonsterStore("mysql", cfg.MySQLDSN)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, cfg.Type)
	}
}

// Labeled 只保留建模所需的列
func Labeled(ctx context.Context, s Reader) (*dataset.Table, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	return table.Project(monster.Options...)
}
