package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/avast/retry-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"monsterlab/dataset"
	"monsterlab/monster"
)

type MongoOptions struct {
	URL        string
	Database   string
	Collection string
	Attempts   uint
}

// Mongo 基于MongoDB集合的数据源
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongo 连接并ping，失败时按Attempts重试
func NewMongo(ctx context.Context, opts MongoOptions, logger *zap.Logger) (*Mongo, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}

	var client *mongo.Client
	err := retry.Do(
		func() error {
			c, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URL))
			if err != nil {
				return err
			}
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := c.Ping(pingCtx, readpref.Primary()); err != nil {
				_ = c.Disconnect(context.Background())
				return err
			}
			client = c
			return nil
		},
		retry.Attempts(opts.Attempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("MongoDB connect failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	logger.Info("Connected to MongoDB",
		zap.String("database", opts.Database),
		zap.String("collection", opts.Collection))
	return &Mongo{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
		logger:     logger,
	}, nil
}

func (m *Mongo) Count(ctx context.Context) (int, error) {
	n, err := m.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count monsters: %w", err)
	}
	return int(n), nil
}

// Table 读取全部文档。ObjectID转为十六进制字符串，以便序列化为JSON。
func (m *Mongo) Table(ctx context.Context) (*dataset.Table, error) {
	cursor, err := m.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find monsters: %w", err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode monsters: %w", err)
	}
	return documentsTable(docs), nil
}

func (m *Mongo) Insert(ctx context.Context, monsters []monster.Monster) (int, error) {
	if len(monsters) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, len(monsters))
	for i, mon := range monsters {
		docs[i] = mon
	}
	res, err := m.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert monsters: %w", err)
	}
	return len(res.InsertedIDs), nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// documentsTable 列顺序：_id，已知怪物字段，其余字段按名称排序
func documentsTable(docs []bson.M) *dataset.Table {
	columns := append([]string{"_id"}, monster.Columns()...)
	known := make(map[string]bool, len(columns))
	for _, col := range columns {
		known[col] = true
	}

	var extra []string
	rows := make([]dataset.Row, len(docs))
	for i, doc := range docs {
		row := make(dataset.Row, len(doc))
		for key, value := range doc {
			row[key] = normalize(value)
			if !known[key] {
				known[key] = true
				extra = append(extra, key)
			}
		}
		rows[i] = row
	}
	sort.Strings(extra)
	return dataset.NewTable(append(columns, extra...), rows)
}

func normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().Format(monster.TimestampLayout)
	case time.Time:
		return v.Format(monster.TimestampLayout)
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return v
	}
}
