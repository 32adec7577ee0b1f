package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	. "github.com/smartystreets/goconvey/convey"

	"monsterlab/config"
	"monsterlab/ml"
)

func TestLRU(t *testing.T) {
	Convey("Given an LRU cache of two entries", t, func() {
		ctx := context.Background()
		c, err := NewLRU(2)
		So(err, ShouldBeNil)

		Convey("a stored prediction is returned", func() {
			c.Set(ctx, "a", ml.Prediction{Label: "Rank 1", Confidence: 0.5})
			p, ok := c.Get(ctx, "a")
			So(ok, ShouldBeTrue)
			So(p.Label, ShouldEqual, "Rank 1")
		})

		Convey("the least recently used entry is evicted", func() {
			c.Set(ctx, "a", ml.Prediction{Label: "a"})
			c.Set(ctx, "b", ml.Prediction{Label: "b"})
			c.Get(ctx, "a")
			c.Set(ctx, "c", ml.Prediction{Label: "c"})
			_, ok := c.Get(ctx, "b")
			So(ok, ShouldBeFalse)
			_, ok = c.Get(ctx, "a")
			So(ok, ShouldBeTrue)
		})

		Convey("purge empties the cache", func() {
			c.Set(ctx, "a", ml.Prediction{Label: "a"})
			c.Purge(ctx)
			So(c.Len(), ShouldEqual, 0)
		})
	})

	Convey("A non-positive size is rejected", t, func() {
		_, err := NewLRU(0)
		So(err, ShouldNotBeNil)
	})
}

func TestNoop(t *testing.T) {
	Convey("Noop never returns entries", t, func() {
		var c Noop
		c.Set(context.Background(), "a", ml.Prediction{Label: "a"})
		_, ok := c.Get(context.Background(), "a")
		So(ok, ShouldBeFalse)
	})
}

func TestNew(t *testing.T) {
	Convey("The factory honours cache.type", t, func() {
		c, err := New(config.CacheConfig{Type: "lru", Size: 8}, nil)
		So(err, ShouldBeNil)
		So(c, ShouldHaveSameTypeAs, &LRU{})

		c, err = New(config.CacheConfig{Type: "none"}, nil)
		So(err, ShouldBeNil)
		So(c, ShouldHaveSameTypeAs, Noop{})

		_, err = New(config.CacheConfig{Type: "memcached"}, nil)
		So(err, ShouldNotBeNil)
	})
}

func TestRedisUnavailable(t *testing.T) {
	Convey("Given a Redis cache whose server is unreachable", t, func() {
		client := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 100 * time.Millisecond,
			MaxRetries:  -1,
		})
		defer client.Close()
		c := NewRedis(client, time.Minute, nil)
		ctx := context.Background()

		Convey("lookups miss instead of failing", func() {
			c.Set(ctx, "a", ml.Prediction{Label: "a"})
			_, ok := c.Get(ctx, "a")
			So(ok, ShouldBeFalse)
			So(func() { c.Purge(ctx) }, ShouldNotPanic)
		})
	})
}
