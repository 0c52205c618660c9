package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dimi/core/content"
	"dimi/logger"

	"github.com/go-redis/redis/v8"
)

const receiptKeyPrefix = "dimi:receipt:"

// DefaultReceiptTTL 回执缓存时间
const DefaultReceiptTTL = 24 * time.Hour

// ReceiptCache 按 sha256 缓存最近一次上传回执。
// nil 的 *ReceiptCache 可以直接使用，所有操作都是空操作。
type ReceiptCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewReceiptCache 创建缓存，ttl<=0 时使用默认值
func NewReceiptCache(client redis.Cmdable, ttl time.Duration) *ReceiptCache {
	if ttl <= 0 {
		ttl = DefaultReceiptTTL
	}
	return &ReceiptCache{client: client, ttl: ttl}
}

// ReceiptKey 缓存键
func ReceiptKey(sha256 string) string {
	return receiptKeyPrefix + sha256
}

// Get 未命中时返回 nil, nil
func (c *ReceiptCache) Get(ctx context.Context, sha256 string) (*content.Receipt, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, ReceiptKey(sha256)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt from cache: %w", err)
	}
	var r content.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		// 脏数据直接删掉
		c.client.Del(ctx, ReceiptKey(sha256))
		return nil, nil
	}
	return &r, nil
}

// Set 写缓存失败只记日志，不影响上传结果
func (c *ReceiptCache) Set(ctx context.Context, r *content.Receipt) {
	if c == nil || r == nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, ReceiptKey(r.SHA256), data, c.ttl).Err(); err != nil {
		logger.Warn("写入回执缓存失败",
			logger.String("sha256", r.SHA256),
			logger.ErrorField(err))
	}
}
