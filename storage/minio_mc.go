package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"dimi/logger"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	ByType       map[string]int64
}

// ObjectInfo 对象信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	SHA256       string
}

// ListObjects 列出前缀下的对象并汇总统计，按修改时间倒序
func (s *MinioStore) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{ByType: make(map[string]int64)}
	var objects []ObjectInfo

	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:       prefix,
		Recursive:    true,
		WithMetadata: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}
		stats.add(object.Size, object.ContentType, object.LastModified)
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			SHA256:       metaSHA256(object.UserMetadata),
		})
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	return objects, stats, nil
}

// metaSHA256 不同版本的服务端返回的元数据键大小写和前缀不一致
func metaSHA256(meta map[string]string) string {
	for k, v := range meta {
		if strings.EqualFold(k, "sha256") || strings.EqualFold(k, "X-Amz-Meta-Sha256") {
			return v
		}
	}
	return ""
}

func (b *BucketStats) add(size int64, contentType string, modified time.Time) {
	b.TotalObjects++
	b.TotalSize += size
	if contentType == "" {
		contentType = "unknown"
	}
	b.ByType[contentType] += size
	if modified.After(b.LastModified) {
		b.LastModified = modified
	}
}

// DeletePrefix 删除前缀下的所有对象，返回删除数量
func (s *MinioStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("删除操作需要指定前缀")
	}

	objectsCh := make(chan minio.ObjectInfo)
	var listErr error
	sent := 0
	go func() {
		defer close(objectsCh)
		for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if object.Err != nil {
				listErr = object.Err
				return
			}
			objectsCh <- object
			sent++
		}
	}()

	// RemoveObjects 只回报失败的对象
	failed := 0
	for rErr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		logger.Warn("删除对象失败", logger.String("key", rErr.ObjectName), logger.ErrorField(rErr.Err))
		failed++
	}
	if listErr != nil {
		return sent - failed, fmt.Errorf("列出对象时出错: %w", listErr)
	}
	return sent - failed, nil
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
