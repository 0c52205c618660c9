package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"dimi/core/content"
	"dimi/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectPrefix 上传内容在存储桶中的目录
const ObjectPrefix = "blobs/"

// MinioOptions 连接参数
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioStore 把内容写入 MinIO，对象名为随机 UUID
type MinioStore struct {
	client *minio.Client
	bucket string
	region string
}

// NewMinioStore 创建 MinIO 客户端
func NewMinioStore(opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}
	return &MinioStore{client: client, bucket: opts.Bucket, region: opts.Region}, nil
}

// Bucket 存储桶名
func (s *MinioStore) Bucket() string {
	return s.bucket
}

// EnsureBucket 存储桶不存在时创建
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if exists {
		logger.Debug("存储桶已存在", logger.String("bucket", s.bucket))
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	logger.Info("成功创建存储桶", logger.String("bucket", s.bucket))
	return nil
}

// ObjectKey 新对象的名字
func ObjectKey() string {
	return ObjectPrefix + uuid.NewString()
}

// Put 实现 content.Store，返回对象名
func (s *MinioStore) Put(ctx context.Context, obj content.Object) (string, error) {
	key := ObjectKey()
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(obj.Data), int64(len(obj.Data)), minio.PutObjectOptions{
		ContentType:  obj.ContentType,
		UserMetadata: map[string]string{"sha256": obj.SHA256},
	})
	if err != nil {
		return "", fmt.Errorf("上传对象失败: %w", err)
	}
	return key, nil
}

// Open 读取对象，供校验使用
func (s *MinioStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("读取对象失败: %w", err)
	}
	return obj, nil
}
