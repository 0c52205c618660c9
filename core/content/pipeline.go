package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"dimi/core/digest"
	"dimi/logger"
)

// DefaultContentType 未声明类型时使用
const DefaultContentType = "application/octet-stream"

// DefaultGatewayPrefix 存储标识符拼接成可访问地址的前缀
const DefaultGatewayPrefix = "https://arweave.net/"

var (
	// ErrHashMismatch 声明的摘要与实际内容不符，内容不会被写入存储
	ErrHashMismatch = errors.New("sha256 mismatch")
	// ErrUploadFailure 存储后端写入失败
	ErrUploadFailure = errors.New("upload failed")
	// ErrTooLarge 内容超过大小上限
	ErrTooLarge = errors.New("content too large")
)

// Object 交给存储后端的一份内容，SHA256 已经校验过
type Object struct {
	Data        []byte
	ContentType string
	SHA256      string
}

// Store 内容寻址存储后端。
// Put 返回存储标识符；如果返回的已经是完整 URL（含 scheme），流水线直接使用它。
type Store interface {
	Put(ctx context.Context, obj Object) (string, error)
}

// Fetcher 按地址取回内容，用于事后校验
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Blob 待提交的内容
type Blob struct {
	Data         []byte
	ContentType  string
	DeclaredHash string // 可选，十六进制，不区分大小写
}

// Receipt 提交成功后的凭据
type Receipt struct {
	URI         string `json:"uri"`
	SHA256      string `json:"sha256"`
	Bytes       int64  `json:"bytes"`
	ContentType string `json:"contentType"`
}

// Pipeline 先哈希、再校验、最后写入存储
type Pipeline struct {
	store   Store
	gateway string
}

// NewPipeline 创建流水线，gateway 为空时使用默认前缀
func NewPipeline(store Store, gateway string) *Pipeline {
	if gateway == "" {
		gateway = DefaultGatewayPrefix
	}
	return &Pipeline{store: store, gateway: gateway}
}

// Submit 计算摘要并与声明值比较，一致后写入存储。不做重试。
// 空内容也会提交，摘要为空串的 SHA-256。
func (p *Pipeline) Submit(ctx context.Context, blob Blob) (*Receipt, error) {
	sum := digest.Hex(digest.Sum(blob.Data))
	if blob.DeclaredHash != "" {
		declared := strings.ToLower(strings.TrimSpace(blob.DeclaredHash))
		if declared != sum {
			logger.Warn("内容摘要不匹配，拒绝写入",
				logger.String("declared", declared),
				logger.String("actual", sum))
			return nil, fmt.Errorf("%w: declared %s, actual %s", ErrHashMismatch, declared, sum)
		}
	}

	contentType := blob.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	start := time.Now()
	id, err := p.store.Put(ctx, Object{Data: blob.Data, ContentType: contentType, SHA256: sum})
	if err != nil {
		logger.Error("写入存储失败",
			logger.String("sha256", sum),
			logger.Int("bytes", len(blob.Data)),
			logger.ErrorField(err))
		return nil, fmt.Errorf("%w: %v", ErrUploadFailure, err)
	}

	receipt := &Receipt{
		URI:         p.Locator(id),
		SHA256:      sum,
		Bytes:       int64(len(blob.Data)),
		ContentType: contentType,
	}
	logger.Info("内容已提交",
		logger.String("uri", receipt.URI),
		logger.String("sha256", sum),
		logger.Int64("bytes", receipt.Bytes),
		logger.Duration("elapsed", time.Since(start)))
	return receipt, nil
}

// Locator 把存储标识符转换为可访问地址
func (p *Pipeline) Locator(id string) string {
	if strings.Contains(id, "://") {
		return id
	}
	return p.gateway + id
}

// Verify 取回已提交的内容重新计算摘要，发现被替换时返回 ErrHashMismatch
func Verify(ctx context.Context, f Fetcher, r *Receipt) error {
	rc, err := f.Fetch(ctx, r.URI)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", r.URI, err)
	}
	defer rc.Close()

	sum, n, err := digest.SumReader(rc)
	if err != nil {
		return err
	}
	if got := digest.Hex(sum); got != strings.ToLower(r.SHA256) {
		return fmt.Errorf("%w: %s served %s, receipt says %s", ErrHashMismatch, r.URI, got, r.SHA256)
	}
	if r.Bytes > 0 && n != r.Bytes {
		return fmt.Errorf("%w: %s served %d bytes, receipt says %d", ErrHashMismatch, r.URI, n, r.Bytes)
	}
	return nil
}

// HashReader 流式计算摘要，返回十六进制和字节数
func HashReader(r io.Reader) (string, int64, error) {
	sum, n, err := digest.SumReader(r)
	if err != nil {
		return "", n, err
	}
	return digest.Hex(sum), n, nil
}

// ReadBlob 从 reader 读入内容，limit>0 时超出返回 ErrTooLarge
func ReadBlob(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, limit)
	}
	return buf.Bytes(), nil
}
