package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"dimi/core/content"
)

// RemoteStore 通过上传服务的 POST /upload 写入内容，返回完整地址
type RemoteStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRemoteStore baseURL 形如 http://localhost:8787
func NewRemoteStore(baseURL string, timeout time.Duration) *RemoteStore {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &RemoteStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetToken 上传服务开启鉴权时使用的 Bearer token
func (s *RemoteStore) SetToken(token string) {
	s.token = token
}

// Put 实现 content.Store。服务端会再校验一次 sha256。
func (s *RemoteStore) Put(ctx context.Context, obj content.Object) (string, error) {
	r, err := s.Upload(ctx, obj.Data, obj.ContentType, obj.SHA256)
	if err != nil {
		return "", err
	}
	if obj.SHA256 != "" && r.SHA256 != obj.SHA256 {
		return "", fmt.Errorf("%w: server computed %s", content.ErrHashMismatch, r.SHA256)
	}
	return r.URI, nil
}

// Upload 上传并返回服务端回执
func (s *RemoteStore) Upload(ctx context.Context, data []byte, contentType, sha256 string) (*content.Receipt, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="blob"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if sha256 != "" {
		if err := w.WriteField("sha256", sha256); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求上传服务失败: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(msg, "sha256 mismatch") {
			return nil, fmt.Errorf("%w: %s", content.ErrHashMismatch, msg)
		}
		return nil, fmt.Errorf("上传服务返回 %d: %s", resp.StatusCode, msg)
	}

	var r content.Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("解析回执失败: %w", err)
	}
	return &r, nil
}
