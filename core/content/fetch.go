package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPFetcher 通过网关地址取回内容
type HTTPFetcher struct {
	httpClient *http.Client
}

// NewHTTPFetcher 创建取回器，timeout<=0 时使用 60 秒
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPFetcher{httpClient: &http.Client{Timeout: timeout}}
}

// Fetch GET uri，非 2xx 视为失败
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
