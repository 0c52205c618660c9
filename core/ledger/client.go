package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"dimi/core/address"
	"dimi/core/query"
	"dimi/logger"
)

// ErrQueryFailure 账本节点不可达或返回错误。调用方决定是否重试。
var ErrQueryFailure = errors.New("ledger query failed")

// RPCError 节点返回的 JSON-RPC 错误
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Account 一个账户的原始数据
type Account struct {
	Address  address.PublicKey
	Owner    address.PublicKey
	Lamports uint64
	Data     []byte
}

// Client 账本 JSON-RPC 客户端，只读
type Client struct {
	endpoint   string
	programID  address.PublicKey
	httpClient *http.Client
	nextID     atomic.Uint64
}

// NewClient 创建客户端
func NewClient(endpoint string, programID address.PublicKey, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:  endpoint,
		programID: programID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ProgramID 查询所针对的程序
func (c *Client) ProgramID() address.PublicKey {
	return c.programID
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

type accountJSON struct {
	Data     []string `json:"data"`
	Owner    string   `json:"owner"`
	Lamports uint64   `json:"lamports"`
}

type keyedAccountJSON struct {
	Pubkey  string      `json:"pubkey"`
	Account accountJSON `json:"account"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("账本请求失败", logger.String("method", method), logger.ErrorField(err))
		return fmt.Errorf("%w: %s: %v", ErrQueryFailure, method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", ErrQueryFailure, method, err)
	}
	if resp.StatusCode != http.StatusOK {
		logger.Warn("账本返回错误状态码",
			logger.String("method", method),
			logger.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: %s: status %d", ErrQueryFailure, method, resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", ErrQueryFailure, method, err)
	}
	if rr.Error != nil {
		return fmt.Errorf("%w: %s: %w", ErrQueryFailure, method, rr.Error)
	}
	if err := json.Unmarshal(rr.Result, out); err != nil {
		return fmt.Errorf("%w: %s: decode result: %v", ErrQueryFailure, method, err)
	}
	logger.Debug("账本请求完成",
		logger.String("method", method),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

// ProgramAccounts 按过滤条件列出程序拥有的账户；filter 为空时返回全部
func (c *Client) ProgramAccounts(ctx context.Context, filter query.Filter) ([]Account, error) {
	opts := map[string]interface{}{"encoding": "base64"}
	if len(filter) > 0 {
		opts["filters"] = filter
	}

	var result []keyedAccountJSON
	if err := c.call(ctx, "getProgramAccounts", []interface{}{c.programID.String(), opts}, &result); err != nil {
		return nil, err
	}

	accounts := make([]Account, 0, len(result))
	for _, ka := range result {
		addr, err := address.ParsePublicKey(ka.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("%w: bad pubkey %q: %v", ErrQueryFailure, ka.Pubkey, err)
		}
		acc, err := ka.Account.decode(addr)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acc)
	}
	return accounts, nil
}

// AccountInfo 读取单个账户，不存在时返回 nil, nil
func (c *Client) AccountInfo(ctx context.Context, addr address.PublicKey) (*Account, error) {
	var result struct {
		Value *accountJSON `json:"value"`
	}
	params := []interface{}{addr.String(), map[string]string{"encoding": "base64"}}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}
	return result.Value.decode(addr)
}

func (a *accountJSON) decode(addr address.PublicKey) (*Account, error) {
	if len(a.Data) != 2 || a.Data[1] != "base64" {
		return nil, fmt.Errorf("%w: account %s: unexpected data encoding", ErrQueryFailure, addr)
	}
	data, err := base64.StdEncoding.DecodeString(a.Data[0])
	if err != nil {
		return nil, fmt.Errorf("%w: account %s: %v", ErrQueryFailure, addr, err)
	}
	acc := &Account{Address: addr, Lamports: a.Lamports, Data: data}
	if a.Owner != "" {
		owner, err := address.ParsePublicKey(a.Owner)
		if err != nil {
			return nil, fmt.Errorf("%w: account %s owner: %v", ErrQueryFailure, addr, err)
		}
		acc.Owner = owner
	}
	return acc, nil
}
