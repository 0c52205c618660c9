// Package ledgertest 提供一个内存中的账本节点，供测试使用
package ledgertest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"

	"dimi/core/address"
	"dimi/core/query"
)

// Node 只实现 getProgramAccounts 和 getAccountInfo 的假节点
type Node struct {
	*httptest.Server

	ProgramID address.PublicKey

	mu       sync.Mutex
	accounts map[address.PublicKey][]byte
	calls    map[string]int
	failWith int
}

// NewNode 启动节点，测试结束时调用 Close
func NewNode(programID address.PublicKey) *Node {
	n := &Node{
		ProgramID: programID,
		accounts:  make(map[address.PublicKey][]byte),
		calls:     make(map[string]int),
	}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	return n
}

// Put 写入或覆盖账户数据
func (n *Node) Put(addr address.PublicKey, data []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accounts[addr] = append([]byte(nil), data...)
}

// Delete 删除账户
func (n *Node) Delete(addr address.PublicKey) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.accounts, addr)
}

// FailWith 之后的请求都返回该 HTTP 状态码，0 表示恢复正常
func (n *Node) FailWith(status int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failWith = status
}

// Calls 某个方法被调用的次数
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

type request struct {
	ID     uint64            `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type accountJSON struct {
	Data     []string `json:"data"`
	Owner    string   `json:"owner"`
	Lamports uint64   `json:"lamports"`
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	fail := n.failWith
	n.mu.Unlock()
	if fail != 0 {
		http.Error(w, "unavailable", fail)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Params) == 0 {
		writeError(w, req.ID, -32700, "parse error")
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	n.mu.Unlock()

	var key string
	if err := json.Unmarshal(req.Params[0], &key); err != nil {
		writeError(w, req.ID, -32602, "invalid params")
		return
	}
	pk, err := address.ParsePublicKey(key)
	if err != nil {
		writeError(w, req.ID, -32602, "invalid pubkey")
		return
	}

	switch req.Method {
	case "getProgramAccounts":
		if pk != n.ProgramID {
			writeResult(w, req.ID, []interface{}{})
			return
		}
		var opts struct {
			Filters query.Filter `json:"filters"`
		}
		if len(req.Params) > 1 {
			if err := json.Unmarshal(req.Params[1], &opts); err != nil {
				writeError(w, req.ID, -32602, "invalid filters")
				return
			}
		}
		writeResult(w, req.ID, n.match(opts.Filters))
	case "getAccountInfo":
		n.mu.Lock()
		data, ok := n.accounts[pk]
		n.mu.Unlock()
		result := map[string]interface{}{"context": map[string]int{"slot": 1}, "value": nil}
		if ok {
			result["value"] = n.encode(data)
		}
		writeResult(w, req.ID, result)
	default:
		writeError(w, req.ID, -32601, "method not found")
	}
}

func (n *Node) match(f query.Filter) []map[string]interface{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	keys := make([]address.PublicKey, 0, len(n.accounts))
	for k, data := range n.accounts {
		if f.Matches(data) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	out := make([]map[string]interface{}, 0, len(keys))
	for _, k := range keys {
		out = append(out, map[string]interface{}{
			"pubkey":  k.String(),
			"account": n.encode(n.accounts[k]),
		})
	}
	return out
}

func (n *Node) encode(data []byte) accountJSON {
	return accountJSON{
		Data:     []string{base64.StdEncoding.EncodeToString(data), "base64"},
		Owner:    n.ProgramID.String(),
		Lamports: 1_000_000,
	}
}

func writeResult(w http.ResponseWriter, id uint64, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": result})
}

func writeError(w http.ResponseWriter, id uint64, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]interface{}{"code": code, "message": msg},
	})
}
