package ledger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dimi/core/address"
	"dimi/core/codec"
	"dimi/core/ledger/ledgertest"
	"dimi/core/query"
	"dimi/model"
)

func setup(t *testing.T) (*ledgertest.Node, *Client) {
	t.Helper()
	programID, err := address.NewRandomPublicKey()
	require.NoError(t, err)
	node := ledgertest.NewNode(programID)
	t.Cleanup(node.Close)
	return node, NewClient(node.URL, programID, 5*time.Second)
}

func TestProgramAccounts_Filtered(t *testing.T) {
	node, c := setup(t)
	owner, _ := address.NewRandomPublicKey()
	other, _ := address.NewRandomPublicKey()

	a1, _ := address.NewRandomPublicKey()
	a2, _ := address.NewRandomPublicKey()
	a3, _ := address.NewRandomPublicKey()
	node.Put(a1, codec.EncodeBeat(&model.Beat{Owner: owner, Title: "one"}))
	node.Put(a2, codec.EncodeBeat(&model.Beat{Owner: other, Title: "two", Shared: true}))
	node.Put(a3, codec.EncodeUser(&model.User{Authority: owner}))

	accs, err := c.ProgramAccounts(context.Background(), query.BeatsOwnedBy(owner))
	require.NoError(t, err)
	require.Len(t, accs, 1)
	assert.Equal(t, a1, accs[0].Address)
	assert.Equal(t, node.ProgramID, accs[0].Owner)

	b, err := codec.DecodeBeat(accs[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "one", b.Title)

	accs, err = c.ProgramAccounts(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, accs, 3)

	accs, err = c.ProgramAccounts(context.Background(), query.SharedBeats())
	require.NoError(t, err)
	require.Len(t, accs, 1)
	assert.Equal(t, a2, accs[0].Address)
}

func TestAccountInfo(t *testing.T) {
	node, c := setup(t)
	addr, _ := address.NewRandomPublicKey()
	data := codec.EncodeConfig(&model.Config{Bump: 255})
	node.Put(addr, data)

	acc, err := c.AccountInfo(context.Background(), addr)
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, data, acc.Data)

	missing, _ := address.NewRandomPublicKey()
	acc, err = c.AccountInfo(context.Background(), missing)
	require.NoError(t, err)
	assert.Nil(t, acc)
}

func TestQueryFailure(t *testing.T) {
	node, c := setup(t)
	node.FailWith(http.StatusServiceUnavailable)

	_, err := c.ProgramAccounts(context.Background(), query.SharedBeats())
	assert.ErrorIs(t, err, ErrQueryFailure)

	node.FailWith(0)
	_, err = c.ProgramAccounts(context.Background(), query.SharedBeats())
	assert.NoError(t, err)

	dead := NewClient("http://127.0.0.1:1", node.ProgramID, time.Second)
	_, err = dead.AccountInfo(context.Background(), node.ProgramID)
	assert.ErrorIs(t, err, ErrQueryFailure)
}

func TestRPCErrorSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"node is behind"}}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, address.PublicKey{}, time.Second)
	_, err := c.ProgramAccounts(context.Background(), nil)
	require.ErrorIs(t, err, ErrQueryFailure)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32005, rpcErr.Code)
}

func TestContextCancelled(t *testing.T) {
	_, c := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ProgramAccounts(ctx, nil)
	assert.ErrorIs(t, err, ErrQueryFailure)
}
