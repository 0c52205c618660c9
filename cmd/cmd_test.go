package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dimi/core/address"
	"dimi/core/auth"
	"dimi/core/codec"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestHashCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beat.mp3")
	require.NoError(t, os.WriteFile(path, []byte("hello world!"), 0o644))

	out, err := run(t, "hash", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "7509e5bda0c762d2bac7f90d758b5b2263fa01ccbc542ab5e3df163be08e6ca9  "))
	assert.Contains(t, out, "(12 bytes)")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("UPLOAD_JWT_SECRET", "s3cret")
	wallet, err := address.NewRandomPublicKey()
	require.NoError(t, err)

	out, err := run(t, "token", wallet.String())
	require.NoError(t, err)

	issuer, err := auth.NewIssuer("s3cret", 0)
	require.NoError(t, err)
	claims, err := issuer.ParseToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, wallet.String(), claims.Subject)
}

func TestDeriveRequiresProgramID(t *testing.T) {
	t.Setenv("PROGRAM_ID", "")
	wallet, err := address.NewRandomPublicKey()
	require.NoError(t, err)

	_, err = run(t, "derive", "user", wallet.String())
	assert.ErrorContains(t, err, "PROGRAM_ID")
}

func TestPublishRejectsWideContentTypeBeforeUpload(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "unexpected", http.StatusTeapot)
	}))
	defer srv.Close()

	pid, err := address.NewRandomPublicKey()
	require.NoError(t, err)
	t.Setenv("PROGRAM_ID", pid.String())
	t.Setenv("RPC_URL", srv.URL)
	t.Setenv("UPLOAD_API", srv.URL)

	path := filepath.Join(t.TempDir(), "beat.aiff")
	require.NoError(t, os.WriteFile(path, []byte("hello world!"), 0o644))
	owner, err := address.NewRandomPublicKey()
	require.NoError(t, err)

	_, err = run(t, "publish", "beat", owner.String(), path, "--title", "x", "--content-type=")
	assert.ErrorIs(t, err, codec.ErrFixedFieldOverflow)
	assert.ErrorContains(t, err, "application/octet-stream")

	_, err = run(t, "publish", "track", owner.String(), owner.String(), path, "--content-type", "audio/x-very-long-type")
	assert.ErrorIs(t, err, codec.ErrFixedFieldOverflow)

	assert.Zero(t, hits.Load(), "nothing reaches the network")
}
