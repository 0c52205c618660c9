package dropfolder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dimi/core/content"
)

const helloDigest = "7509e5bda0c762d2bac7f90d758b5b2263fa01ccbc542ab5e3df163be08e6ca9"

type memStore struct {
	mu   sync.Mutex
	objs []content.Object
}

func (s *memStore) Put(_ context.Context, obj content.Object) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objs = append(s.objs, obj)
	return "id-" + obj.SHA256[:8], nil
}

func TestAudioContentType(t *testing.T) {
	ct, ok := AudioContentType("/drop/Beat.MP3")
	assert.True(t, ok)
	assert.Equal(t, "audio/mpeg", ct)

	_, ok = AudioContentType("notes.txt")
	assert.False(t, ok)

	for ext, ct := range audioTypes {
		assert.LessOrEqual(t, len(ct), 16, ext)
	}
}

func TestWatcher_SubmitsSettledAudio(t *testing.T) {
	dir := t.TempDir()
	store := &memStore{}
	results := make(chan Result, 4)

	w := New(dir, content.NewPipeline(store, "http://gw.local/"), results)
	w.SetSettle(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// 等监听器就绪
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "take1.mp3"), []byte("hello world!"), 0o644))

	select {
	case res := <-results:
		require.NoError(t, res.Err)
		assert.Equal(t, filepath.Join(dir, "take1.mp3"), res.Path)
		assert.Equal(t, helloDigest, res.Receipt.SHA256)
		assert.Equal(t, "audio/mpeg", res.Receipt.ContentType)
		assert.Equal(t, "http://gw.local/id-7509e5bd", res.Receipt.URI)
	case <-time.After(5 * time.Second):
		t.Fatal("no result")
	}

	store.mu.Lock()
	assert.Len(t, store.objs, 1)
	store.mu.Unlock()
}

func TestWatcher_MissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope"), content.NewPipeline(&memStore{}, ""), nil)
	assert.Error(t, w.Run(context.Background()))
}
