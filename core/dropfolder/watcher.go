// Package dropfolder 监听一个目录，把写入完成的音频文件提交到内容流水线。
package dropfolder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"dimi/core/content"
	"dimi/logger"
)

// DefaultSettle 文件多久没有新的写事件视为写完
const DefaultSettle = 500 * time.Millisecond

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
}

// AudioContentType 按扩展名返回 MIME 类型，都不超过链上 16 字节字段
func AudioContentType(name string) (string, bool) {
	ct, ok := audioTypes[strings.ToLower(filepath.Ext(name))]
	return ct, ok
}

// Result 一个文件的处理结果，Err 非空时 Receipt 为 nil
type Result struct {
	Path    string
	Receipt *content.Receipt
	Err     error
}

// Watcher 目录监听器
type Watcher struct {
	dir      string
	pipeline *content.Pipeline
	settle   time.Duration
	workers  int
	maxBytes int64
	results  chan<- Result
}

// New results 可以为 nil，此时只写日志
func New(dir string, pipeline *content.Pipeline, results chan<- Result) *Watcher {
	return &Watcher{
		dir:      dir,
		pipeline: pipeline,
		settle:   DefaultSettle,
		workers:  2,
		results:  results,
	}
}

// SetSettle 修改稳定等待时间
func (w *Watcher) SetSettle(d time.Duration) {
	if d > 0 {
		w.settle = d
	}
}

// SetMaxBytes 超过上限的文件不提交
func (w *Watcher) SetMaxBytes(n int64) {
	w.maxBytes = n
}

// Run 阻塞直到 ctx 取消
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("监听目录失败: %w", err)
	}

	tasks := make(chan string, 16)
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range tasks {
				w.process(ctx, path)
			}
		}()
	}
	defer func() {
		close(tasks)
		wg.Wait()
	}()

	logger.Info("开始监听投递目录", logger.String("dir", w.dir))

	pending := make(map[string]time.Time)
	processed := make(map[string]time.Time) // path -> 提交时的修改时间
	tick := w.settle / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if _, ok := AudioContentType(event.Name); ok {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue // 可能还在写入
				}
				info, err := os.Stat(path)
				if err != nil || !info.Mode().IsRegular() {
					delete(pending, path)
					continue
				}
				if mod, seen := processed[path]; seen && mod.Equal(info.ModTime()) {
					delete(pending, path)
					continue
				}
				select {
				case tasks <- path:
					processed[path] = info.ModTime()
					delete(pending, path)
				default:
					// 队列满了，下个周期再试
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("文件监听错误", logger.ErrorField(err))
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	res := Result{Path: path}
	defer func() {
		if w.results == nil {
			return
		}
		select {
		case w.results <- res:
		case <-ctx.Done():
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		res.Err = err
		logger.Warn("打开文件失败", logger.String("path", path), logger.ErrorField(err))
		return
	}
	data, err := content.ReadBlob(f, w.maxBytes)
	f.Close()
	if err != nil {
		res.Err = err
		logger.Warn("读取文件失败", logger.String("path", path), logger.ErrorField(err))
		return
	}

	ct, _ := AudioContentType(path)
	res.Receipt, res.Err = w.pipeline.Submit(ctx, content.Blob{Data: data, ContentType: ct})
	if res.Err != nil {
		logger.Error("提交失败", logger.String("path", path), logger.ErrorField(res.Err))
		return
	}
	logger.Info("文件已提交",
		logger.String("path", path),
		logger.String("uri", res.Receipt.URI),
		logger.String("sha256", res.Receipt.SHA256))
}
