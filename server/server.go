package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dimi/cache"
	"dimi/config"
	"dimi/core/auth"
	"dimi/core/content"
	"dimi/db"
	"dimi/logger"
	"dimi/model"
	"dimi/repository"
	"dimi/storage"
)

// 服务端接收的回执缓存有效期
const receiptTTL = 24 * time.Hour

// BlobOpener 按对象 key 读取已上传的内容，MinioStore 实现了它
type BlobOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Options 组装路由所需的依赖
type Options struct {
	Handler  *APIHandler
	Issuer   *auth.Issuer // 为 nil 时 /upload 不鉴权
	Blobs    BlobOpener   // 为 nil 时不提供 /blobs/
	Gatherer prometheus.Gatherer
}

// NewRouter 注册所有路由
func NewRouter(opts Options) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(corsMiddleware)

	h := opts.Handler
	router.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/upload", AuthMiddleware(opts.Issuer, h.UploadHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/uploads/{sha256}", h.GetUploadHandler).Methods(http.MethodGet)

	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if opts.Blobs != nil {
		router.HandleFunc("/blobs/{key}", blobHandler(opts.Blobs)).Methods(http.MethodGet)
	}
	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request",
			logger.String("id", id),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Duration("elapsed", time.Since(start)))
	})
}

// blobHandler 从 MinIO 读取对象，供网关前缀指向本服务时使用
func blobHandler(blobs BlobOpener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := storage.ObjectPrefix + mux.Vars(r)["key"]
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		object, err := blobs.Open(ctx, key)
		if err != nil {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		defer object.Close()

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Cache-Control", "public, max-age=31536000") // 内容按 key 不可变
		if _, err := io.Copy(w, object); err != nil {
			logger.Warn("读取对象失败", logger.String("key", key), logger.ErrorField(err))
		}
	}
}

// newStore 按 STORE_BACKEND 选择内容存储
func newStore(ctx context.Context, cfg *config.Config) (content.Store, BlobOpener, error) {
	switch cfg.StoreBackend {
	case "remote":
		return storage.NewRemoteStore(cfg.UploadAPI, cfg.RPCTimeout), nil, nil
	case "minio", "":
		store, err := storage.NewMinioStore(storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Start 启动上传服务，收到 SIGINT/SIGTERM 后优雅退出
func Start(cfg *config.Config) error {
	ctx := context.Background()

	store, blobs, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to init store: %w", err)
	}

	gdb, err := db.OpenGorm(cfg)
	if err != nil {
		return fmt.Errorf("failed to open receipt log: %w", err)
	}
	if err := db.AutoMigrateModels(gdb, &model.Upload{}); err != nil {
		return err
	}
	uploads := repository.NewGormUploadRepository(gdb)

	var receipts *cache.ReceiptCache
	if cfg.RedisHost != "" {
		rdb, err := db.ConnectRedis(ctx, cfg)
		if err != nil {
			logger.Warn("Redis 不可用，回执缓存已关闭", logger.ErrorField(err))
		} else {
			defer rdb.Close()
			receipts = cache.NewReceiptCache(rdb, receiptTTL)
		}
	}

	var issuer *auth.Issuer
	if cfg.UploadJWTSecret != "" {
		if issuer, err = auth.NewIssuer(cfg.UploadJWTSecret, auth.DefaultTokenTTL); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	pipeline := content.NewPipeline(store, cfg.GatewayPrefix)
	handler := NewAPIHandler(pipeline, uploads, receipts, cfg.MaxBytes, reg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      NewRouter(Options{Handler: handler, Issuer: issuer, Blobs: blobs, Gatherer: reg}),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("上传服务启动",
			logger.String("addr", server.Addr),
			logger.String("store", cfg.StoreBackend),
			logger.Bool("auth", issuer != nil),
			logger.Bool("cache", receipts != nil))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-stop:
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
