package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"dimi/cache"
	"dimi/core/content"
	"dimi/core/digest"
	"dimi/logger"
	"dimi/model"
	"dimi/repository"
)

// multipart 表单除文件外的开销上限
const formOverhead = 1 << 20

// DefaultMaxConcurrentUploads 同时处理的上传数
const DefaultMaxConcurrentUploads = 8

// APIHandler 上传服务的处理器
type APIHandler struct {
	pipeline  *content.Pipeline
	uploads   repository.UploadRepository // 可为 nil
	receipts  *cache.ReceiptCache         // 可为 nil
	maxBytes  int64
	semaphore chan struct{}
	metrics   *uploadMetrics
}

// NewAPIHandler uploads 和 receipts 都可以为 nil
func NewAPIHandler(pipeline *content.Pipeline, uploads repository.UploadRepository, receipts *cache.ReceiptCache, maxBytes int64, reg prometheus.Registerer) *APIHandler {
	return &APIHandler{
		pipeline:  pipeline,
		uploads:   uploads,
		receipts:  receipts,
		maxBytes:  maxBytes,
		semaphore: make(chan struct{}, DefaultMaxConcurrentUploads),
		metrics:   newUploadMetrics(reg),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HealthHandler GET /health
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// UploadHandler POST /upload，表单字段 file 和可选的 sha256
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	select {
	case h.semaphore <- struct{}{}:
		defer func() { <-h.semaphore }()
	default:
		logger.Warn("服务器繁忙，拒绝新的上传请求")
		http.Error(w, "Server is busy, please try again later", http.StatusServiceUnavailable)
		return
	}
	h.metrics.inFlight.Inc()
	defer h.metrics.inFlight.Dec()

	if h.maxBytes > 0 {
		if r.ContentLength > h.maxBytes+formOverhead {
			h.reject(w, resultTooLarge, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(w, resultTooLarge, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.reject(w, resultBadRequest, "missing file", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.reject(w, resultBadRequest, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := content.ReadBlob(file, h.maxBytes)
	if err != nil {
		if errors.Is(err, content.ErrTooLarge) {
			h.reject(w, resultTooLarge, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.reject(w, resultBadRequest, "failed to read file", http.StatusBadRequest)
		return
	}

	receipt, err := h.pipeline.Submit(r.Context(), content.Blob{
		Data:         data,
		ContentType:  header.Header.Get("Content-Type"),
		DeclaredHash: r.FormValue("sha256"),
	})
	switch {
	case errors.Is(err, content.ErrHashMismatch):
		h.reject(w, resultMismatch, "sha256 mismatch", http.StatusBadRequest)
		return
	case err != nil:
		h.reject(w, resultStoreFailed, err.Error(), http.StatusInternalServerError)
		return
	}

	h.record(r, receipt)
	h.metrics.uploadsTotal.WithLabelValues(resultOK).Inc()
	h.metrics.uploadBytes.Observe(float64(receipt.Bytes))
	h.metrics.uploadDuration.Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, receipt)
}

func (h *APIHandler) reject(w http.ResponseWriter, result, msg string, status int) {
	h.metrics.uploadsTotal.WithLabelValues(result).Inc()
	http.Error(w, msg, status)
}

// record 写回执日志和缓存，失败不影响响应
func (h *APIHandler) record(r *http.Request, receipt *content.Receipt) {
	h.receipts.Set(r.Context(), receipt)
	if h.uploads == nil {
		return
	}
	upload := &model.Upload{
		SHA256:      receipt.SHA256,
		URI:         receipt.URI,
		Bytes:       receipt.Bytes,
		ContentType: receipt.ContentType,
	}
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		upload.Uploader = claims.Subject
	}
	if err := h.uploads.Create(r.Context(), upload); err != nil {
		logger.Error("写入上传日志失败",
			logger.String("sha256", receipt.SHA256),
			logger.ErrorField(err))
	}
}

// GetUploadHandler GET /api/uploads/{sha256}，返回最近一次上传回执
func (h *APIHandler) GetUploadHandler(w http.ResponseWriter, r *http.Request) {
	sum, err := digest.ParseHex(mux.Vars(r)["sha256"])
	if err != nil {
		http.Error(w, "invalid sha256", http.StatusBadRequest)
		return
	}
	key := digest.Hex(sum)

	if cached, err := h.receipts.Get(r.Context(), key); err != nil {
		logger.Warn("读取回执缓存失败", logger.ErrorField(err))
	} else if cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	if h.uploads == nil {
		http.Error(w, "receipt log disabled", http.StatusNotFound)
		return
	}
	upload, err := h.uploads.GetLatestBySHA256(r.Context(), key)
	if err != nil {
		logger.Error("查询上传日志失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if upload == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	receipt := &content.Receipt{
		URI:         upload.URI,
		SHA256:      upload.SHA256,
		Bytes:       upload.Bytes,
		ContentType: upload.ContentType,
	}
	h.receipts.Set(r.Context(), receipt)
	writeJSON(w, http.StatusOK, receipt)
}
