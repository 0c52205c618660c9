package repository

import (
	"context"
	"errors"

	"dimi/model"

	"gorm.io/gorm"
)

// UploadRepository 上传回执日志
type UploadRepository interface {
	Create(ctx context.Context, upload *model.Upload) error
	GetLatestBySHA256(ctx context.Context, sha256 string) (*model.Upload, error)
	ListByUploader(ctx context.Context, uploader string, limit int) ([]*model.Upload, error)
	Count(ctx context.Context) (int64, error)
}

// gormUploadRepository GORM 实现
type gormUploadRepository struct {
	db *gorm.DB
}

// NewGormUploadRepository 创建 GORM 回执仓库
func NewGormUploadRepository(db *gorm.DB) UploadRepository {
	return &gormUploadRepository{db: db}
}

// Create 记录一次成功上传
func (r *gormUploadRepository) Create(ctx context.Context, upload *model.Upload) error {
	return r.db.WithContext(ctx).Create(upload).Error
}

// GetLatestBySHA256 同一内容可能被上传多次，取最近一次；不存在时返回 nil, nil
func (r *gormUploadRepository) GetLatestBySHA256(ctx context.Context, sha256 string) (*model.Upload, error) {
	var upload model.Upload
	err := r.db.WithContext(ctx).
		Where("sha256 = ?", sha256).
		Order("created_at DESC, id DESC").
		First(&upload).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &upload, nil
}

// ListByUploader 按上传者列出，最新的在前
func (r *gormUploadRepository) ListByUploader(ctx context.Context, uploader string, limit int) ([]*model.Upload, error) {
	if limit <= 0 {
		limit = 50
	}
	var uploads []*model.Upload
	err := r.db.WithContext(ctx).
		Where("uploader = ?", uploader).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&uploads).Error
	return uploads, err
}

// Count 回执总数
func (r *gormUploadRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Upload{}).Count(&count).Error
	return count, err
}
