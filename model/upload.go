package model

import "time"

// Upload 上传回执日志，记录每次成功写入内容存储的结果
type Upload struct {
	ID          uint      `json:"-" gorm:"primaryKey"`
	SHA256      string    `json:"sha256" gorm:"size:64;index;not null"`
	URI         string    `json:"uri" gorm:"size:255;not null"`
	Bytes       int64     `json:"bytes"`
	ContentType string    `json:"contentType" gorm:"size:100"`
	Uploader    string    `json:"uploader,omitempty" gorm:"size:64;index"` // JWT subject（钱包地址），未启用鉴权时为空
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName 指定表名
func (Upload) TableName() string {
	return "uploads"
}
