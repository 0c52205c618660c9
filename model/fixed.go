package model

import (
	"bytes"
	"fmt"

	"dimi/core/digest"
)

// MusicalKey 8 字节定长调式文本，例如 "Cmaj"，不足部分补零
type MusicalKey [8]byte

// ContentType 16 字节定长 MIME 类型
type ContentType [16]byte

// Tag 16 字节定长标签
type Tag [16]byte

// ContentHash 音频内容的 SHA-256
type ContentHash [digest.Size]byte

func trimZero(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}

func (k MusicalKey) String() string  { return trimZero(k[:]) }
func (c ContentType) String() string { return trimZero(c[:]) }
func (t Tag) String() string         { return trimZero(t[:]) }

// MarshalText 输出去掉补零后的文本
func (k MusicalKey) MarshalText() ([]byte, error)  { return []byte(k.String()), nil }
func (c ContentType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func (t Tag) MarshalText() ([]byte, error)         { return []byte(t.String()), nil }

// UnmarshalText 超出宽度时报错，不做截断
func (k *MusicalKey) UnmarshalText(text []byte) error  { return fillFixed(k[:], text) }
func (c *ContentType) UnmarshalText(text []byte) error { return fillFixed(c[:], text) }
func (t *Tag) UnmarshalText(text []byte) error         { return fillFixed(t[:], text) }

func fillFixed(dst, text []byte) error {
	if len(text) > len(dst) {
		return fmt.Errorf("text %q exceeds fixed width %d", text, len(dst))
	}
	clear(dst)
	copy(dst, text)
	return nil
}

// String 小写十六进制
func (h ContentHash) String() string {
	return digest.Hex([digest.Size]byte(h))
}

// MarshalText 十六进制
func (h ContentHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText 解析十六进制
func (h *ContentHash) UnmarshalText(text []byte) error {
	sum, err := digest.ParseHex(string(text))
	if err != nil {
		return err
	}
	*h = ContentHash(sum)
	return nil
}
