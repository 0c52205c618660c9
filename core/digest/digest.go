package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// Size 摘要长度（字节）
const Size = sha256.Size

// Sum 对多个字节片段顺序拼接后计算 SHA-256。
// 地址派生、账户判别符和内容哈希共用这一个原语。
func Sum(parts ...[]byte) [Size]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// New 返回一个流式哈希器，用于大文件
func New() hash.Hash {
	return sha256.New()
}

// SumReader 流式读取并计算摘要，返回摘要和读取的字节数
func SumReader(r io.Reader) ([Size]byte, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return [Size]byte{}, n, fmt.Errorf("failed to hash stream: %w", err)
	}
	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out, n, nil
}

// Hex 小写十六进制
func Hex(sum [Size]byte) string {
	return hex.EncodeToString(sum[:])
}

// ParseHex 解析 64 位十六进制摘要，允许 0x 前缀和大写
func ParseHex(s string) ([Size]byte, error) {
	var out [Size]byte
	clean := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if len(clean) != Size*2 {
		return out, fmt.Errorf("expected %d hex chars, got %d", Size*2, len(clean))
	}
	if _, err := hex.Decode(out[:], []byte(clean)); err != nil {
		return out, fmt.Errorf("invalid hex digest: %w", err)
	}
	return out, nil
}
