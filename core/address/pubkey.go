package address

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeySize 身份公钥 / 账户地址长度
const PublicKeySize = 32

// PublicKey 账本上的 32 字节地址，既可以是签名公钥也可以是程序派生地址
type PublicKey [PublicKeySize]byte

// ParsePublicKey 解析 base58 文本形式的地址
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("invalid base58 address %q: %w", s, err)
	}
	if len(raw) != PublicKeySize {
		return pk, fmt.Errorf("invalid address %q: decoded to %d bytes, want %d", s, len(raw), PublicKeySize)
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustParsePublicKey 用于常量地址，解析失败直接 panic
func MustParsePublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PublicKeyFromBytes 从原始字节构造地址
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("invalid address length %d, want %d", len(b), PublicKeySize)
	}
	copy(pk[:], b)
	return pk, nil
}

// NewRandomPublicKey 生成一个真实的 ed25519 公钥，主要供测试和开发命令使用
func NewRandomPublicKey() (PublicKey, error) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return PublicKey{}, fmt.Errorf("failed to generate key: %w", err)
	}
	return PublicKeyFromBytes(pub)
}

// String base58 文本
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes 返回原始字节副本
func (pk PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeySize)
	copy(b, pk[:])
	return b
}

// IsZero 是否为全零地址
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// IsOnCurve 判断这 32 字节能否解压为 ed25519 曲线上的点。
// 程序派生地址必须不在曲线上，这样就不存在对应的私钥。
func (pk PublicKey) IsOnCurve() bool {
	return isOnCurve(pk[:])
}

func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// MarshalText 实现 encoding.TextMarshaler
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}
