package address

import (
	"encoding/binary"
	"errors"
	"fmt"

	"dimi/core/digest"
)

const (
	// MaxSeeds 单次派生允许的种子段数（含 bump）
	MaxSeeds = 16
	// MaxSeedLength 单个种子段的最大长度
	MaxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

var (
	// ErrDerivationExhausted 255..0 的所有 bump 都落在曲线上。
	// 这意味着种子方案本身有问题，调用方不应换输入重试。
	ErrDerivationExhausted = errors.New("address derivation exhausted")
	// ErrOnCurve 指定 bump 下的地址恰好是合法的曲线点
	ErrOnCurve = errors.New("derived address is on curve")
	// ErrMaxSeedLength 种子段过长或数量过多
	ErrMaxSeedLength = errors.New("seed exceeds maximum length")
)

// ProgramAddress 派生结果
type ProgramAddress struct {
	Address PublicKey `json:"address"`
	Bump    uint8     `json:"bump"`
}

// LE16 小端 16 位编码。beatId / take 的派生种子和账户字段都用它。
func LE16(n uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, n)
	return b
}

// CreateProgramAddress 用给定种子（通常已带上 bump）计算地址：
// sha256(seeds... ++ programID ++ "ProgramDerivedAddress")，结果必须不在曲线上。
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, fmt.Errorf("%w: %d seeds, max %d", ErrMaxSeedLength, len(seeds), MaxSeeds)
	}
	parts := make([][]byte, 0, len(seeds)+2)
	for i, s := range seeds {
		if len(s) > MaxSeedLength {
			return PublicKey{}, fmt.Errorf("%w: seed %d is %d bytes", ErrMaxSeedLength, i, len(s))
		}
		parts = append(parts, s)
	}
	parts = append(parts, programID[:], []byte(pdaMarker))

	sum := digest.Sum(parts...)
	if isOnCurve(sum[:]) {
		return PublicKey{}, ErrOnCurve
	}
	return PublicKey(sum), nil
}

// FindProgramAddress 从 bump=255 开始递减，返回第一个不在曲线上的地址。
// 纯函数，相同输入永远得到相同的 (地址, bump)。
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	bumpSeed := []byte{0}
	withBump[len(seeds)] = bumpSeed

	for bump := 255; bump >= 0; bump-- {
		bumpSeed[0] = uint8(bump)
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, ErrDerivationExhausted
}

// Deriver 绑定一个程序（命名空间）ID，按实体类型固定种子方案
type Deriver struct {
	ProgramID PublicKey
}

// NewDeriver 创建派生器
func NewDeriver(programID PublicKey) *Deriver {
	return &Deriver{ProgramID: programID}
}

func (d *Deriver) find(seeds ...[]byte) (ProgramAddress, error) {
	addr, bump, err := FindProgramAddress(seeds, d.ProgramID)
	if err != nil {
		return ProgramAddress{}, err
	}
	return ProgramAddress{Address: addr, Bump: bump}, nil
}

// Config ["config"]
func (d *Deriver) Config() (ProgramAddress, error) {
	return d.find([]byte("config"))
}

// User ["user", authority]
func (d *Deriver) User(authority PublicKey) (ProgramAddress, error) {
	return d.find([]byte("user"), authority[:])
}

// Beat ["beat", owner, le16(beatID)]
func (d *Deriver) Beat(owner PublicKey, beatID uint16) (ProgramAddress, error) {
	return d.find([]byte("beat"), owner[:], LE16(beatID))
}

// Track ["track", beat, artist, le16(take)]
func (d *Deriver) Track(beat, artist PublicKey, take uint16) (ProgramAddress, error) {
	return d.find([]byte("track"), beat[:], artist[:], LE16(take))
}
