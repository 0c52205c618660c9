package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"dimi/core/address"
	"dimi/core/codec"
)

// ErrEmptyFilter 一个过滤条件都没有
var ErrEmptyFilter = errors.New("empty filter")

// Predicate 账户数据在 Offset 处必须与 Bytes 逐字节相等
type Predicate struct {
	Offset int
	Bytes  []byte
}

// Filter 所有谓词同时成立
type Filter []Predicate

type memcmp struct {
	Offset int    `json:"offset"`
	Bytes  string `json:"bytes"`
}

type memcmpWrapper struct {
	Memcmp memcmp `json:"memcmp"`
}

// MarshalJSON 输出 RPC 使用的 {"memcmp":{"offset":n,"bytes":"<base58>"}}
func (p Predicate) MarshalJSON() ([]byte, error) {
	return json.Marshal(memcmpWrapper{Memcmp: memcmp{Offset: p.Offset, Bytes: base58.Encode(p.Bytes)}})
}

// UnmarshalJSON 解析 memcmp 对象
func (p *Predicate) UnmarshalJSON(data []byte) error {
	var w memcmpWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	b, err := base58.Decode(w.Memcmp.Bytes)
	if err != nil {
		return fmt.Errorf("memcmp bytes: %w", err)
	}
	p.Offset = w.Memcmp.Offset
	p.Bytes = b
	return nil
}

// Match 判断单个谓词
func (p Predicate) Match(data []byte) bool {
	end := p.Offset + len(p.Bytes)
	if p.Offset < 0 || end > len(data) {
		return false
	}
	return bytes.Equal(data[p.Offset:end], p.Bytes)
}

// Matches 客户端侧求值，空过滤器匹配一切
func (f Filter) Matches(data []byte) bool {
	for _, p := range f {
		if !p.Match(data) {
			return false
		}
	}
	return true
}

// Validate RPC 请求要求至少一个条件
func (f Filter) Validate() error {
	if len(f) == 0 {
		return ErrEmptyFilter
	}
	return nil
}

// And 合并多个过滤器
func And(filters ...Filter) Filter {
	var out Filter
	for _, f := range filters {
		out = append(out, f...)
	}
	return out
}

var (
	beatOwnerOffset   = mustOffset(codec.BeatLayout, codec.FieldOwner)
	beatSharedOffset  = mustOffset(codec.BeatLayout, codec.FieldShared)
	trackBeatOffset   = mustOffset(codec.TrackLayout, codec.FieldBeat)
	trackArtistOffset = mustOffset(codec.TrackLayout, codec.FieldArtist)
	userAuthOffset    = mustOffset(codec.UserLayout, codec.FieldAuthority)
)

func mustOffset(l *codec.Layout, field string) int {
	off, err := l.Offset(field)
	if err != nil {
		panic(fmt.Sprintf("query: %v", err))
	}
	return off
}

// OfKind 判别符过滤，位于偏移 0
func OfKind(l *codec.Layout) Filter {
	return Filter{{Offset: 0, Bytes: append([]byte(nil), l.Discriminator[:]...)}}
}

// BeatsOwnedBy 某个用户的全部 Beat
func BeatsOwnedBy(owner address.PublicKey) Filter {
	return And(OfKind(codec.BeatLayout), Filter{{Offset: beatOwnerOffset, Bytes: owner.Bytes()}})
}

// SharedBeats 已公开的 Beat
func SharedBeats() Filter {
	return And(OfKind(codec.BeatLayout), Filter{{Offset: beatSharedOffset, Bytes: []byte{1}}})
}

// TracksForBeat 某个 Beat 下的全部 Track
func TracksForBeat(beat address.PublicKey) Filter {
	return And(OfKind(codec.TrackLayout), Filter{{Offset: trackBeatOffset, Bytes: beat.Bytes()}})
}

// TracksForBeatByArtist 某个艺人在某个 Beat 下录的 Track
func TracksForBeatByArtist(beat, artist address.PublicKey) Filter {
	return And(TracksForBeat(beat), Filter{{Offset: trackArtistOffset, Bytes: artist.Bytes()}})
}

// UsersWithAuthority 按钱包查 User，正常情况下最多一个
func UsersWithAuthority(authority address.PublicKey) Filter {
	return And(OfKind(codec.UserLayout), Filter{{Offset: userAuthOffset, Bytes: authority.Bytes()}})
}
