package codec

import (
	"fmt"

	"dimi/model"
)

// ErrFixedFieldOverflow 文本超出定长字段宽度。
// 原先的客户端会静默截断，这里改为显式报错；需要截断时调用 TruncateFixed。
var ErrFixedFieldOverflow = fmt.Errorf("fixed-width field overflow: %w", ErrLayoutOverflow)

// FixedText 把文本放入 width 字节，不足补零，超出报错
func FixedText(s string, width int) ([]byte, error) {
	if len(s) > width {
		return nil, fmt.Errorf("%w: %q is %d bytes, width %d", ErrFixedFieldOverflow, s, len(s), width)
	}
	out := make([]byte, width)
	copy(out, s)
	return out, nil
}

// TruncateFixed 有损版本：超出部分直接丢弃
func TruncateFixed(s string, width int) []byte {
	out := make([]byte, width)
	copy(out, s)
	return out
}

// MusicalKey 构造 8 字节调式字段
func MusicalKey(s string) (model.MusicalKey, error) {
	var k model.MusicalKey
	b, err := FixedText(s, MusicalKeyWidth)
	if err != nil {
		return k, err
	}
	copy(k[:], b)
	return k, nil
}

// ContentType 构造 16 字节 MIME 字段
func ContentType(s string) (model.ContentType, error) {
	var c model.ContentType
	b, err := FixedText(s, ContentTypeWidth)
	if err != nil {
		return c, err
	}
	copy(c[:], b)
	return c, nil
}

// Tags 构造标签列表，没有标签时返回 nil，与解码结果一致
func Tags(ss ...string) ([]model.Tag, error) {
	if len(ss) == 0 {
		return nil, nil
	}
	out := make([]model.Tag, len(ss))
	for i, s := range ss {
		b, err := FixedText(s, TagWidth)
		if err != nil {
			return nil, err
		}
		copy(out[i][:], b)
	}
	return out, nil
}

// EncodeConfig 编码 Config 账户
func EncodeConfig(c *model.Config) []byte {
	e := newEncoder(ConfigLayout, 0)
	e.pubkey(FieldAdmin, c.Admin)
	e.u8(FieldBump, c.Bump)
	return e.bytes()
}

// DecodeConfig 解码 Config 账户
func DecodeConfig(data []byte) (*model.Config, error) {
	d, err := newDecoder(ConfigLayout, data)
	if err != nil {
		return nil, err
	}
	c := &model.Config{}
	c.Admin = d.pubkey(FieldAdmin)
	c.Bump = d.u8(FieldBump)
	if err := d.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

// EncodeUser 编码 User 账户
func EncodeUser(u *model.User) []byte {
	e := newEncoder(UserLayout, len(u.DisplayName))
	e.pubkey(FieldAuthority, u.Authority)
	e.u8(FieldRoles, uint8(u.Roles))
	e.i64(FieldCreatedAt, u.CreatedAt)
	e.u16(FieldNextBeatID, u.NextBeatID)
	e.str(FieldDisplayName, u.DisplayName)
	return e.bytes()
}

// DecodeUser 解码 User 账户
func DecodeUser(data []byte) (*model.User, error) {
	d, err := newDecoder(UserLayout, data)
	if err != nil {
		return nil, err
	}
	u := &model.User{}
	u.Authority = d.pubkey(FieldAuthority)
	u.Roles = model.Role(d.u8(FieldRoles))
	u.CreatedAt = d.i64(FieldCreatedAt)
	u.NextBeatID = d.u16(FieldNextBeatID)
	u.DisplayName = d.str(FieldDisplayName)
	if err := d.finish(); err != nil {
		return nil, err
	}
	return u, nil
}

// EncodeBeat 编码 Beat 账户
func EncodeBeat(b *model.Beat) []byte {
	e := newEncoder(BeatLayout, len(b.Title)+len(b.URI)+len(b.Tags)*TagWidth)
	e.pubkey(FieldOwner, b.Owner)
	e.u16(FieldBeatID, b.BeatID)
	e.u16(FieldBPM, b.BPM)
	e.boolean(FieldShared, b.Shared)
	e.boolean(FieldArchived, b.Archived)
	e.u32(FieldByteLen, b.ByteLen)
	e.i64(FieldCreatedAt, b.CreatedAt)
	e.i64(FieldUpdatedAt, b.UpdatedAt)
	e.fixed(FieldMusicalKey, b.MusicalKey[:])
	e.fixed(FieldContentHash, b.ContentHash[:])
	e.fixed(FieldContentType, b.ContentType[:])
	e.str(FieldTitle, b.Title)
	e.str(FieldURI, b.URI)
	e.fixedVec(FieldTags, tagBytes(b.Tags))
	return e.bytes()
}

// DecodeBeat 解码 Beat 账户。没有标签时 Tags 为 nil，
// 所以 []model.Tag{} 和 nil 编码结果相同、解码都得到 nil。
func DecodeBeat(data []byte) (*model.Beat, error) {
	d, err := newDecoder(BeatLayout, data)
	if err != nil {
		return nil, err
	}
	b := &model.Beat{}
	b.Owner = d.pubkey(FieldOwner)
	b.BeatID = d.u16(FieldBeatID)
	b.BPM = d.u16(FieldBPM)
	b.Shared = d.boolean(FieldShared)
	b.Archived = d.boolean(FieldArchived)
	b.ByteLen = d.u32(FieldByteLen)
	b.CreatedAt = d.i64(FieldCreatedAt)
	b.UpdatedAt = d.i64(FieldUpdatedAt)
	d.fixed(FieldMusicalKey, b.MusicalKey[:])
	d.fixed(FieldContentHash, b.ContentHash[:])
	d.fixed(FieldContentType, b.ContentType[:])
	b.Title = d.str(FieldTitle)
	b.URI = d.str(FieldURI)
	for _, raw := range d.fixedVec(FieldTags) {
		var t model.Tag
		copy(t[:], raw)
		b.Tags = append(b.Tags, t)
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return b, nil
}

// EncodeTrack 编码 Track 账户
func EncodeTrack(t *model.Track) []byte {
	e := newEncoder(TrackLayout, len(t.URI))
	e.pubkey(FieldBeat, t.Beat)
	e.pubkey(FieldArtist, t.Artist)
	e.u16(FieldTake, t.Take)
	e.str(FieldURI, t.URI)
	e.fixed(FieldContentHash, t.ContentHash[:])
	e.fixed(FieldContentType, t.ContentType[:])
	e.u32(FieldByteLen, t.ByteLen)
	e.i64(FieldCreatedAt, t.CreatedAt)
	return e.bytes()
}

// DecodeTrack 解码 Track 账户
func DecodeTrack(data []byte) (*model.Track, error) {
	d, err := newDecoder(TrackLayout, data)
	if err != nil {
		return nil, err
	}
	t := &model.Track{}
	t.Beat = d.pubkey(FieldBeat)
	t.Artist = d.pubkey(FieldArtist)
	t.Take = d.u16(FieldTake)
	t.URI = d.str(FieldURI)
	d.fixed(FieldContentHash, t.ContentHash[:])
	d.fixed(FieldContentType, t.ContentType[:])
	t.ByteLen = d.u32(FieldByteLen)
	t.CreatedAt = d.i64(FieldCreatedAt)
	if err := d.finish(); err != nil {
		return nil, err
	}
	return t, nil
}

func tagBytes(tags []model.Tag) [][]byte {
	out := make([][]byte, len(tags))
	for i := range tags {
		out[i] = tags[i][:]
	}
	return out
}
