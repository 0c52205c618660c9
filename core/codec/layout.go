package codec

import (
	"bytes"
	"errors"
	"fmt"

	"dimi/core/digest"
)

// DiscriminatorSize 每个账户开头的类型判别符长度
const DiscriminatorSize = 8

// FieldKind 字段的语义类型
type FieldKind int

const (
	KindPubkey FieldKind = iota
	KindU8
	KindU16
	KindU32
	KindI64
	KindBool
	KindFixed    // Width 字节定长数组
	KindString   // u32 小端长度 + 字节
	KindFixedVec // u32 小端数量 + 数量*Width 字节
)

func (k FieldKind) String() string {
	switch k {
	case KindPubkey:
		return "pubkey"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindI64:
		return "i64"
	case KindBool:
		return "bool"
	case KindFixed:
		return "fixed"
	case KindString:
		return "string"
	case KindFixedVec:
		return "fixed_vec"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field 布局中的一个字段
type Field struct {
	Name  string
	Kind  FieldKind
	Width int // 定长字段的宽度；KindFixedVec 为单个元素宽度
}

// Size 定长字段返回其字节数；变长字段返回 false
func (f Field) Size() (int, bool) {
	switch f.Kind {
	case KindPubkey:
		return 32, true
	case KindU8, KindBool:
		return 1, true
	case KindU16:
		return 2, true
	case KindU32:
		return 4, true
	case KindI64:
		return 8, true
	case KindFixed:
		return f.Width, true
	default:
		return 0, false
	}
}

var (
	// ErrUnknownField 布局中没有该字段
	ErrUnknownField = errors.New("unknown field")
	// ErrVariableOffset 字段前面存在变长字段，偏移量不是常量
	ErrVariableOffset = errors.New("field offset depends on variable-length data")
)

// Layout 一种账户类型的静态二进制布局
type Layout struct {
	Name          string
	Discriminator [DiscriminatorSize]byte
	Fields        []Field
}

// AccountDiscriminator 账户判别符：sha256("account:<Name>") 的前 8 字节
func AccountDiscriminator(name string) [DiscriminatorSize]byte {
	return prefix8("account:" + name)
}

// InstructionDiscriminator 指令判别符：sha256("global:<name>") 的前 8 字节
func InstructionDiscriminator(name string) [DiscriminatorSize]byte {
	return prefix8("global:" + name)
}

func prefix8(preimage string) [DiscriminatorSize]byte {
	sum := digest.Sum([]byte(preimage))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

func newLayout(name string, fields ...Field) *Layout {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name] {
			panic(fmt.Sprintf("codec: duplicate field %q in layout %s", f.Name, name))
		}
		seen[f.Name] = true
		if (f.Kind == KindFixed || f.Kind == KindFixedVec) && f.Width <= 0 {
			panic(fmt.Sprintf("codec: field %s.%s needs a width", name, f.Name))
		}
	}
	return &Layout{
		Name:          name,
		Discriminator: AccountDiscriminator(name),
		Fields:        fields,
	}
}

// Field 按名称查找字段
func (l *Layout) Field(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Offset 计算字段在编码结果中的字节偏移（含判别符）。
// 只有前面全是定长字段时偏移才是常量，否则返回 ErrVariableOffset。
func (l *Layout) Offset(name string) (int, error) {
	off := DiscriminatorSize
	for _, f := range l.Fields {
		if f.Name == name {
			return off, nil
		}
		size, fixed := f.Size()
		if !fixed {
			if _, ok := l.Field(name); !ok {
				break
			}
			return 0, fmt.Errorf("%w: %s.%s follows %s", ErrVariableOffset, l.Name, name, f.Name)
		}
		off += size
	}
	return 0, fmt.Errorf("%w: %s.%s", ErrUnknownField, l.Name, name)
}

// MinSize 所有变长字段为空时的编码长度
func (l *Layout) MinSize() int {
	n := DiscriminatorSize
	for _, f := range l.Fields {
		if size, fixed := f.Size(); fixed {
			n += size
		} else {
			n += 4
		}
	}
	return n
}

// Matches 判断数据是否以该类型的判别符开头
func (l *Layout) Matches(data []byte) bool {
	return len(data) >= DiscriminatorSize && bytes.Equal(data[:DiscriminatorSize], l.Discriminator[:])
}

// 字段名与链上程序的账户定义一致
const (
	FieldAdmin       = "admin"
	FieldBump        = "bump"
	FieldAuthority   = "authority"
	FieldRoles       = "roles"
	FieldCreatedAt   = "created_at"
	FieldNextBeatID  = "next_beat_id"
	FieldDisplayName = "display_name"
	FieldOwner       = "owner"
	FieldBeatID      = "beat_id"
	FieldBPM         = "bpm"
	FieldShared      = "shared"
	FieldArchived    = "archived"
	FieldByteLen     = "byte_len"
	FieldUpdatedAt   = "updated_at"
	FieldMusicalKey  = "musical_key"
	FieldContentHash = "content_hash"
	FieldContentType = "content_type"
	FieldTitle       = "title"
	FieldURI         = "uri"
	FieldTags        = "tags"
	FieldBeat        = "beat"
	FieldArtist      = "artist"
	FieldTake        = "take"
)

// 定长文本字段宽度
const (
	MusicalKeyWidth  = 8
	ContentTypeWidth = 16
	TagWidth         = 16
	HashWidth        = digest.Size
)

var (
	ConfigLayout = newLayout("Config",
		Field{Name: FieldAdmin, Kind: KindPubkey},
		Field{Name: FieldBump, Kind: KindU8},
	)

	UserLayout = newLayout("User",
		Field{Name: FieldAuthority, Kind: KindPubkey},
		Field{Name: FieldRoles, Kind: KindU8},
		Field{Name: FieldCreatedAt, Kind: KindI64},
		Field{Name: FieldNextBeatID, Kind: KindU16},
		Field{Name: FieldDisplayName, Kind: KindString},
	)

	BeatLayout = newLayout("Beat",
		Field{Name: FieldOwner, Kind: KindPubkey},
		Field{Name: FieldBeatID, Kind: KindU16},
		Field{Name: FieldBPM, Kind: KindU16},
		Field{Name: FieldShared, Kind: KindBool},
		Field{Name: FieldArchived, Kind: KindBool},
		Field{Name: FieldByteLen, Kind: KindU32},
		Field{Name: FieldCreatedAt, Kind: KindI64},
		Field{Name: FieldUpdatedAt, Kind: KindI64},
		Field{Name: FieldMusicalKey, Kind: KindFixed, Width: MusicalKeyWidth},
		Field{Name: FieldContentHash, Kind: KindFixed, Width: HashWidth},
		Field{Name: FieldContentType, Kind: KindFixed, Width: ContentTypeWidth},
		Field{Name: FieldTitle, Kind: KindString},
		Field{Name: FieldURI, Kind: KindString},
		Field{Name: FieldTags, Kind: KindFixedVec, Width: TagWidth},
	)

	TrackLayout = newLayout("Track",
		Field{Name: FieldBeat, Kind: KindPubkey},
		Field{Name: FieldArtist, Kind: KindPubkey},
		Field{Name: FieldTake, Kind: KindU16},
		Field{Name: FieldURI, Kind: KindString},
		Field{Name: FieldContentHash, Kind: KindFixed, Width: HashWidth},
		Field{Name: FieldContentType, Kind: KindFixed, Width: ContentTypeWidth},
		Field{Name: FieldByteLen, Kind: KindU32},
		Field{Name: FieldCreatedAt, Kind: KindI64},
	)

	// Layouts 程序拥有的全部账户类型
	Layouts = []*Layout{ConfigLayout, UserLayout, BeatLayout, TrackLayout}
)

// Identify 根据判别符判断数据属于哪种账户，未知类型返回 nil
func Identify(data []byte) *Layout {
	for _, l := range Layouts {
		if l.Matches(data) {
			return l
		}
	}
	return nil
}
