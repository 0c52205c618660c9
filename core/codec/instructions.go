package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"dimi/core/address"
	"dimi/model"
)

// 链上程序对变长字段的限制，客户端提前校验
const (
	MaxDisplayNameLen = 32
	MaxTitleLen       = 64
	MaxURILen         = 200
	MaxTags           = 6
)

// 指令名
const (
	IxInitConfig       = "init_config"
	IxRegisterUser     = "register_user"
	IxSetRoles         = "set_roles"
	IxBeatCreate       = "beat_create"
	IxBeatUpdate       = "beat_update"
	IxBeatToggleShared = "beat_toggle_shared"
	IxBeatArchive      = "beat_archive"
	IxTrackCreate      = "track_create"
	IxTrackDelete      = "track_delete"
)

// ErrFieldTooLong 参数超过链上程序允许的长度
var ErrFieldTooLong = errors.New("field exceeds program limit")

// BeatCreateArgs beat_create 的参数
type BeatCreateArgs struct {
	Title       string
	BPM         uint16
	MusicalKey  model.MusicalKey
	Tags        []model.Tag
	URI         string
	ContentHash model.ContentHash
	ContentType model.ContentType
	ByteLen     uint32
}

// BeatUpdateArgs beat_update 的参数，nil 表示不修改
type BeatUpdateArgs struct {
	Title       *string
	BPM         *uint16
	MusicalKey  *model.MusicalKey
	Tags        *[]model.Tag
	URI         *string
	ContentHash *model.ContentHash
	ContentType *model.ContentType
	ByteLen     *uint32
}

// TrackCreateArgs track_create 的参数
type TrackCreateArgs struct {
	Take        uint16
	URI         string
	ContentHash model.ContentHash
	ContentType model.ContentType
	ByteLen     uint32
}

type ixWriter struct {
	buf []byte
}

func newIx(name string) *ixWriter {
	d := InstructionDiscriminator(name)
	return &ixWriter{buf: append(make([]byte, 0, 64), d[:]...)}
}

func (w *ixWriter) raw(b []byte)      { w.buf = append(w.buf, b...) }
func (w *ixWriter) u8(v uint8)        { w.buf = append(w.buf, v) }
func (w *ixWriter) u16(v uint16)      { w.buf = append(w.buf, address.LE16(v)...) }
func (w *ixWriter) u32(v uint32)      { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *ixWriter) boolean(v bool)    { w.buf = appendBool(w.buf, v) }
func (w *ixWriter) str(v string)      { w.buf = appendString(w.buf, v) }
func (w *ixWriter) option(some bool)  { w.boolean(some) }
func (w *ixWriter) tags(v []model.Tag) {
	w.u32(uint32(len(v)))
	for i := range v {
		w.raw(v[i][:])
	}
}

func checkLen(field string, n, limit int) error {
	if n > limit {
		return fmt.Errorf("%w: %s is %d, max %d", ErrFieldTooLong, field, n, limit)
	}
	return nil
}

// EncodeInitConfig init_config(admin)
func EncodeInitConfig(admin address.PublicKey) []byte {
	w := newIx(IxInitConfig)
	w.raw(admin[:])
	return w.buf
}

// EncodeRegisterUser register_user(display_name, roles)
func EncodeRegisterUser(displayName string, roles model.Role) ([]byte, error) {
	if err := checkLen(FieldDisplayName, len(displayName), MaxDisplayNameLen); err != nil {
		return nil, err
	}
	w := newIx(IxRegisterUser)
	w.str(displayName)
	w.u8(uint8(roles))
	return w.buf, nil
}

// EncodeSetRoles set_roles(roles)，只有管理员可以调用
func EncodeSetRoles(roles model.Role) []byte {
	w := newIx(IxSetRoles)
	w.u8(uint8(roles))
	return w.buf
}

// ValidateBeatCreate 检查变长参数是否在链上限制内，URI 为空时也可用于上传前的预检
func ValidateBeatCreate(a *BeatCreateArgs) error {
	if err := checkLen(FieldTitle, len(a.Title), MaxTitleLen); err != nil {
		return err
	}
	if err := checkLen(FieldURI, len(a.URI), MaxURILen); err != nil {
		return err
	}
	return checkLen(FieldTags, len(a.Tags), MaxTags)
}

// EncodeBeatCreate beat_create(...)
func EncodeBeatCreate(a *BeatCreateArgs) ([]byte, error) {
	if err := ValidateBeatCreate(a); err != nil {
		return nil, err
	}
	w := newIx(IxBeatCreate)
	w.str(a.Title)
	w.u16(a.BPM)
	w.raw(a.MusicalKey[:])
	w.tags(a.Tags)
	w.str(a.URI)
	w.raw(a.ContentHash[:])
	w.raw(a.ContentType[:])
	w.u32(a.ByteLen)
	return w.buf, nil
}

// EncodeBeatUpdate beat_update(BeatUpdateArgs)，每个字段都是 Option
func EncodeBeatUpdate(a *BeatUpdateArgs) ([]byte, error) {
	w := newIx(IxBeatUpdate)

	w.option(a.Title != nil)
	if a.Title != nil {
		if err := checkLen(FieldTitle, len(*a.Title), MaxTitleLen); err != nil {
			return nil, err
		}
		w.str(*a.Title)
	}
	w.option(a.BPM != nil)
	if a.BPM != nil {
		w.u16(*a.BPM)
	}
	w.option(a.MusicalKey != nil)
	if a.MusicalKey != nil {
		w.raw(a.MusicalKey[:])
	}
	w.option(a.Tags != nil)
	if a.Tags != nil {
		if err := checkLen(FieldTags, len(*a.Tags), MaxTags); err != nil {
			return nil, err
		}
		w.tags(*a.Tags)
	}
	w.option(a.URI != nil)
	if a.URI != nil {
		if err := checkLen(FieldURI, len(*a.URI), MaxURILen); err != nil {
			return nil, err
		}
		w.str(*a.URI)
	}
	w.option(a.ContentHash != nil)
	if a.ContentHash != nil {
		w.raw(a.ContentHash[:])
	}
	w.option(a.ContentType != nil)
	if a.ContentType != nil {
		w.raw(a.ContentType[:])
	}
	w.option(a.ByteLen != nil)
	if a.ByteLen != nil {
		w.u32(*a.ByteLen)
	}
	return w.buf, nil
}

// EncodeBeatToggleShared beat_toggle_shared(shared)
func EncodeBeatToggleShared(shared bool) []byte {
	w := newIx(IxBeatToggleShared)
	w.boolean(shared)
	return w.buf
}

// EncodeBeatArchive beat_archive()
func EncodeBeatArchive() []byte {
	return newIx(IxBeatArchive).buf
}

// EncodeTrackCreate track_create(...)
func EncodeTrackCreate(a *TrackCreateArgs) ([]byte, error) {
	if err := checkLen(FieldURI, len(a.URI), MaxURILen); err != nil {
		return nil, err
	}
	w := newIx(IxTrackCreate)
	w.u16(a.Take)
	w.str(a.URI)
	w.raw(a.ContentHash[:])
	w.raw(a.ContentType[:])
	w.u32(a.ByteLen)
	return w.buf, nil
}

// EncodeTrackDelete track_delete()
func EncodeTrackDelete() []byte {
	return newIx(IxTrackDelete).buf
}
