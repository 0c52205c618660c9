package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"dimi/core/address"
)

var (
	// ErrDiscriminatorMismatch 数据开头的 8 字节不是期望的账户类型。
	// 在混合账户集合中可以据此跳过无关账户。
	ErrDiscriminatorMismatch = errors.New("account discriminator mismatch")
	// ErrLayoutOverflow 读取越过了缓冲区末尾，或写入值超出字段宽度
	ErrLayoutOverflow = errors.New("account layout overflow")
)

// LayoutError 描述具体哪个字段越界
type LayoutError struct {
	Layout string
	Field  string
	Offset int
	Need   int
	Have   int
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("%s.%s at offset %d needs %d bytes, %d available", e.Layout, e.Field, e.Offset, e.Need, e.Have)
}

// Unwrap 使 errors.Is(err, ErrLayoutOverflow) 成立
func (e *LayoutError) Unwrap() error {
	return ErrLayoutOverflow
}

// encoder 按布局描述顺序写字段，写入顺序与描述不一致直接 panic
type encoder struct {
	layout *Layout
	idx    int
	buf    []byte
}

func newEncoder(l *Layout, hint int) *encoder {
	buf := make([]byte, 0, l.MinSize()+hint)
	buf = append(buf, l.Discriminator[:]...)
	return &encoder{layout: l, buf: buf}
}

func (e *encoder) next(name string, kind FieldKind) Field {
	if e.idx >= len(e.layout.Fields) {
		panic(fmt.Sprintf("codec: %s has no field after %d, writing %s", e.layout.Name, e.idx, name))
	}
	f := e.layout.Fields[e.idx]
	if f.Name != name || f.Kind != kind {
		panic(fmt.Sprintf("codec: %s field %d is %s(%s), writing %s(%s)", e.layout.Name, e.idx, f.Name, f.Kind, name, kind))
	}
	e.idx++
	return f
}

func (e *encoder) pubkey(name string, v [32]byte) {
	e.next(name, KindPubkey)
	e.buf = append(e.buf, v[:]...)
}

func (e *encoder) u8(name string, v uint8) {
	e.next(name, KindU8)
	e.buf = append(e.buf, v)
}

func (e *encoder) u16(name string, v uint16) {
	e.next(name, KindU16)
	e.buf = append(e.buf, address.LE16(v)...)
}

func (e *encoder) u32(name string, v uint32) {
	e.next(name, KindU32)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *encoder) i64(name string, v int64) {
	e.next(name, KindI64)
	e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v))
}

func (e *encoder) boolean(name string, v bool) {
	e.next(name, KindBool)
	e.buf = appendBool(e.buf, v)
}

func (e *encoder) fixed(name string, v []byte) {
	f := e.next(name, KindFixed)
	if len(v) != f.Width {
		panic(fmt.Sprintf("codec: %s.%s expects %d bytes, got %d", e.layout.Name, name, f.Width, len(v)))
	}
	e.buf = append(e.buf, v...)
}

func (e *encoder) str(name string, v string) {
	e.next(name, KindString)
	e.buf = appendString(e.buf, v)
}

func (e *encoder) fixedVec(name string, items [][]byte) {
	f := e.next(name, KindFixedVec)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(items)))
	for _, it := range items {
		if len(it) != f.Width {
			panic(fmt.Sprintf("codec: %s.%s element expects %d bytes, got %d", e.layout.Name, name, f.Width, len(it)))
		}
		e.buf = append(e.buf, it...)
	}
}

func (e *encoder) bytes() []byte {
	if e.idx != len(e.layout.Fields) {
		panic(fmt.Sprintf("codec: %s encoded %d of %d fields", e.layout.Name, e.idx, len(e.layout.Fields)))
	}
	return e.buf
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendString(buf []byte, v string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v)))
	return append(buf, v...)
}

// decoder 镜像 encoder；第一次越界后记录错误，后续读取都返回零值
type decoder struct {
	layout *Layout
	idx    int
	data   []byte
	off    int
	err    error
}

func newDecoder(l *Layout, data []byte) (*decoder, error) {
	if !l.Matches(data) {
		return nil, fmt.Errorf("%w: expected %s", ErrDiscriminatorMismatch, l.Name)
	}
	return &decoder{layout: l, data: data, off: DiscriminatorSize}, nil
}

func (d *decoder) next(name string, kind FieldKind) Field {
	if d.idx >= len(d.layout.Fields) {
		panic(fmt.Sprintf("codec: %s has no field after %d, reading %s", d.layout.Name, d.idx, name))
	}
	f := d.layout.Fields[d.idx]
	if f.Name != name || f.Kind != kind {
		panic(fmt.Sprintf("codec: %s field %d is %s(%s), reading %s(%s)", d.layout.Name, d.idx, f.Name, f.Kind, name, kind))
	}
	d.idx++
	return f
}

// take 取 n 个字节，越界时记录 LayoutError
func (d *decoder) take(field string, n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > len(d.data)-d.off {
		d.err = &LayoutError{Layout: d.layout.Name, Field: field, Offset: d.off, Need: n, Have: len(d.data) - d.off}
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) pubkey(name string) (v [32]byte) {
	d.next(name, KindPubkey)
	copy(v[:], d.take(name, 32))
	return v
}

func (d *decoder) u8(name string) uint8 {
	d.next(name, KindU8)
	if b := d.take(name, 1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16(name string) uint16 {
	d.next(name, KindU16)
	if b := d.take(name, 2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u32(name string) uint32 {
	d.next(name, KindU32)
	if b := d.take(name, 4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) i64(name string) int64 {
	d.next(name, KindI64)
	if b := d.take(name, 8); b != nil {
		return int64(binary.LittleEndian.Uint64(b))
	}
	return 0
}

func (d *decoder) boolean(name string) bool {
	d.next(name, KindBool)
	if b := d.take(name, 1); b != nil {
		return b[0] != 0
	}
	return false
}

func (d *decoder) fixed(name string, dst []byte) {
	f := d.next(name, KindFixed)
	copy(dst, d.take(name, f.Width))
}

// length 读取 u32 长度前缀，并确认后续数据足够
func (d *decoder) length(name string, elem int) int {
	b := d.take(name, 4)
	if b == nil {
		return 0
	}
	n := uint64(binary.LittleEndian.Uint32(b))
	if n*uint64(elem) > uint64(len(d.data)-d.off) {
		d.err = &LayoutError{Layout: d.layout.Name, Field: name, Offset: d.off, Need: int(n * uint64(elem)), Have: len(d.data) - d.off}
		return 0
	}
	return int(n)
}

func (d *decoder) str(name string) string {
	d.next(name, KindString)
	n := d.length(name, 1)
	if d.err != nil {
		return ""
	}
	return string(d.take(name, n))
}

// fixedVec 空向量解码为 nil，nil 是空标签的规范形式
func (d *decoder) fixedVec(name string) [][]byte {
	f := d.next(name, KindFixedVec)
	n := d.length(name, f.Width)
	if d.err != nil || n == 0 {
		return nil
	}
	out := make([][]byte, n)
	for i := range out {
		out[i] = d.take(name, f.Width)
	}
	return out
}

func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if d.idx != len(d.layout.Fields) {
		panic(fmt.Sprintf("codec: %s decoded %d of %d fields", d.layout.Name, d.idx, len(d.layout.Fields)))
	}
	return nil
}
