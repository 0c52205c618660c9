package codec

import (
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dimi/core/address"
	"dimi/core/digest"
	"dimi/model"
)

func key(b byte) address.PublicKey {
	var pk address.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func sampleBeat(t *testing.T) *model.Beat {
	t.Helper()
	mk, err := MusicalKey("Am")
	require.NoError(t, err)
	ct, err := ContentType("audio/mpeg")
	require.NoError(t, err)
	tags, err := Tags("trap", "dark")
	require.NoError(t, err)
	return &model.Beat{
		Owner:       key(7),
		BeatID:      3,
		BPM:         140,
		Shared:      true,
		Archived:    false,
		ByteLen:     12,
		CreatedAt:   1700000000,
		UpdatedAt:   1700000500,
		MusicalKey:  mk,
		ContentHash: model.ContentHash(digest.Sum([]byte("hello world!"))),
		ContentType: ct,
		Title:       "Night Drive",
		URI:         "https://arweave.net/abc",
		Tags:        tags,
	}
}

func TestDiscriminators(t *testing.T) {
	d := InstructionDiscriminator("initialize")
	assert.Equal(t, "afaf6d1f0d989bed", hex.EncodeToString(d[:]))

	assert.Equal(t, "eb9f12828ec1900d", hex.EncodeToString(BeatLayout.Discriminator[:]))
	assert.Equal(t, "942d09eb0e0f249f", hex.EncodeToString(TrackLayout.Discriminator[:]))

	d = InstructionDiscriminator(IxBeatCreate)
	assert.Equal(t, "51ce692c26420ca7", hex.EncodeToString(d[:]))
}

func TestLayout_Offsets(t *testing.T) {
	cases := []struct {
		layout *Layout
		field  string
		want   int
	}{
		{ConfigLayout, FieldAdmin, 8},
		{ConfigLayout, FieldBump, 40},
		{UserLayout, FieldAuthority, 8},
		{UserLayout, FieldDisplayName, 51},
		{BeatLayout, FieldOwner, 8},
		{BeatLayout, FieldBeatID, 40},
		{BeatLayout, FieldShared, 44},
		{BeatLayout, FieldArchived, 45},
		{BeatLayout, FieldContentHash, 74},
		{BeatLayout, FieldTitle, 122},
		{TrackLayout, FieldBeat, 8},
		{TrackLayout, FieldArtist, 40},
		{TrackLayout, FieldTake, 72},
	}
	for _, c := range cases {
		got, err := c.layout.Offset(c.field)
		require.NoError(t, err, "%s.%s", c.layout.Name, c.field)
		assert.Equal(t, c.want, got, "%s.%s", c.layout.Name, c.field)
	}

	_, err := BeatLayout.Offset(FieldURI)
	assert.ErrorIs(t, err, ErrVariableOffset)
	_, err = TrackLayout.Offset(FieldCreatedAt)
	assert.ErrorIs(t, err, ErrVariableOffset)
	_, err = BeatLayout.Offset("nope")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestBeat_RoundTrip(t *testing.T) {
	in := sampleBeat(t)
	data := EncodeBeat(in)

	assert.Equal(t, BeatLayout.Discriminator[:], data[:8])
	assert.Equal(t, in.Owner[:], data[8:40])
	assert.Equal(t, byte(1), data[44])

	out, err := DecodeBeat(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, "Am", out.MusicalKey.String())
	assert.Equal(t, "audio/mpeg", out.ContentType.String())
	assert.Equal(t, "trap", out.Tags[0].String())
}

func TestBeat_EmptyTagsDecodeToNil(t *testing.T) {
	in := sampleBeat(t)
	in.Tags = []model.Tag{}
	data := EncodeBeat(in)

	withNil := *in
	withNil.Tags = nil
	assert.Equal(t, EncodeBeat(&withNil), data)

	out, err := DecodeBeat(data)
	require.NoError(t, err)
	assert.Nil(t, out.Tags)
	assert.Equal(t, &withNil, out)

	tags, err := Tags()
	require.NoError(t, err)
	assert.Nil(t, tags)
}

func TestBeat_IDUsesDerivationEncoding(t *testing.T) {
	for _, id := range []uint16{0, 1, 258, 65535} {
		in := &model.Beat{Owner: key(2), BeatID: id}
		data := EncodeBeat(in)
		assert.Equal(t, address.LE16(id), data[40:42], "beat id %d", id)
	}
	data, err := EncodeTrackCreate(&TrackCreateArgs{Take: 513})
	require.NoError(t, err)
	assert.Equal(t, address.LE16(513), data[8:10])
}

func TestBeat_MyBeatScenario(t *testing.T) {
	in := &model.Beat{Owner: key(1), Title: "My Beat", BPM: 90}
	data := EncodeBeat(in)

	assert.Equal(t, byte(0), data[44], "shared flag")
	assert.Equal(t, uint16(90), binary.LittleEndian.Uint16(data[42:44]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(data[122:126]))
	assert.Equal(t, "My Beat", string(data[126:133]))

	out, err := DecodeBeat(data)
	require.NoError(t, err)
	assert.Equal(t, "My Beat", out.Title)
	assert.Equal(t, uint16(90), out.BPM)
	assert.False(t, out.Shared)
	assert.Nil(t, out.Tags)
}

func TestUserConfigTrack_RoundTrip(t *testing.T) {
	u := &model.User{Authority: key(2), Roles: model.RoleProducer | model.RoleArtist, CreatedAt: 42, NextBeatID: 5, DisplayName: "dj"}
	gotU, err := DecodeUser(EncodeUser(u))
	require.NoError(t, err)
	assert.Equal(t, u, gotU)

	c := &model.Config{Admin: key(9), Bump: 254}
	gotC, err := DecodeConfig(EncodeConfig(c))
	require.NoError(t, err)
	assert.Equal(t, c, gotC)

	ct, err := ContentType("audio/wav")
	require.NoError(t, err)
	tr := &model.Track{Beat: key(3), Artist: key(4), Take: 2, URI: "https://arweave.net/x", ContentType: ct, ByteLen: 99, CreatedAt: 77}
	gotT, err := DecodeTrack(EncodeTrack(tr))
	require.NoError(t, err)
	assert.Equal(t, tr, gotT)
}

func TestDecode_DiscriminatorMismatch(t *testing.T) {
	beat := EncodeBeat(sampleBeat(t))

	_, err := DecodeTrack(beat)
	assert.ErrorIs(t, err, ErrDiscriminatorMismatch)
	_, err = DecodeUser(beat)
	assert.ErrorIs(t, err, ErrDiscriminatorMismatch)

	// short buffers report the same error, not overflow
	_, err = DecodeBeat([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrDiscriminatorMismatch)
	_, err = DecodeBeat(nil)
	assert.ErrorIs(t, err, ErrDiscriminatorMismatch)
}

func TestDecode_Overflow(t *testing.T) {
	data := EncodeBeat(sampleBeat(t))

	// truncated inside the fixed prefix
	_, err := DecodeBeat(data[:60])
	assert.ErrorIs(t, err, ErrLayoutOverflow)

	// title length prefix claims more than the buffer holds
	bad := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(bad[122:126], 1<<20)
	_, err = DecodeBeat(bad)
	require.ErrorIs(t, err, ErrLayoutOverflow)
	var le *LayoutError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, FieldTitle, le.Field)

	// tag count overflows
	bad = append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(bad[len(bad)-2*TagWidth-4:], 1000)
	_, err = DecodeBeat(bad)
	assert.ErrorIs(t, err, ErrLayoutOverflow)
}

func TestDecode_TrailingBytesIgnored(t *testing.T) {
	in := sampleBeat(t)
	data := append(EncodeBeat(in), make([]byte, 64)...)
	out, err := DecodeBeat(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFixedText(t *testing.T) {
	b, err := FixedText("C#m", MusicalKeyWidth)
	require.NoError(t, err)
	assert.Equal(t, []byte{'C', '#', 'm', 0, 0, 0, 0, 0}, b)

	_, err = FixedText("application/vnd.long", ContentTypeWidth)
	assert.ErrorIs(t, err, ErrFixedFieldOverflow)
	assert.ErrorIs(t, err, ErrLayoutOverflow)

	assert.Equal(t, []byte("application/vnd."), TruncateFixed("application/vnd.long", ContentTypeWidth))

	_, err = Tags("ok", "this-tag-is-way-too-long")
	assert.ErrorIs(t, err, ErrFixedFieldOverflow)

	none, err := Tags()
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestIdentify(t *testing.T) {
	assert.Same(t, BeatLayout, Identify(EncodeBeat(sampleBeat(t))))
	assert.Same(t, ConfigLayout, Identify(EncodeConfig(&model.Config{})))
	assert.Nil(t, Identify([]byte("garbage-bytes")))
	assert.Nil(t, Identify(nil))
}

func TestInstructions(t *testing.T) {
	data := EncodeBeatToggleShared(true)
	d := InstructionDiscriminator(IxBeatToggleShared)
	assert.Equal(t, append(d[:], 1), data)

	data, err := EncodeRegisterUser("dj", model.RoleArtist)
	require.NoError(t, err)
	assert.Len(t, data, 8+4+2+1)
	assert.Equal(t, byte(model.RoleArtist), data[len(data)-1])

	_, err = EncodeRegisterUser(string(make([]byte, MaxDisplayNameLen+1)), model.RoleArtist)
	assert.ErrorIs(t, err, ErrFieldTooLong)

	b := sampleBeat(t)
	args := &BeatCreateArgs{
		Title: b.Title, BPM: b.BPM, MusicalKey: b.MusicalKey, Tags: b.Tags,
		URI: b.URI, ContentHash: b.ContentHash, ContentType: b.ContentType, ByteLen: b.ByteLen,
	}
	data, err = EncodeBeatCreate(args)
	require.NoError(t, err)
	want := 8 + 4 + len(b.Title) + 2 + 8 + 4 + 2*TagWidth + 4 + len(b.URI) + 32 + 16 + 4
	assert.Len(t, data, want)

	args.Tags = make([]model.Tag, MaxTags+1)
	_, err = EncodeBeatCreate(args)
	assert.ErrorIs(t, err, ErrFieldTooLong)

	title := "Renamed"
	data, err = EncodeBeatUpdate(&BeatUpdateArgs{Title: &title})
	require.NoError(t, err)
	// Some(title) followed by seven None flags
	assert.Len(t, data, 8+1+4+len(title)+7)
	assert.Equal(t, byte(1), data[8])

	data, err = EncodeBeatUpdate(&BeatUpdateArgs{})
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 8), data[8:])

	data, err = EncodeTrackCreate(&TrackCreateArgs{Take: 1, URI: "u"})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0}, data[8:10])

	d = InstructionDiscriminator(IxTrackDelete)
	assert.Equal(t, d[:], EncodeTrackDelete())

	admin := key(9)
	d = InstructionDiscriminator(IxInitConfig)
	data = EncodeInitConfig(admin)
	assert.Len(t, data, 8+32)
	assert.Equal(t, d[:], data[:8])
	assert.Equal(t, admin[:], data[8:])

	d = InstructionDiscriminator(IxSetRoles)
	assert.Equal(t, append(d[:], byte(model.RoleProducer|model.RoleArtist)), EncodeSetRoles(model.RoleProducer|model.RoleArtist))

	d = InstructionDiscriminator(IxBeatArchive)
	assert.Equal(t, d[:], EncodeBeatArchive())
	assert.NotEqual(t, EncodeBeatArchive(), EncodeTrackDelete())
}
