package address

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProgramID = "Dimi111111111111111111111111111111111111111"

func testOwner() PublicKey {
	var pk PublicKey
	for i := range pk {
		pk[i] = byte(i + 1)
	}
	return pk
}

func TestFindProgramAddress_KnownVector(t *testing.T) {
	// system program id, seed "helloWorld"
	addr, bump, err := FindProgramAddress([][]byte{[]byte("helloWorld")}, PublicKey{})
	require.NoError(t, err)
	assert.Equal(t, "46GZzzetjCURsdFPb7rcnspbEMnCBXe9kpjrsZAkKb6X", addr.String())
	assert.Equal(t, uint8(254), bump)
}

func TestDeriver_EntityVectors(t *testing.T) {
	d := NewDeriver(MustParsePublicKey(testProgramID))
	owner := testOwner()
	require.Equal(t, "4wBqpZM9xaSheZzJSMawUKKwhdpChKbZ5eu5ky4Vigw", owner.String())

	cfg, err := d.Config()
	require.NoError(t, err)
	assert.Equal(t, "6qdSruDkG8ne72EA12TbHHLCo9VuFtUv5dHFmTMq8zPD", cfg.Address.String())
	assert.Equal(t, uint8(255), cfg.Bump)

	user, err := d.User(owner)
	require.NoError(t, err)
	assert.Equal(t, "78cnJdA3ZHHVZXkm64BRUXkmTRLMmbpbKm3veu4m1o7J", user.Address.String())

	beat, err := d.Beat(owner, 0)
	require.NoError(t, err)
	assert.Equal(t, "EvXvbhDHnZkcpAPMvHaQh8nLBE93ZXas66cDvsLCg27p", beat.Address.String())
}

func TestDeriver_Deterministic(t *testing.T) {
	d := NewDeriver(MustParsePublicKey(testProgramID))
	owner := testOwner()

	for id := uint16(0); id < 20; id++ {
		a, err := d.Beat(owner, id)
		require.NoError(t, err)
		b, err := d.Beat(owner, id)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.False(t, a.Address.IsOnCurve(), "beat %d address must be off curve", id)
	}
}

func TestDeriver_BumpReproducesAddress(t *testing.T) {
	d := NewDeriver(MustParsePublicKey(testProgramID))
	owner := testOwner()

	pa, err := d.Beat(owner, 7)
	require.NoError(t, err)

	addr, err := CreateProgramAddress([][]byte{[]byte("beat"), owner[:], LE16(7), {pa.Bump}}, d.ProgramID)
	require.NoError(t, err)
	assert.Equal(t, pa.Address, addr)
}

func TestDeriver_TrackTakes(t *testing.T) {
	d := NewDeriver(MustParsePublicKey(testProgramID))
	owner := testOwner()
	artist, err := NewRandomPublicKey()
	require.NoError(t, err)

	beat, err := d.Beat(owner, 0)
	require.NoError(t, err)

	take0, err := d.Track(beat.Address, artist, 0)
	require.NoError(t, err)
	take1, err := d.Track(beat.Address, artist, 1)
	require.NoError(t, err)
	again0, err := d.Track(beat.Address, artist, 0)
	require.NoError(t, err)

	assert.NotEqual(t, take0.Address, take1.Address)
	assert.Equal(t, take0, again0)
}

func TestDeriver_NamespaceMatters(t *testing.T) {
	owner := testOwner()
	other, err := NewRandomPublicKey()
	require.NoError(t, err)

	a, err := NewDeriver(MustParsePublicKey(testProgramID)).User(owner)
	require.NoError(t, err)
	b, err := NewDeriver(other).User(owner)
	require.NoError(t, err)
	assert.NotEqual(t, a.Address, b.Address)
}

func TestCreateProgramAddress_SeedLimits(t *testing.T) {
	_, err := CreateProgramAddress([][]byte{bytes.Repeat([]byte{1}, MaxSeedLength+1)}, PublicKey{})
	assert.ErrorIs(t, err, ErrMaxSeedLength)

	seeds := make([][]byte, MaxSeeds+1)
	for i := range seeds {
		seeds[i] = []byte{byte(i)}
	}
	_, err = CreateProgramAddress(seeds, PublicKey{})
	assert.ErrorIs(t, err, ErrMaxSeedLength)

	_, _, err = FindProgramAddress(seeds[:MaxSeeds], PublicKey{})
	assert.ErrorIs(t, err, ErrMaxSeedLength, "bump seed counts toward the limit")
}

func TestLE16(t *testing.T) {
	assert.Equal(t, []byte{0x00, 0x00}, LE16(0))
	assert.Equal(t, []byte{0x01, 0x00}, LE16(1))
	assert.Equal(t, []byte{0x34, 0x12}, LE16(0x1234))
	assert.Equal(t, []byte{0xff, 0xff}, LE16(65535))
}

func TestPublicKey_Text(t *testing.T) {
	pk := MustParsePublicKey(testProgramID)
	assert.Equal(t, testProgramID, pk.String())

	text, err := pk.MarshalText()
	require.NoError(t, err)
	var back PublicKey
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, pk, back)

	_, err = ParsePublicKey("not-base58-0OIl")
	assert.Error(t, err)
	_, err = ParsePublicKey("1111")
	assert.Error(t, err)
}

func TestPublicKey_IsOnCurve(t *testing.T) {
	pk, err := NewRandomPublicKey()
	require.NoError(t, err)
	assert.True(t, pk.IsOnCurve(), "a real ed25519 public key decodes to a curve point")
	assert.True(t, PublicKey{}.IsZero())
}
