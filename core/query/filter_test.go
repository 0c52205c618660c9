package query

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dimi/core/address"
	"dimi/core/codec"
	"dimi/model"
)

func pk(b byte) address.PublicKey {
	var k address.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func TestSharedBeats_OffsetIndependentOfTitle(t *testing.T) {
	for _, title := range []string{"abc", strings.Repeat("x", 50)} {
		beat := &model.Beat{Owner: pk(1), Title: title, Shared: true}
		data := codec.EncodeBeat(beat)

		f := SharedBeats()
		assert.True(t, f.Matches(data), "title length %d", len(title))
		assert.Equal(t, byte(1), data[f[1].Offset])

		beat.Shared = false
		assert.False(t, f.Matches(codec.EncodeBeat(beat)), "title length %d", len(title))
	}
}

func TestBeatsOwnedBy(t *testing.T) {
	owner := pk(3)
	mine := codec.EncodeBeat(&model.Beat{Owner: owner, Title: "mine"})
	theirs := codec.EncodeBeat(&model.Beat{Owner: pk(4), Title: "theirs"})
	track := codec.EncodeTrack(&model.Track{Beat: owner})

	f := BeatsOwnedBy(owner)
	require.NoError(t, f.Validate())
	assert.True(t, f.Matches(mine))
	assert.False(t, f.Matches(theirs))
	assert.False(t, f.Matches(track), "same bytes at offset 8 but a different kind")
}

func TestTracksForBeatByArtist(t *testing.T) {
	beat, artist := pk(5), pk(6)
	hit := codec.EncodeTrack(&model.Track{Beat: beat, Artist: artist, Take: 1})
	otherArtist := codec.EncodeTrack(&model.Track{Beat: beat, Artist: pk(7)})

	assert.True(t, TracksForBeat(beat).Matches(hit))
	assert.True(t, TracksForBeat(beat).Matches(otherArtist))
	assert.True(t, TracksForBeatByArtist(beat, artist).Matches(hit))
	assert.False(t, TracksForBeatByArtist(beat, artist).Matches(otherArtist))
	assert.Len(t, TracksForBeatByArtist(beat, artist), 3)
}

func TestUsersWithAuthority(t *testing.T) {
	u := codec.EncodeUser(&model.User{Authority: pk(8), DisplayName: "mc"})
	assert.True(t, UsersWithAuthority(pk(8)).Matches(u))
	assert.False(t, UsersWithAuthority(pk(9)).Matches(u))
}

func TestPredicate_JSON(t *testing.T) {
	owner := pk(2)
	f := BeatsOwnedBy(owner)

	raw, err := json.Marshal(f)
	require.NoError(t, err)

	var generic []map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	require.Len(t, generic, 2)
	assert.EqualValues(t, 0, generic[0]["memcmp"]["offset"])
	assert.Equal(t, base58.Encode(codec.BeatLayout.Discriminator[:]), generic[0]["memcmp"]["bytes"])
	assert.EqualValues(t, 8, generic[1]["memcmp"]["offset"])
	assert.Equal(t, owner.String(), generic[1]["memcmp"]["bytes"])

	var back Filter
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, f, back)
}

func TestFilter_Edges(t *testing.T) {
	assert.ErrorIs(t, Filter{}.Validate(), ErrEmptyFilter)
	assert.True(t, Filter{}.Matches([]byte{1}))
	assert.False(t, Predicate{Offset: 4, Bytes: []byte{1, 2}}.Match([]byte{0, 0, 0, 0, 1}))
	assert.False(t, Predicate{Offset: -1, Bytes: []byte{1}}.Match([]byte{1}))
}
