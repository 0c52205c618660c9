package repository

import (
	"context"
	"fmt"

	"dimi/core/address"
	"dimi/core/codec"
	"dimi/core/query"
	"dimi/model"
)

// TrackRepository defines the read operations for recorded takes.
type TrackRepository interface {
	GetTrack(ctx context.Context, addr address.PublicKey) (*model.TrackAccount, error)
	ListTracksByBeat(ctx context.Context, beat address.PublicKey) ([]*model.TrackAccount, error)
	ListTracksByBeatAndArtist(ctx context.Context, beat, artist address.PublicKey) ([]*model.TrackAccount, error)
}

type ledgerTrackRepository struct {
	reader AccountReader
}

// NewLedgerTrackRepository creates a TrackRepository backed by program account queries.
func NewLedgerTrackRepository(reader AccountReader) TrackRepository {
	return &ledgerTrackRepository{reader: reader}
}

// GetTrack returns nil, nil when the account does not exist.
func (r *ledgerTrackRepository) GetTrack(ctx context.Context, addr address.PublicKey) (*model.TrackAccount, error) {
	acc, err := r.reader.AccountInfo(ctx, addr)
	if err != nil || acc == nil {
		return nil, err
	}
	t, err := codec.DecodeTrack(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode track %s: %w", addr, err)
	}
	return &model.TrackAccount{Address: addr, Track: *t}, nil
}

func (r *ledgerTrackRepository) ListTracksByBeat(ctx context.Context, beat address.PublicKey) ([]*model.TrackAccount, error) {
	return r.list(ctx, query.TracksForBeat(beat))
}

func (r *ledgerTrackRepository) ListTracksByBeatAndArtist(ctx context.Context, beat, artist address.PublicKey) ([]*model.TrackAccount, error) {
	return r.list(ctx, query.TracksForBeatByArtist(beat, artist))
}

func (r *ledgerTrackRepository) list(ctx context.Context, filter query.Filter) ([]*model.TrackAccount, error) {
	accounts, err := r.reader.ProgramAccounts(ctx, filter)
	if err != nil {
		return nil, err
	}
	tracks, addrs, err := decodeAll(accounts, codec.DecodeTrack)
	if err != nil {
		return nil, err
	}
	out := make([]*model.TrackAccount, len(tracks))
	for i, t := range tracks {
		out[i] = &model.TrackAccount{Address: addrs[i], Track: *t}
	}
	return out, nil
}
