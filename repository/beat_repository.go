package repository

import (
	"context"
	"fmt"

	"dimi/core/address"
	"dimi/core/codec"
	"dimi/core/query"
	"dimi/model"
)

// BeatRepository defines the read operations for beats stored on the ledger.
type BeatRepository interface {
	GetBeat(ctx context.Context, addr address.PublicKey) (*model.BeatAccount, error)
	GetBeatByID(ctx context.Context, owner address.PublicKey, beatID uint16) (*model.BeatAccount, error)
	ListBeatsByOwner(ctx context.Context, owner address.PublicKey) ([]*model.BeatAccount, error)
	ListSharedBeats(ctx context.Context) ([]*model.BeatAccount, error)
	ListAllBeats(ctx context.Context) ([]*model.BeatAccount, error)
}

type ledgerBeatRepository struct {
	reader  AccountReader
	deriver *address.Deriver
}

// NewLedgerBeatRepository creates a BeatRepository backed by program account queries.
func NewLedgerBeatRepository(reader AccountReader, deriver *address.Deriver) BeatRepository {
	return &ledgerBeatRepository{reader: reader, deriver: deriver}
}

// GetBeat returns nil, nil when the account does not exist.
func (r *ledgerBeatRepository) GetBeat(ctx context.Context, addr address.PublicKey) (*model.BeatAccount, error) {
	acc, err := r.reader.AccountInfo(ctx, addr)
	if err != nil || acc == nil {
		return nil, err
	}
	b, err := codec.DecodeBeat(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode beat %s: %w", addr, err)
	}
	return &model.BeatAccount{Address: addr, Beat: *b}, nil
}

// GetBeatByID derives the beat address from (owner, beatID) and loads it.
func (r *ledgerBeatRepository) GetBeatByID(ctx context.Context, owner address.PublicKey, beatID uint16) (*model.BeatAccount, error) {
	pda, err := r.deriver.Beat(owner, beatID)
	if err != nil {
		return nil, err
	}
	return r.GetBeat(ctx, pda.Address)
}

func (r *ledgerBeatRepository) ListBeatsByOwner(ctx context.Context, owner address.PublicKey) ([]*model.BeatAccount, error) {
	return r.list(ctx, query.BeatsOwnedBy(owner))
}

func (r *ledgerBeatRepository) ListSharedBeats(ctx context.Context) ([]*model.BeatAccount, error) {
	return r.list(ctx, query.SharedBeats())
}

// ListAllBeats fetches every program account and keeps the beats.
func (r *ledgerBeatRepository) ListAllBeats(ctx context.Context) ([]*model.BeatAccount, error) {
	return r.list(ctx, nil)
}

func (r *ledgerBeatRepository) list(ctx context.Context, filter query.Filter) ([]*model.BeatAccount, error) {
	accounts, err := r.reader.ProgramAccounts(ctx, filter)
	if err != nil {
		return nil, err
	}
	beats, addrs, err := decodeAll(accounts, codec.DecodeBeat)
	if err != nil {
		return nil, err
	}
	out := make([]*model.BeatAccount, len(beats))
	for i, b := range beats {
		out[i] = &model.BeatAccount{Address: addrs[i], Beat: *b}
	}
	return out, nil
}
