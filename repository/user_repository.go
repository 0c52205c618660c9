package repository

import (
	"context"
	"fmt"

	"dimi/core/address"
	"dimi/core/codec"
	"dimi/model"
)

// UserRepository 读取链上用户
type UserRepository interface {
	GetUserByAuthority(ctx context.Context, authority address.PublicKey) (*model.User, error)
}

type ledgerUserRepository struct {
	reader  AccountReader
	deriver *address.Deriver
}

// NewLedgerUserRepository 创建基于账本的 UserRepository
func NewLedgerUserRepository(reader AccountReader, deriver *address.Deriver) UserRepository {
	return &ledgerUserRepository{reader: reader, deriver: deriver}
}

// GetUserByAuthority 未注册时返回 nil, nil
func (r *ledgerUserRepository) GetUserByAuthority(ctx context.Context, authority address.PublicKey) (*model.User, error) {
	pda, err := r.deriver.User(authority)
	if err != nil {
		return nil, err
	}
	acc, err := r.reader.AccountInfo(ctx, pda.Address)
	if err != nil || acc == nil {
		return nil, err
	}
	u, err := codec.DecodeUser(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", pda.Address, err)
	}
	return u, nil
}
