package repository

import (
	"context"
	"errors"
	"fmt"

	"dimi/core/address"
	"dimi/core/codec"
	"dimi/core/ledger"
	"dimi/core/query"
	"dimi/logger"
	"dimi/model"
)

// AccountReader 账本读接口，由 ledger.Client 实现
type AccountReader interface {
	ProgramAccounts(ctx context.Context, filter query.Filter) ([]ledger.Account, error)
	AccountInfo(ctx context.Context, addr address.PublicKey) (*ledger.Account, error)
}

// ConfigRepository 读取全局配置账户
type ConfigRepository interface {
	GetConfig(ctx context.Context) (*model.Config, error)
}

type ledgerConfigRepository struct {
	reader  AccountReader
	deriver *address.Deriver
}

// NewLedgerConfigRepository 创建基于账本的 ConfigRepository
func NewLedgerConfigRepository(reader AccountReader, deriver *address.Deriver) ConfigRepository {
	return &ledgerConfigRepository{reader: reader, deriver: deriver}
}

// GetConfig 未初始化时返回 nil, nil
func (r *ledgerConfigRepository) GetConfig(ctx context.Context) (*model.Config, error) {
	pda, err := r.deriver.Config()
	if err != nil {
		return nil, err
	}
	acc, err := r.reader.AccountInfo(ctx, pda.Address)
	if err != nil || acc == nil {
		return nil, err
	}
	cfg, err := codec.DecodeConfig(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", pda.Address, err)
	}
	return cfg, nil
}

// decodeAll 解码一批账户。判别符不符的账户直接跳过，布局越界视为错误。
func decodeAll[T any](accounts []ledger.Account, decode func([]byte) (*T, error)) ([]*T, []address.PublicKey, error) {
	out := make([]*T, 0, len(accounts))
	addrs := make([]address.PublicKey, 0, len(accounts))
	for _, acc := range accounts {
		v, err := decode(acc.Data)
		if errors.Is(err, codec.ErrDiscriminatorMismatch) {
			logger.Debug("跳过其他类型的账户", logger.Stringer("address", acc.Address))
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("account %s: %w", acc.Address, err)
		}
		out = append(out, v)
		addrs = append(addrs, acc.Address)
	}
	return out, addrs, nil
}
