package model

import "dimi/core/address"

// Role 用户角色位掩码
type Role uint8

const (
	RoleAdmin    Role = 1
	RoleProducer Role = 2
	RoleArtist   Role = 4
)

// Has 是否包含指定角色
func (r Role) Has(role Role) bool {
	return r&role != 0
}

// User 账本上的用户账户，地址由 ["user", authority] 派生
type User struct {
	Authority   address.PublicKey `json:"authority"`
	Roles       Role              `json:"roles"`
	CreatedAt   int64             `json:"createdAt"`
	NextBeatID  uint16            `json:"nextBeatId"` // 下一个 beat 的编号，只增不减
	DisplayName string            `json:"displayName"`
}

// Config 全局唯一的配置账户
type Config struct {
	Admin address.PublicKey `json:"admin"`
	Bump  uint8             `json:"bump"`
}
