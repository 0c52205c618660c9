package model

import "dimi/core/address"

// Beat 制作人发布的伴奏，地址由 (owner, beatId) 决定
type Beat struct {
	Owner       address.PublicKey `json:"owner"`
	BeatID      uint16            `json:"beatId"`
	BPM         uint16            `json:"bpm"`
	Shared      bool              `json:"shared"`
	Archived    bool              `json:"archived"`
	ByteLen     uint32            `json:"byteLen"`
	CreatedAt   int64             `json:"createdAt"`
	UpdatedAt   int64             `json:"updatedAt"`
	MusicalKey  MusicalKey        `json:"musicalKey"`
	ContentHash ContentHash       `json:"contentHash"`
	ContentType ContentType       `json:"contentType"`
	Title       string            `json:"title"`
	URI         string            `json:"uri"`
	Tags        []Tag             `json:"tags"`
}

// BeatAccount 带地址的 Beat
type BeatAccount struct {
	Address address.PublicKey `json:"address"`
	Beat
}
