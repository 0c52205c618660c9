package model

import "dimi/core/address"

// Track 歌手在某个 beat 上录制的一条 take，地址由 (beat, artist, take) 决定
type Track struct {
	Beat        address.PublicKey `json:"beat"`
	Artist      address.PublicKey `json:"artist"`
	Take        uint16            `json:"take"`
	URI         string            `json:"uri"`
	ContentHash ContentHash       `json:"contentHash"`
	ContentType ContentType       `json:"contentType"`
	ByteLen     uint32            `json:"byteLen"`
	CreatedAt   int64             `json:"createdAt"`
}

// TrackAccount 带地址的 Track
type TrackAccount struct {
	Address address.PublicKey `json:"address"`
	Track
}
