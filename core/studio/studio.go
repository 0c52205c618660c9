package studio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"dimi/core/address"
	"dimi/core/codec"
	"dimi/core/content"
	"dimi/logger"
	"dimi/model"
	"dimi/repository"
)

var (
	// ErrNotRegistered 钱包还没有注册 User 账户
	ErrNotRegistered = errors.New("user not registered")
	// ErrRoleRequired 缺少操作需要的角色
	ErrRoleRequired = errors.New("role required")
	// ErrBeatNotFound Beat 账户不存在
	ErrBeatNotFound = errors.New("beat not found")
	// ErrBeatNotShared 别人的 beat 没有公开
	ErrBeatNotShared = errors.New("beat is not shared")
	// ErrBeatArchived beat 已归档，不再接受新的 take
	ErrBeatArchived = errors.New("beat is archived")
)

// DefaultFanOut 并发查询 Track 的上限
const DefaultFanOut = 8

// Service 录音室：准备 beat/track 创建指令并汇总链上数据
type Service struct {
	beats   repository.BeatRepository
	tracks  repository.TrackRepository
	users   repository.UserRepository
	deriver *address.Deriver
	fanOut  int
}

// NewService 创建服务
func NewService(beats repository.BeatRepository, tracks repository.TrackRepository, users repository.UserRepository, deriver *address.Deriver) *Service {
	return &Service{
		beats:   beats,
		tracks:  tracks,
		users:   users,
		deriver: deriver,
		fanOut:  DefaultFanOut,
	}
}

// SetFanOut 设置并发上限，n<=0 不限制
func (s *Service) SetFanOut(n int) {
	s.fanOut = n
}

// BeatDraft 创建 beat 时用户填写的元数据
type BeatDraft struct {
	Title      string
	BPM        uint16
	MusicalKey string
	Tags       []string
}

// BeatPlan 准备好的 beat_create 指令
type BeatPlan struct {
	Address     address.PublicKey `json:"address"`
	Bump        uint8             `json:"bump"`
	BeatID      uint16            `json:"beatId"`
	Instruction []byte            `json:"instruction"`
}

// TrackPlan 准备好的 track_create 指令
type TrackPlan struct {
	Address     address.PublicKey `json:"address"`
	Bump        uint8             `json:"bump"`
	Take        uint16            `json:"take"`
	Instruction []byte            `json:"instruction"`
}

// BeatWithTracks 一个 beat 及其全部 take
type BeatWithTracks struct {
	*model.BeatAccount
	Tracks []*model.TrackAccount `json:"tracks"`
}

func roleName(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return "admin"
	case model.RoleProducer:
		return "producer"
	case model.RoleArtist:
		return "artist"
	}
	return fmt.Sprintf("role %d", role)
}

// requireRole 读取用户账户并检查角色，与链上程序的约束一致
func (s *Service) requireRole(ctx context.Context, authority address.PublicKey, role model.Role) (*model.User, error) {
	u, err := s.users.GetUserByAuthority(ctx, authority)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, authority)
	}
	if !u.Roles.Has(role) {
		return nil, fmt.Errorf("%w: %s needs %s, has roles %d", ErrRoleRequired, authority, roleName(role), u.Roles)
	}
	return u, nil
}

// checkContentType 空类型按上传流程的默认值处理
func checkContentType(contentType string) error {
	if contentType == "" {
		contentType = content.DefaultContentType
	}
	_, err := codec.ContentType(contentType)
	return err
}

// contentFields 把上传回执转换成账户中的定长字段
func contentFields(r *content.Receipt) (model.ContentHash, model.ContentType, uint32, error) {
	var hash model.ContentHash
	var ct model.ContentType

	if r.Bytes < 0 || r.Bytes > math.MaxUint32 {
		return hash, ct, 0, fmt.Errorf("%w: byte_len %d", codec.ErrLayoutOverflow, r.Bytes)
	}
	if err := hash.UnmarshalText([]byte(r.SHA256)); err != nil {
		return hash, ct, 0, fmt.Errorf("receipt sha256: %w", err)
	}
	ct, err := codec.ContentType(r.ContentType)
	if err != nil {
		return hash, ct, 0, err
	}
	return hash, ct, uint32(r.Bytes), nil
}

// PendingBeat 通过预检、等待上传回执的 beat_create
type PendingBeat struct {
	Address address.PublicKey
	Bump    uint8
	BeatID  uint16
	args    codec.BeatCreateArgs
}

// CheckBeatCreate 上传前的校验：owner 必须是制作人，元数据和内容类型都要放得进账户。
// 通过后地址已经按 next_beat_id 派生好。
func (s *Service) CheckBeatCreate(ctx context.Context, owner address.PublicKey, draft BeatDraft, contentType string) (*PendingBeat, error) {
	u, err := s.requireRole(ctx, owner, model.RoleProducer)
	if err != nil {
		return nil, err
	}

	key, err := codec.MusicalKey(draft.MusicalKey)
	if err != nil {
		return nil, err
	}
	tags, err := codec.Tags(draft.Tags...)
	if err != nil {
		return nil, err
	}
	args := codec.BeatCreateArgs{
		Title:      draft.Title,
		BPM:        draft.BPM,
		MusicalKey: key,
		Tags:       tags,
	}
	if err := codec.ValidateBeatCreate(&args); err != nil {
		return nil, err
	}
	if err := checkContentType(contentType); err != nil {
		return nil, err
	}

	pda, err := s.deriver.Beat(owner, u.NextBeatID)
	if err != nil {
		return nil, err
	}
	return &PendingBeat{Address: pda.Address, Bump: pda.Bump, BeatID: u.NextBeatID, args: args}, nil
}

// Finish 填入上传回执并编码 beat_create
func (p *PendingBeat) Finish(receipt *content.Receipt) (*BeatPlan, error) {
	hash, ct, byteLen, err := contentFields(receipt)
	if err != nil {
		return nil, err
	}
	args := p.args
	args.URI = receipt.URI
	args.ContentHash = hash
	args.ContentType = ct
	args.ByteLen = byteLen

	ix, err := codec.EncodeBeatCreate(&args)
	if err != nil {
		return nil, err
	}
	return &BeatPlan{Address: p.Address, Bump: p.Bump, BeatID: p.BeatID, Instruction: ix}, nil
}

// PrepareBeatCreate 使用 owner 的 next_beat_id 派生新 beat 地址并编码指令
func (s *Service) PrepareBeatCreate(ctx context.Context, owner address.PublicKey, draft BeatDraft, receipt *content.Receipt) (*BeatPlan, error) {
	pending, err := s.CheckBeatCreate(ctx, owner, draft, receipt.ContentType)
	if err != nil {
		return nil, err
	}
	return pending.Finish(receipt)
}

// NextTake 该艺人在该 beat 上的下一个 take 编号：已有最大值加一，没有则为 0
func (s *Service) NextTake(ctx context.Context, beat, artist address.PublicKey) (uint16, error) {
	tracks, err := s.tracks.ListTracksByBeatAndArtist(ctx, beat, artist)
	if err != nil {
		return 0, err
	}
	return nextTake(tracks)
}

func nextTake(tracks []*model.TrackAccount) (uint16, error) {
	if len(tracks) == 0 {
		return 0, nil
	}
	highest := tracks[0].Take
	for _, t := range tracks[1:] {
		if t.Take > highest {
			highest = t.Take
		}
	}
	if highest == math.MaxUint16 {
		return 0, fmt.Errorf("%w: take numbers exhausted", codec.ErrLayoutOverflow)
	}
	return highest + 1, nil
}

// PendingTrack 通过预检、等待上传回执的 track_create
type PendingTrack struct {
	Address address.PublicKey
	Bump    uint8
	Take    uint16
}

// CheckTrackCreate 上传前的校验：artist 必须是歌手，beat 未归档，
// 并且已公开或者属于 artist 本人。
func (s *Service) CheckTrackCreate(ctx context.Context, beat, artist address.PublicKey, contentType string) (*PendingTrack, error) {
	if _, err := s.requireRole(ctx, artist, model.RoleArtist); err != nil {
		return nil, err
	}
	b, err := s.beats.GetBeat(ctx, beat)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrBeatNotFound, beat)
	}
	if b.Archived {
		return nil, fmt.Errorf("%w: %s", ErrBeatArchived, beat)
	}
	if !b.Shared && b.Owner != artist {
		return nil, fmt.Errorf("%w: %s", ErrBeatNotShared, beat)
	}
	if err := checkContentType(contentType); err != nil {
		return nil, err
	}

	take, err := s.NextTake(ctx, beat, artist)
	if err != nil {
		return nil, err
	}
	pda, err := s.deriver.Track(beat, artist, take)
	if err != nil {
		return nil, err
	}
	return &PendingTrack{Address: pda.Address, Bump: pda.Bump, Take: take}, nil
}

// Finish 填入上传回执并编码 track_create
func (p *PendingTrack) Finish(receipt *content.Receipt) (*TrackPlan, error) {
	hash, ct, byteLen, err := contentFields(receipt)
	if err != nil {
		return nil, err
	}
	ix, err := codec.EncodeTrackCreate(&codec.TrackCreateArgs{
		Take:        p.Take,
		URI:         receipt.URI,
		ContentHash: hash,
		ContentType: ct,
		ByteLen:     byteLen,
	})
	if err != nil {
		return nil, err
	}
	return &TrackPlan{Address: p.Address, Bump: p.Bump, Take: p.Take, Instruction: ix}, nil
}

// PrepareTrackCreate 为 artist 在 beat 上准备下一条 take
func (s *Service) PrepareTrackCreate(ctx context.Context, beat, artist address.PublicKey, receipt *content.Receipt) (*TrackPlan, error) {
	pending, err := s.CheckTrackCreate(ctx, beat, artist, receipt.ContentType)
	if err != nil {
		return nil, err
	}
	return pending.Finish(receipt)
}

// MyBeats owner 的全部 beat，按 updatedAt 倒序，每个 beat 的 track 并发获取
func (s *Service) MyBeats(ctx context.Context, owner address.PublicKey) ([]*BeatWithTracks, error) {
	beats, err := s.beats.ListBeatsByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	sortByUpdated(beats)

	out := make([]*BeatWithTracks, len(beats))
	g, gctx := errgroup.WithContext(ctx)
	if s.fanOut > 0 {
		g.SetLimit(s.fanOut)
	}
	for i, b := range beats {
		out[i] = &BeatWithTracks{BeatAccount: b}
		g.Go(func() error {
			tracks, err := s.tracks.ListTracksByBeat(gctx, b.Address)
			if err != nil {
				return fmt.Errorf("tracks for beat %s: %w", b.Address, err)
			}
			sort.Slice(tracks, func(x, y int) bool { return tracks[x].Take < tracks[y].Take })
			out[i].Tracks = tracks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn("获取 track 失败", logger.Stringer("owner", owner), logger.ErrorField(err))
		return nil, err
	}
	return out, nil
}

// SharedFeed 所有已公开且未归档的 beat，按 updatedAt 倒序。
// shared 由查询条件过滤，archived 不在索引条件里，取回后剔除。
func (s *Service) SharedFeed(ctx context.Context) ([]*model.BeatAccount, error) {
	all, err := s.beats.ListSharedBeats(ctx)
	if err != nil {
		return nil, err
	}
	feed := make([]*model.BeatAccount, 0, len(all))
	for _, b := range all {
		if b.Shared && !b.Archived {
			feed = append(feed, b)
		}
	}
	sortByUpdated(feed)
	return feed, nil
}

func sortByUpdated(beats []*model.BeatAccount) {
	sort.SliceStable(beats, func(i, j int) bool {
		if beats[i].UpdatedAt != beats[j].UpdatedAt {
			return beats[i].UpdatedAt > beats[j].UpdatedAt
		}
		return beats[i].BeatID > beats[j].BeatID
	})
}
