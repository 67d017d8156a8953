package memory

import (
	"context"
	"sync"

	"github.com/Tyrowin/tapwars/internal/model"
	"github.com/Tyrowin/tapwars/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players map[string]*model.Player
	shop    map[string]model.ShopItem
	chats   []model.ChatMessage
	bans    map[string]model.Ban
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players: make(map[string]*model.Player),
		shop:    make(map[string]model.ShopItem),
		bans:    make(map[string]model.Ban),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, nickname string) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[nickname]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player.Clone(), nil
}

func (s *Storage) EnsurePlayer(ctx context.Context, nickname string) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(nickname).Clone(), nil
}

func (s *Storage) ensureLocked(nickname string) *model.Player {
	player, ok := s.players[nickname]
	if !ok {
		player = model.NewPlayer(nickname)
		s.players[nickname] = player
	}
	return player
}

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[player.Nickname]; !ok {
		return model.ErrPlayerNotFound
	}
	s.players[player.Nickname] = player.Clone()
	return nil
}

func (s *Storage) ApplyTap(ctx context.Context, nickname string) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[nickname]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	player.Coins += player.TapValue
	player.Taps++
	return player.Clone(), nil
}

func (s *Storage) SetPlayerIcon(ctx context.Context, nickname, icon string) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player := s.ensureLocked(nickname)
	player.Icon = &icon
	return player.Clone(), nil
}

func (s *Storage) CreditAutoIncome(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	credited := 0
	for _, player := range s.players {
		if player.AutoPerSec > 0 {
			player.Coins += player.AutoPerSec
			credited++
		}
	}
	return credited, nil
}

func (s *Storage) TopPlayersByTaps(ctx context.Context, limit int) ([]model.Player, error) {
	players := s.snapshotPlayers()
	model.SortByTaps(players)
	if limit >= 0 && len(players) > limit {
		players = players[:limit]
	}
	return players, nil
}

func (s *Storage) ListPlayers(ctx context.Context) ([]model.Player, error) {
	players := s.snapshotPlayers()
	model.SortByNickname(players)
	return players, nil
}

func (s *Storage) snapshotPlayers() []model.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]model.Player, 0, len(s.players))
	for _, player := range s.players {
		players = append(players, *player.Clone())
	}
	return players
}

// Shop operations

func (s *Storage) SeedShop(ctx context.Context, items []model.ShopItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if _, ok := s.shop[item.ID]; !ok {
			s.shop[item.ID] = item
		}
	}
	return nil
}

func (s *Storage) GetShopItem(ctx context.Context, id string) (*model.ShopItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.shop[id]
	if !ok {
		return nil, model.ErrItemNotFound
	}
	return &item, nil
}

func (s *Storage) ListShopItems(ctx context.Context) ([]model.ShopItem, error) {
	s.mu.RLock()
	items := make([]model.ShopItem, 0, len(s.shop))
	for _, item := range s.shop {
		items = append(items, item)
	}
	s.mu.RUnlock()
	model.SortShopItems(items)
	return items, nil
}

// Chat operations

func (s *Storage) AppendChat(ctx context.Context, msg model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, msg)
	return nil
}

func (s *Storage) RecentChats(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit >= 0 && len(s.chats) > limit {
		start = len(s.chats) - limit
	}
	out := make([]model.ChatMessage, len(s.chats)-start)
	copy(out, s.chats[start:])
	return out, nil
}

// Ban operations

func (s *Storage) IsBanned(ctx context.Context, nickname string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bans[nickname]
	return ok, nil
}

func (s *Storage) UpsertBan(ctx context.Context, ban model.Ban) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[ban.Nickname] = ban
	return nil
}

func (s *Storage) DeleteBan(ctx context.Context, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bans, nickname)
	return nil
}

// Close is a no-op for the in-memory store
func (s *Storage) Close() error {
	return nil
}
