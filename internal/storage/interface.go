package storage

import (
	"context"

	"github.com/Tyrowin/tapwars/internal/model"
)

// Storage defines the persistence operations used by the game hub.
// Implementations must be safe for concurrent use, but the hub only ever
// calls them from its own goroutine.
type Storage interface {
	// Player operations
	GetPlayer(ctx context.Context, nickname string) (*model.Player, error)
	// EnsurePlayer returns the stored player, creating a fresh one if absent.
	EnsurePlayer(ctx context.Context, nickname string) (*model.Player, error)
	// SavePlayer writes coins, tapValue, autoPerSec, taps and icon in one step.
	SavePlayer(ctx context.Context, player *model.Player) error
	// ApplyTap adds tapValue to coins and one to taps, returning the new state.
	ApplyTap(ctx context.Context, nickname string) (*model.Player, error)
	// SetPlayerIcon sets the icon reference, creating the player if absent.
	SetPlayerIcon(ctx context.Context, nickname, icon string) (*model.Player, error)
	// CreditAutoIncome adds autoPerSec to coins for every player with a
	// positive rate and returns how many players were credited.
	CreditAutoIncome(ctx context.Context) (int, error)
	// TopPlayersByTaps returns up to limit players by descending tap count.
	TopPlayersByTaps(ctx context.Context, limit int) ([]model.Player, error)
	// ListPlayers returns every player ordered by nickname.
	ListPlayers(ctx context.Context) ([]model.Player, error)

	// Shop operations
	SeedShop(ctx context.Context, items []model.ShopItem) error
	GetShopItem(ctx context.Context, id string) (*model.ShopItem, error)
	ListShopItems(ctx context.Context) ([]model.ShopItem, error)

	// Chat operations
	AppendChat(ctx context.Context, msg model.ChatMessage) error
	// RecentChats returns up to limit most recent messages, oldest first.
	RecentChats(ctx context.Context, limit int) ([]model.ChatMessage, error)

	// Ban operations
	IsBanned(ctx context.Context, nickname string) (bool, error)
	UpsertBan(ctx context.Context, ban model.Ban) error
	DeleteBan(ctx context.Context, nickname string) error

	Close() error
}
