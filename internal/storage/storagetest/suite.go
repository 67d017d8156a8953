// Package storagetest holds the behavioural test suite shared by every
// storage backend.
package storagetest

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Tyrowin/tapwars/internal/model"
	"github.com/Tyrowin/tapwars/internal/storage"
)

// Suite runs the same assertions against any storage.Storage. Backends embed
// it and set NewStorage to build a fresh, empty store per test.
type Suite struct {
	suite.Suite
	NewStorage func() storage.Storage

	Store storage.Storage
	Ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.Store = s.NewStorage()
	s.Ctx = context.Background()
}

func (s *Suite) TearDownTest() {
	if s.Store != nil {
		_ = s.Store.Close()
	}
}

// Player tests

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Store.GetPlayer(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestEnsurePlayerCreatesDefaults() {
	player, err := s.Store.EnsurePlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal("alice", player.Nickname)
	s.Equal(int64(0), player.Coins)
	s.Equal(int64(1), player.TapValue)
	s.Equal(int64(0), player.AutoPerSec)
	s.Equal(int64(0), player.Taps)
	s.Nil(player.Icon)
}

func (s *Suite) TestEnsurePlayerKeepsExisting() {
	player, err := s.Store.EnsurePlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	player.Coins = 42
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, player))

	again, err := s.Store.EnsurePlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(42), again.Coins)
}

func (s *Suite) TestNicknamesAreCaseSensitive() {
	_, err := s.Store.EnsurePlayer(s.Ctx, "Alice")
	s.Require().NoError(err)

	_, err = s.Store.GetPlayer(s.Ctx, "alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestSavePlayerWritesAllFields() {
	_, err := s.Store.EnsurePlayer(s.Ctx, "alice")
	s.Require().NoError(err)

	icon := "/icons/alice.png"
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, &model.Player{
		Nickname:   "alice",
		Coins:      7,
		TapValue:   3,
		AutoPerSec: 2,
		Taps:       9,
		Icon:       &icon,
	}))

	got, err := s.Store.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(7), got.Coins)
	s.Equal(int64(3), got.TapValue)
	s.Equal(int64(2), got.AutoPerSec)
	s.Equal(int64(9), got.Taps)
	s.Equal(icon, got.IconOrEmpty())
}

func (s *Suite) TestSavePlayerMissing() {
	err := s.Store.SavePlayer(s.Ctx, model.NewPlayer("ghost"))
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestApplyTap() {
	player, err := s.Store.EnsurePlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	player.TapValue = 4
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, player))

	for i := 0; i < 3; i++ {
		_, err = s.Store.ApplyTap(s.Ctx, "alice")
		s.Require().NoError(err)
	}

	got, err := s.Store.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(12), got.Coins)
	s.Equal(int64(3), got.Taps)
	s.Equal(int64(4), got.TapValue)
}

func (s *Suite) TestApplyTapReturnsNewState() {
	_, err := s.Store.EnsurePlayer(s.Ctx, "alice")
	s.Require().NoError(err)

	got, err := s.Store.ApplyTap(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(1), got.Coins)
	s.Equal(int64(1), got.Taps)
	s.Equal(int64(1), got.TapValue)
}

func (s *Suite) TestApplyTapMissingPlayer() {
	_, err := s.Store.ApplyTap(s.Ctx, "ghost")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestSetPlayerIconCreatesPlayer() {
	got, err := s.Store.SetPlayerIcon(s.Ctx, "newbie", "/icons/n.png")
	s.Require().NoError(err)
	s.Equal("/icons/n.png", got.IconOrEmpty())
	s.Equal(int64(1), got.TapValue)

	stored, err := s.Store.GetPlayer(s.Ctx, "newbie")
	s.Require().NoError(err)
	s.Equal("/icons/n.png", stored.IconOrEmpty())
}

func (s *Suite) TestSetPlayerIconKeepsCounters() {
	player, err := s.Store.EnsurePlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	player.Coins = 99
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, player))

	got, err := s.Store.SetPlayerIcon(s.Ctx, "alice", "/icons/a.png")
	s.Require().NoError(err)
	s.Equal(int64(99), got.Coins)
}

func (s *Suite) TestCreditAutoIncome() {
	for name, rate := range map[string]int64{"alice": 2, "bob": 0, "carol": 5} {
		player, err := s.Store.EnsurePlayer(s.Ctx, name)
		s.Require().NoError(err)
		player.AutoPerSec = rate
		player.Coins = 10
		s.Require().NoError(s.Store.SavePlayer(s.Ctx, player))
	}

	credited, err := s.Store.CreditAutoIncome(s.Ctx)
	s.Require().NoError(err)
	s.Equal(2, credited)

	expected := map[string]int64{"alice": 12, "bob": 10, "carol": 15}
	for name, coins := range expected {
		got, err := s.Store.GetPlayer(s.Ctx, name)
		s.Require().NoError(err)
		s.Equal(coins, got.Coins, name)
	}
}

func (s *Suite) TestCreditAutoIncomeEmpty() {
	credited, err := s.Store.CreditAutoIncome(s.Ctx)
	s.Require().NoError(err)
	s.Equal(0, credited)
}

func (s *Suite) TestTopPlayersByTaps() {
	for name, taps := range map[string]int64{"alice": 3, "bob": 10, "carol": 7} {
		player, err := s.Store.EnsurePlayer(s.Ctx, name)
		s.Require().NoError(err)
		player.Taps = taps
		s.Require().NoError(s.Store.SavePlayer(s.Ctx, player))
	}

	top, err := s.Store.TopPlayersByTaps(s.Ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("bob", top[0].Nickname)
	s.Equal("carol", top[1].Nickname)
}

func (s *Suite) TestTopPlayersByTapsFollowsTaps() {
	_, err := s.Store.EnsurePlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	_, err = s.Store.EnsurePlayer(s.Ctx, "bob")
	s.Require().NoError(err)

	_, err = s.Store.ApplyTap(s.Ctx, "bob")
	s.Require().NoError(err)

	top, err := s.Store.TopPlayersByTaps(s.Ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("bob", top[0].Nickname)
}

func (s *Suite) TestTopPlayersByTapsBreaksTiesAtLimitByNickname() {
	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := s.Store.EnsurePlayer(s.Ctx, name)
		s.Require().NoError(err)
	}
	_, err := s.Store.EnsurePlayer(s.Ctx, "dave")
	s.Require().NoError(err)
	_, err = s.Store.ApplyTap(s.Ctx, "dave")
	s.Require().NoError(err)

	top, err := s.Store.TopPlayersByTaps(s.Ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(top, 3)
	s.Equal("dave", top[0].Nickname)
	s.Equal("alice", top[1].Nickname)
	s.Equal("bob", top[2].Nickname)

	top, err = s.Store.TopPlayersByTaps(s.Ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(top, 1)
	s.Equal("dave", top[0].Nickname)
}

func (s *Suite) TestListPlayersUsesByteOrder() {
	for _, name := range []string{"alice", "Bob", "_zed"} {
		_, err := s.Store.EnsurePlayer(s.Ctx, name)
		s.Require().NoError(err)
	}

	players, err := s.Store.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 3)
	s.Equal("Bob", players[0].Nickname)
	s.Equal("_zed", players[1].Nickname)
	s.Equal("alice", players[2].Nickname)
}

func (s *Suite) TestListPlayersOrderedByNickname() {
	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := s.Store.EnsurePlayer(s.Ctx, name)
		s.Require().NoError(err)
	}

	players, err := s.Store.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 3)
	s.Equal("alice", players[0].Nickname)
	s.Equal("bob", players[1].Nickname)
	s.Equal("carol", players[2].Nickname)
}

// Shop tests

func (s *Suite) TestSeedShopAndList() {
	s.Require().NoError(s.Store.SeedShop(s.Ctx, model.DefaultCatalog()))

	items, err := s.Store.ListShopItems(s.Ctx)
	s.Require().NoError(err)
	s.Len(items, len(model.DefaultCatalog()))
	for i := 1; i < len(items); i++ {
		s.LessOrEqual(items[i-1].Price, items[i].Price)
	}
}

func (s *Suite) TestSeedShopDoesNotOverwrite() {
	s.Require().NoError(s.Store.SeedShop(s.Ctx, []model.ShopItem{
		{ID: "cheapUp", Name: "Original", Price: 10, Kind: model.ItemKindTap, Value: 1},
	}))
	s.Require().NoError(s.Store.SeedShop(s.Ctx, []model.ShopItem{
		{ID: "cheapUp", Name: "Replacement", Price: 99, Kind: model.ItemKindAuto, Value: 9},
	}))

	item, err := s.Store.GetShopItem(s.Ctx, "cheapUp")
	s.Require().NoError(err)
	s.Equal("Original", item.Name)
	s.Equal(int64(10), item.Price)
	s.Equal(model.ItemKindTap, item.Kind)
}

func (s *Suite) TestGetShopItemNotFound() {
	_, err := s.Store.GetShopItem(s.Ctx, "nothing")
	s.ErrorIs(err, model.ErrItemNotFound)
}

// Chat tests

func (s *Suite) TestRecentChatsChronological() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.Store.AppendChat(s.Ctx, model.ChatMessage{
			Nickname: "alice",
			Text:     fmt.Sprintf("msg %d", i),
			SentAt:   base.Add(time.Duration(i) * time.Second),
		}))
	}

	chats, err := s.Store.RecentChats(s.Ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(chats, 3)
	s.Equal("msg 2", chats[0].Text)
	s.Equal("msg 3", chats[1].Text)
	s.Equal("msg 4", chats[2].Text)
	s.True(chats[2].SentAt.Equal(base.Add(4*time.Second)))
}

func (s *Suite) TestRecentChatsKeepsIconSnapshot() {
	icon := "/icons/a.png"
	s.Require().NoError(s.Store.AppendChat(s.Ctx, model.ChatMessage{
		Nickname: "alice",
		Icon:     &icon,
		Text:     "hello",
		SentAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}))
	s.Require().NoError(s.Store.AppendChat(s.Ctx, model.ChatMessage{
		Nickname: "bob",
		Text:     "hey",
		SentAt:   time.Date(2024, 1, 1, 12, 0, 1, 0, time.UTC),
	}))

	chats, err := s.Store.RecentChats(s.Ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(chats, 2)
	s.Require().NotNil(chats[0].Icon)
	s.Equal(icon, *chats[0].Icon)
	s.Nil(chats[1].Icon)
}

func (s *Suite) TestRecentChatsEmpty() {
	chats, err := s.Store.RecentChats(s.Ctx, 200)
	s.Require().NoError(err)
	s.Empty(chats)
}

// Ban tests

func (s *Suite) TestBanLifecycle() {
	banned, err := s.Store.IsBanned(s.Ctx, "bob")
	s.Require().NoError(err)
	s.False(banned)

	s.Require().NoError(s.Store.UpsertBan(s.Ctx, model.Ban{Nickname: "bob", Reason: "spam"}))
	s.Require().NoError(s.Store.UpsertBan(s.Ctx, model.Ban{Nickname: "bob", Reason: "more spam"}))

	banned, err = s.Store.IsBanned(s.Ctx, "bob")
	s.Require().NoError(err)
	s.True(banned)

	s.Require().NoError(s.Store.DeleteBan(s.Ctx, "bob"))
	banned, err = s.Store.IsBanned(s.Ctx, "bob")
	s.Require().NoError(err)
	s.False(banned)
}

func (s *Suite) TestDeleteMissingBan() {
	s.NoError(s.Store.DeleteBan(s.Ctx, "nobody"))
}

func (s *Suite) TestBanIndependentOfPlayer() {
	s.Require().NoError(s.Store.UpsertBan(s.Ctx, model.Ban{Nickname: "future", Reason: "pre-banned"}))

	banned, err := s.Store.IsBanned(s.Ctx, "future")
	s.Require().NoError(err)
	s.True(banned)

	_, err = s.Store.GetPlayer(s.Ctx, "future")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}
