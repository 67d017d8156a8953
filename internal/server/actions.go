package server

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/Tyrowin/tapwars/internal/model"
)

// handleMessage dispatches one inbound message. Messages from connections
// that are no longer open are discarded.
func (h *Hub) handleMessage(c *Client, msg ClientMessage) {
	if !h.isConnected(c) {
		return
	}

	switch msg.Type {
	case TypeSetName:
		h.handleSetName(c, msg.Nickname, msg.AdminToken)
	case TypeTap:
		h.handleTap(c)
	case TypeBuy:
		h.handleBuy(c, msg.ItemID)
	case TypeChat:
		h.handleChat(c, msg.Text)
	default:
		c.logger.Debug("dropping message of unknown type", slog.String("type", msg.Type))
	}
}

func (h *Hub) handleSetName(c *Client, requested, credential string) {
	ctx, cancel := h.opContext()
	defer cancel()

	nickname, reason, err := h.registry.Claim(ctx, c, requested, credential)
	if err != nil {
		c.logger.Error("claim failed", slog.Any("error", err))
		return
	}
	if reason != "" {
		c.logger.Debug("claim rejected", slog.String("reason", string(reason)))
		h.unicast(c, SetNameResult{Type: TypeSetNameResult, OK: false, Reason: reason})
		return
	}

	c.logger.Info("nickname claimed", slog.String("nickname", nickname))
	h.unicast(c, SetNameResult{Type: TypeSetNameResult, OK: true, Nickname: nickname})
	h.broadcastPlayersAndRanks()
}

// identity returns the nickname held by c, replying not_named when there is none.
func (h *Hub) identity(c *Client) (string, bool) {
	nickname, ok := h.registry.CurrentIdentity(c)
	if !ok {
		h.unicast(c, ErrorMessage{Type: TypeError, Error: ReasonNotNamed})
	}
	return nickname, ok
}

func (h *Hub) handleTap(c *Client) {
	nickname, ok := h.identity(c)
	if !ok {
		return
	}

	ctx, cancel := h.opContext()
	defer cancel()

	player, err := h.store.ApplyTap(ctx, nickname)
	if err != nil {
		c.logger.Error("tap failed", slog.String("nickname", nickname), slog.Any("error", err))
		return
	}

	h.broadcast(TapEvent{
		Type:     TypeTap,
		Nickname: player.Nickname,
		Coins:    player.Coins,
		Taps:     player.Taps,
		TapValue: player.TapValue,
	})
}

func (h *Hub) handleBuy(c *Client, itemID string) {
	nickname, ok := h.identity(c)
	if !ok {
		return
	}

	ctx, cancel := h.opContext()
	defer cancel()

	item, err := h.store.GetShopItem(ctx, itemID)
	if errors.Is(err, model.ErrItemNotFound) || (err == nil && !item.Kind.Valid()) {
		h.unicast(c, BuyResult{Type: TypeBuyResult, OK: false, Reason: ReasonInvalid})
		return
	}
	if err != nil {
		c.logger.Error("loading shop item failed", slog.String("item_id", itemID), slog.Any("error", err))
		return
	}

	player, err := h.store.GetPlayer(ctx, nickname)
	if err != nil {
		c.logger.Error("loading player failed", slog.String("nickname", nickname), slog.Any("error", err))
		return
	}

	if player.Coins < item.Price {
		h.unicast(c, BuyResult{Type: TypeBuyResult, OK: false, Reason: ReasonNotEnough})
		return
	}

	player.Coins -= item.Price
	switch item.Kind {
	case model.ItemKindTap:
		player.TapValue += item.Value
	case model.ItemKindAuto:
		player.AutoPerSec += item.Value
	}

	if err := h.store.SavePlayer(ctx, player); err != nil {
		c.logger.Error("saving purchase failed", slog.String("nickname", nickname), slog.Any("error", err))
		return
	}

	c.logger.Info("item purchased",
		slog.String("nickname", nickname),
		slog.String("item_id", item.ID),
		slog.Int64("price", item.Price))
	h.unicast(c, BuyResult{Type: TypeBuyResult, OK: true, User: player})
	h.broadcastPlayersAndRanks()
}

func (h *Hub) handleChat(c *Client, raw string) {
	nickname, ok := h.identity(c)
	if !ok {
		return
	}

	text := model.NormalizeChatText(raw)
	if text == "" {
		return
	}

	if model.IsAdministrator(nickname) && strings.HasPrefix(text, "/") {
		h.handleAdminCommand(c, text)
		return
	}

	ctx, cancel := h.opContext()
	defer cancel()

	msg := model.ChatMessage{
		Nickname: nickname,
		Text:     text,
		SentAt:   h.clock.Now(),
	}

	player, err := h.store.GetPlayer(ctx, nickname)
	switch {
	case err == nil:
		msg.Icon = player.Icon
	case !errors.Is(err, model.ErrPlayerNotFound):
		c.logger.Warn("loading chat icon failed", slog.String("nickname", nickname), slog.Any("error", err))
	}

	if err := h.store.AppendChat(ctx, msg); err != nil {
		c.logger.Error("storing chat message failed", slog.Any("error", err))
		return
	}

	event := chatView(msg)
	event.Type = TypeChat
	h.broadcast(event)
}
