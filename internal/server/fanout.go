package server

import (
	"encoding/json"
	"log/slog"

	"github.com/Tyrowin/tapwars/internal/model"
)

func (h *Hub) encode(payload any) ([]byte, bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode outbound message", slog.Any("error", err))
		return nil, false
	}
	return data, true
}

// unicast queues payload for one connection. A connection that is not open
// is skipped; one whose buffer is full is dropped.
func (h *Hub) unicast(c *Client, payload any) {
	data, ok := h.encode(payload)
	if !ok {
		return
	}
	if !h.isConnected(c) {
		return
	}
	if !h.safeSend(c, data) {
		h.removeFailedClients([]*Client{c})
	}
}

// broadcast queues payload for every open connection.
func (h *Hub) broadcast(payload any) {
	data, ok := h.encode(payload)
	if !ok {
		return
	}

	clients := h.getClientSnapshot()
	clientsToRemove := h.broadcastToClients(clients, data)
	h.removeFailedClients(clientsToRemove)
}

// broadcastPlayersAndRanks sends the rankings and the full player list.
func (h *Hub) broadcastPlayersAndRanks() {
	ctx, cancel := h.opContext()
	defer cancel()

	ranks, err := h.store.TopPlayersByTaps(ctx, model.RankingLimit)
	if err != nil {
		h.logger.Error("loading rankings failed", slog.Any("error", err))
		return
	}
	players, err := h.store.ListPlayers(ctx)
	if err != nil {
		h.logger.Error("loading players failed", slog.Any("error", err))
		return
	}

	h.broadcast(RanksMessage{Type: TypeRanks, Ranks: nonNilPlayers(ranks), Players: nonNilPlayers(players)})
}

// sendInit sends the catalog, rankings and recent chat to a new connection.
func (h *Hub) sendInit(c *Client) {
	ctx, cancel := h.opContext()
	defer cancel()

	shop, err := h.store.ListShopItems(ctx)
	if err != nil {
		c.logger.Error("loading shop failed", slog.Any("error", err))
		return
	}
	ranks, err := h.store.TopPlayersByTaps(ctx, model.RankingLimit)
	if err != nil {
		c.logger.Error("loading rankings failed", slog.Any("error", err))
		return
	}
	history, err := h.store.RecentChats(ctx, model.ChatHistoryLimit)
	if err != nil {
		c.logger.Error("loading chat history failed", slog.Any("error", err))
		return
	}

	chats := make([]ChatEvent, 0, len(history))
	for _, msg := range history {
		chats = append(chats, chatView(msg))
	}
	if shop == nil {
		shop = []model.ShopItem{}
	}

	h.unicast(c, InitMessage{Type: TypeInit, Shop: shop, Ranks: nonNilPlayers(ranks), Chats: chats})
}

func nonNilPlayers(players []model.Player) []model.Player {
	if players == nil {
		return []model.Player{}
	}
	return players
}

// getClientSnapshot returns a thread-safe snapshot of all current clients
func (h *Hub) getClientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// broadcastToClients sends the message to all clients and returns the ones whose buffer was full.
func (h *Hub) broadcastToClients(clients []*Client, payload []byte) []*Client {
	var clientsToRemove []*Client

	for _, client := range clients {
		if !h.safeSend(client, payload) {
			clientsToRemove = append(clientsToRemove, client)
		}
	}

	return clientsToRemove
}

// removeFailedClients closes clients that could not keep up. Their sessions
// are released when their read pump unregisters them.
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			client.logger.Warn("client removed due to full send buffer")
		}
	}
	h.mutex.Unlock()

	for _, ch := range channelsToClose {
		close(ch)
	}
}
