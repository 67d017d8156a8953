package server

import "log/slog"

// autoIncomeTick credits every player's auto income and sends one rankings
// broadcast, whether or not anyone earned.
func (h *Hub) autoIncomeTick() {
	ctx, cancel := h.opContext()
	defer cancel()

	credited, err := h.store.CreditAutoIncome(ctx)
	if err != nil {
		h.logger.Error("auto income tick failed", slog.Any("error", err))
		return
	}
	h.logger.Debug("auto income credited", slog.Int("players", credited))
	h.broadcastPlayersAndRanks()
}
