package server

import (
	"log/slog"
	"strings"

	"github.com/Tyrowin/tapwars/internal/model"
)

const (
	commandBan   = "ban"
	commandUnban = "bro"
)

type adminCommand struct {
	name   string
	target string
}

// parseAdminCommand splits "/name target" into its parts. Commands without
// a target are rejected.
func parseAdminCommand(text string) (adminCommand, bool) {
	fields := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(fields) < 2 {
		return adminCommand{}, false
	}
	target := model.NormalizeNickname(fields[1])
	if target == "" {
		return adminCommand{}, false
	}
	return adminCommand{name: strings.ToLower(fields[0]), target: target}, true
}

func (h *Hub) handleAdminCommand(c *Client, text string) {
	cmd, ok := parseAdminCommand(text)
	if !ok {
		c.logger.Debug("ignoring malformed admin command")
		return
	}

	switch cmd.name {
	case commandBan:
		h.banNickname(c, cmd.target)
	case commandUnban:
		h.unbanNickname(c, cmd.target)
	default:
		c.logger.Debug("ignoring unknown admin command", slog.String("command", cmd.name))
	}
}

func (h *Hub) banNickname(admin *Client, target string) {
	if model.IsAdministrator(target) {
		admin.logger.Warn("refusing to ban the administrator identity")
		return
	}

	ctx, cancel := h.opContext()
	defer cancel()

	if err := h.store.UpsertBan(ctx, model.Ban{Nickname: target, Reason: model.DefaultBanReason}); err != nil {
		admin.logger.Error("storing ban failed", slog.String("target", target), slog.Any("error", err))
		return
	}

	dropped := false
	if holder, ok := h.registry.Holder(target); ok {
		h.unicast(holder, BannedNotice{Type: TypeBanned, Nickname: target})
		h.dropClient(holder)
		holder.logger.Info("connection closed by ban", slog.String("nickname", target))
		dropped = true
	}

	h.logger.Info("nickname banned", slog.String("target", target))
	h.broadcast(SystemNotice{Type: TypeSystem, Text: target + " is banned"})
	if dropped {
		h.broadcastPlayersAndRanks()
	}
}

func (h *Hub) unbanNickname(admin *Client, target string) {
	ctx, cancel := h.opContext()
	defer cancel()

	if err := h.store.DeleteBan(ctx, target); err != nil {
		admin.logger.Error("removing ban failed", slog.String("target", target), slog.Any("error", err))
		return
	}

	h.logger.Info("nickname unbanned", slog.String("target", target))
	h.broadcast(SystemNotice{Type: TypeSystem, Text: target + " is unbanned"})
}
