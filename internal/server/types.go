// Package server defines the JSON message vocabulary exchanged between
// browser clients and the game hub.
package server

import (
	"strings"

	"github.com/Tyrowin/tapwars/internal/model"
)

// Inbound message types.
const (
	TypeSetName = "setName"
	TypeTap     = "tap"
	TypeBuy     = "buy"
	TypeChat    = "chat"
)

// Outbound message types.
const (
	TypeInit          = "init"
	TypeSetNameResult = "setNameResult"
	TypeBuyResult     = "buyResult"
	TypeRanks         = "ranks"
	TypeSystem        = "system"
	TypeBanned        = "banned"
	TypeError         = "error"
)

// Reason is a machine-readable rejection code carried in replies.
type Reason string

const (
	ReasonEmpty     Reason = "empty"
	ReasonAdminAuth Reason = "admin_auth"
	ReasonBanned    Reason = "banned"
	ReasonInUse     Reason = "inuse"
	ReasonInvalid   Reason = "invalid"
	ReasonNotEnough Reason = "not_enough"
	ReasonNotNamed  Reason = "not_named"
)

// ClientMessage is the envelope of every client to server message. Fields
// not used by a given type are left empty.
type ClientMessage struct {
	Type       string `json:"type"`
	Nickname   string `json:"nickname,omitempty"`
	AdminToken string `json:"adminToken,omitempty"`
	ItemID     string `json:"itemId,omitempty"`
	Text       string `json:"text,omitempty"`
}

// InitMessage is sent once to every new connection.
type InitMessage struct {
	Type  string           `json:"type"`
	Shop  []model.ShopItem `json:"shop"`
	Ranks []model.Player   `json:"ranks"`
	Chats []ChatEvent      `json:"chats"`
}

type SetNameResult struct {
	Type     string `json:"type"`
	OK       bool   `json:"ok"`
	Nickname string `json:"nickname,omitempty"`
	Reason   Reason `json:"reason,omitempty"`
}

// TapEvent announces a single tap to every connection.
type TapEvent struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
	Coins    int64  `json:"coins"`
	Taps     int64  `json:"taps"`
	TapValue int64  `json:"tapValue"`
}

type BuyResult struct {
	Type   string        `json:"type"`
	OK     bool          `json:"ok"`
	User   *model.Player `json:"user,omitempty"`
	Reason Reason        `json:"reason,omitempty"`
}

// RanksMessage carries the top players by taps and the full player list.
type RanksMessage struct {
	Type    string         `json:"type"`
	Ranks   []model.Player `json:"ranks"`
	Players []model.Player `json:"players"`
}

// ChatEvent is a chat line. Inside InitMessage.Chats the type is omitted.
type ChatEvent struct {
	Type     string  `json:"type,omitempty"`
	Nickname string  `json:"nickname"`
	Icon     *string `json:"icon"`
	Text     string  `json:"text"`
	TS       int64   `json:"ts"`
}

type SystemNotice struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type BannedNotice struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error Reason `json:"error"`
}

func chatView(msg model.ChatMessage) ChatEvent {
	return ChatEvent{
		Nickname: msg.Nickname,
		Icon:     msg.Icon,
		Text:     msg.Text,
		TS:       msg.SentAt.UnixMilli(),
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
