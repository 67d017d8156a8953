package model

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// MaxNicknameLength is measured in runes.
	MaxNicknameLength = 32
	// MaxChatLength is measured in runes.
	MaxChatLength = 500
	// AdminNickname is the reserved administrator identity.
	AdminNickname = "admin"

	// RankingLimit caps the rankings view.
	RankingLimit = 100
	// ChatHistoryLimit caps the chat history sent on connect.
	ChatHistoryLimit = 200
)

// NormalizeNickname trims the requested name and truncates it to MaxNicknameLength runes.
func NormalizeNickname(raw string) string {
	return truncateRunes(strings.TrimSpace(raw), MaxNicknameLength)
}

// NormalizeChatText trims chat text and truncates it to MaxChatLength runes.
func NormalizeChatText(raw string) string {
	return truncateRunes(strings.TrimSpace(raw), MaxChatLength)
}

// IsAdministrator reports whether a nickname is the reserved administrator
// identity. The comparison is case-insensitive.
func IsAdministrator(nickname string) bool {
	return strings.EqualFold(nickname, AdminNickname)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// SortByTaps orders players by descending tap count, breaking ties by nickname.
func SortByTaps(players []Player) {
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Taps != players[j].Taps {
			return players[i].Taps > players[j].Taps
		}
		return players[i].Nickname < players[j].Nickname
	})
}

// SortByNickname orders players by nickname.
func SortByNickname(players []Player) {
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Nickname < players[j].Nickname
	})
}
