package redis

import "fmt"

// Key prefix for all game-related data
const keyPrefix = "tapwars"

// Player hash field names
const (
	fieldCoins      = "coins"
	fieldTapValue   = "tapValue"
	fieldAutoPerSec = "autoPerSec"
	fieldTaps       = "taps"
	fieldIcon       = "icon"
)

// playerKeyPrefix is handed to Lua scripts that build player keys themselves
func playerKeyPrefix() string {
	return fmt.Sprintf("%s:player:", keyPrefix)
}

// playerKey returns the Redis key for a Player hash
func playerKey(nickname string) string {
	return playerKeyPrefix() + nickname
}

// tapsIndexKey returns the sorted set of nicknames scored by tap count
func tapsIndexKey() string {
	return fmt.Sprintf("%s:idx:taps", keyPrefix)
}

// autoIndexKey returns the set of nicknames with a positive autoPerSec
func autoIndexKey() string {
	return fmt.Sprintf("%s:idx:auto", keyPrefix)
}

// shopKey returns the hash of shop item id -> JSON item
func shopKey() string {
	return fmt.Sprintf("%s:shop", keyPrefix)
}

// chatKey returns the list of JSON chat messages, oldest first
func chatKey() string {
	return fmt.Sprintf("%s:chat", keyPrefix)
}

// bansKey returns the hash of nickname -> ban reason
func bansKey() string {
	return fmt.Sprintf("%s:bans", keyPrefix)
}
