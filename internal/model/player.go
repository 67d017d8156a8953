package model

// Player is the persisted per-nickname game state.
type Player struct {
	Nickname   string  `json:"nickname"`
	Coins      int64   `json:"coins"`
	TapValue   int64   `json:"tapValue"`
	AutoPerSec int64   `json:"autoPerSec"`
	Taps       int64   `json:"taps"`
	Icon       *string `json:"icon"`
}

// NewPlayer returns a player with zeroed counters and a tap value of one.
func NewPlayer(nickname string) *Player {
	return &Player{
		Nickname: nickname,
		TapValue: 1,
	}
}

// IconOrEmpty returns the icon reference, or "" when the player has none.
func (p *Player) IconOrEmpty() string {
	if p == nil || p.Icon == nil {
		return ""
	}
	return *p.Icon
}

// Clone returns a deep copy so callers can mutate it without touching stored state.
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	c := *p
	if p.Icon != nil {
		icon := *p.Icon
		c.Icon = &icon
	}
	return &c
}
