package model

// Ban forbids a nickname from claiming a session.
type Ban struct {
	Nickname string `json:"nickname"`
	Reason   string `json:"reason"`
}

// DefaultBanReason is recorded by the /ban chat command.
const DefaultBanReason = "banned by admin"
