package server

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/Tyrowin/tapwars/internal/model"
	"github.com/Tyrowin/tapwars/internal/storage"
)

// Registry maps open connections to the nickname they hold. A nickname is
// held by at most one connection. The registry is owned by the hub goroutine
// and is not safe for concurrent use.
type Registry struct {
	sessions   map[*Client]string
	holders    map[string]*Client
	store      storage.Storage
	adminToken string
}

// NewRegistry creates an empty registry. An empty adminToken means nobody
// can claim the administrator identity.
func NewRegistry(store storage.Storage, adminToken string) *Registry {
	return &Registry{
		sessions:   make(map[*Client]string),
		holders:    make(map[string]*Client),
		store:      store,
		adminToken: adminToken,
	}
}

// Connect records an open connection with no identity.
func (r *Registry) Connect(c *Client) {
	if _, ok := r.sessions[c]; !ok {
		r.sessions[c] = ""
	}
}

// Claim binds requested to c. The returned Reason is empty on success; a
// non-nil error means the store failed and nothing was bound.
func (r *Registry) Claim(ctx context.Context, c *Client, requested, credential string) (string, Reason, error) {
	nickname := model.NormalizeNickname(requested)
	if nickname == "" {
		return "", ReasonEmpty, nil
	}

	if model.IsAdministrator(nickname) {
		if !r.validAdminToken(credential) {
			return "", ReasonAdminAuth, nil
		}
		nickname = model.AdminNickname
	}

	banned, err := r.store.IsBanned(ctx, nickname)
	if err != nil {
		return "", "", fmt.Errorf("checking ban for %q: %w", nickname, err)
	}
	if banned {
		return "", ReasonBanned, nil
	}

	if holder, ok := r.holders[nickname]; ok && holder != c {
		return "", ReasonInUse, nil
	}

	if _, err := r.store.EnsurePlayer(ctx, nickname); err != nil {
		return "", "", fmt.Errorf("creating player %q: %w", nickname, err)
	}

	if previous := r.sessions[c]; previous != "" && previous != nickname {
		delete(r.holders, previous)
	}
	r.sessions[c] = nickname
	r.holders[nickname] = c
	return nickname, "", nil
}

func (r *Registry) validAdminToken(credential string) bool {
	if r.adminToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(credential), []byte(r.adminToken)) == 1
}

// Release forgets c. It returns the nickname c held, if any, and whether c
// was known at all.
func (r *Registry) Release(c *Client) (string, bool) {
	nickname, known := r.sessions[c]
	if !known {
		return "", false
	}
	delete(r.sessions, c)
	if nickname != "" && r.holders[nickname] == c {
		delete(r.holders, nickname)
	}
	return nickname, true
}

// CurrentIdentity returns the nickname held by c.
func (r *Registry) CurrentIdentity(c *Client) (string, bool) {
	nickname := r.sessions[c]
	return nickname, nickname != ""
}

// IsInUse reports whether a live connection holds nickname.
func (r *Registry) IsInUse(nickname string) bool {
	_, ok := r.holders[nickname]
	return ok
}

// Holder returns the connection holding nickname.
func (r *Registry) Holder(nickname string) (*Client, bool) {
	c, ok := r.holders[nickname]
	return c, ok
}
