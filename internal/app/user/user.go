/*
Package user contains the session-scoped representation of a chat participant.

A User is owned by its connection: the rate limiter and the flood repeat
counter live here and are only ever touched by that connection's handler
goroutine, which is what makes them safe without locks. The struct is
destroyed with the session; nothing in it is persisted.
*/
package user

import (
	"github.com/equwal/pixelplanet/internal/app/directory"
	"github.com/equwal/pixelplanet/internal/pkg/limiter"
)

// Role levels. The values are policy-significant: only RoleUser is subject
// to the proxy check, and anything above RoleUser may run admin commands.
const (
	RoleUser      = 0
	RoleAdmin     = 1
	RoleModerator = 2
)

// User is the per-session state of a connected chat participant.
type User struct {
	ID       int64
	Name     string
	IP       string
	Country  string
	Role     int
	Verified bool

	// Lang selects the implicit language channel, "default" for none.
	Lang string

	// Channels maps channel id to this user's membership in non-default
	// channels (DMs and explicit joins).
	Channels map[int64]directory.Membership

	// Limiter is the per-user message rate limiter, created lazily on the
	// first message.
	Limiter *limiter.ChatRateLimiter

	// LastMessage and MessageRepeat back the flood detection: identical
	// consecutive message text bumps the counter.
	LastMessage   string
	MessageRepeat int
}
