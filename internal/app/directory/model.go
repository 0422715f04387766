/*
Package directory resolves chat channels and user records.

It owns the set of default channels everybody belongs to, one channel per
supported language, the two system principals used as sender identity for
system-originated messages, and per-user channel memberships (including
direct-message channels).
*/
package directory

import "time"

// Channel type values stored in the channels table.
const (
	// TypePublic marks default and language channels.
	TypePublic = 0

	// TypeDM marks a private conversation channel between two users.
	TypeDM = 1
)

// Names of the channels every user implicitly belongs to.
var DefaultChannelNames = []string{"en", "int"}

// LanguageNames lists the supported locales that get their own channel.
// Users are joined implicitly based on their language setting.
var LanguageNames = []string{"de", "fr", "ru", "tr", "es", "pt"}

// Reserved sender identities for moderation announcements and system events.
// They are created on startup and never controllable by ordinary users.
const (
	InfoUserName  = "info"
	EventUserName = "event"
)

// Channel is a chat channel as stored in the directory. Identity is immutable
// once created; LastTS updates on each accepted message.
type Channel struct {
	ID     int64
	Name   string
	Type   int
	LastTS time.Time
}

// Membership describes one user's view of a channel. A membership with a
// DMPeer is a direct-message channel; the peer is the other participant.
type Membership struct {
	Name   string
	Type   int
	LastTS time.Time
	DMPeer *int64
}

// IsDM reports whether the membership denotes a direct-message channel.
func (m Membership) IsDM() bool {
	return m.DMPeer != nil
}

// UserRecord is the persistent part of a user as the directory knows it.
// The session-scoped state lives on user.User.
type UserRecord struct {
	ID       int64
	Name     string
	Country  string
	Role     int
	Verified bool
	Lang     string
}
