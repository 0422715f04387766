package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/equwal/pixelplanet/internal/pkg/logx"
)

// Notifier is told about newly created channel memberships so connected
// clients of that user can be informed. The websocket hub implements it.
type Notifier interface {
	ChannelAdded(userID, channelID int64, membership Membership)
}

// Directory resolves default and language channels, tracks per-user channel
// membership, and detects direct-message channels.
//
// The in-memory channel maps are populated once by Initialize and read-only
// afterwards, so access methods need no locking.
type Directory struct {
	repo     Repository
	notifier Notifier

	defaultChannels map[int64]Membership
	langChannels    map[string]Channel

	enChannelID int64
	infoUserID  int64
	eventUserID int64

	logger zerolog.Logger
}

// New creates a Directory. Initialize must be called before use.
func New(repo Repository, notifier Notifier) *Directory {
	return &Directory{
		repo:            repo,
		notifier:        notifier,
		defaultChannels: make(map[int64]Membership),
		langChannels:    make(map[string]Channel),
		logger:          logx.Logger().With().Str("component", "directory").Logger(),
	}
}

// Initialize find-or-creates every default channel, every supported-language
// channel, and the two system principals. It is idempotent and must complete
// before the server accepts connections.
func (d *Directory) Initialize(ctx context.Context) error {
	for _, name := range DefaultChannelNames {
		ch, err := d.repo.FindOrCreateChannel(ctx, name)
		if err != nil {
			return fmt.Errorf("initialize default channel %q: %w", name, err)
		}

		if name == "en" {
			d.enChannelID = ch.ID
		}
		d.defaultChannels[ch.ID] = Membership{Name: ch.Name, Type: ch.Type, LastTS: ch.LastTS}
	}

	for _, name := range LanguageNames {
		ch, err := d.repo.FindOrCreateChannel(ctx, name)
		if err != nil {
			return fmt.Errorf("initialize language channel %q: %w", name, err)
		}
		d.langChannels[name] = ch
	}

	infoID, err := d.repo.FindOrCreateUser(ctx, InfoUserName, "info@example.com")
	if err != nil {
		return fmt.Errorf("initialize info user: %w", err)
	}
	d.infoUserID = infoID

	eventID, err := d.repo.FindOrCreateUser(ctx, EventUserName, "event@example.com")
	if err != nil {
		return fmt.Errorf("initialize event user: %w", err)
	}
	d.eventUserID = eventID

	d.logger.Info().
		Int("default_channels", len(d.defaultChannels)).
		Int("language_channels", len(d.langChannels)).
		Int64("info_user_id", d.infoUserID).
		Int64("event_user_id", d.eventUserID).
		Msg("Channel directory initialized")

	return nil
}

// EnChannelID returns the id of the script-restricted default channel.
func (d *Directory) EnChannelID() int64 { return d.enChannelID }

// InfoUserID returns the id of the "info" system principal.
func (d *Directory) InfoUserID() int64 { return d.infoUserID }

// EventUserID returns the id of the "event" system principal.
func (d *Directory) EventUserID() int64 { return d.eventUserID }

// DefaultChannels returns all default channels plus, if lang names a known
// non-default language, that language's channel. Language entries take
// precedence on an id collision.
func (d *Directory) DefaultChannels(lang string) map[int64]Membership {
	channels := make(map[int64]Membership, len(d.defaultChannels)+1)
	for id, m := range d.defaultChannels {
		channels[id] = m
	}

	if lang != "" && lang != "default" {
		if ch, ok := d.langChannels[lang]; ok {
			channels[ch.ID] = Membership{Name: lang, Type: ch.Type, LastTS: ch.LastTS}
		}
	}

	return channels
}

// HasChannelAccess reports whether a user with the given language and channel
// map may read and write the channel.
func (d *Directory) HasChannelAccess(lang string, channels map[int64]Membership, channelID int64) bool {
	if _, ok := d.defaultChannels[channelID]; ok {
		return true
	}
	if _, ok := channels[channelID]; ok {
		return true
	}
	if ch, ok := d.langChannels[lang]; ok && ch.ID == channelID {
		return true
	}
	return false
}

// CheckIfDm returns the peer id when the channel is a direct-message channel
// of the given user, and nil otherwise. Default channels are never DMs.
func (d *Directory) CheckIfDm(channels map[int64]Membership, channelID int64) *int64 {
	if _, ok := d.defaultChannels[channelID]; ok {
		return nil
	}

	if m, ok := channels[channelID]; ok && m.IsDM() {
		return m.DMPeer
	}
	return nil
}

// UserIDByName resolves a display name to a user id, (0, nil) when unknown.
func (d *Directory) UserIDByName(ctx context.Context, name string) (int64, error) {
	return d.repo.UserIDByName(ctx, name)
}

// UserByID loads the persistent record of a connecting principal.
func (d *Directory) UserByID(ctx context.Context, id int64) (UserRecord, error) {
	return d.repo.UserByID(ctx, id)
}

// UserChannels loads the user's explicit channel memberships.
func (d *Directory) UserChannels(ctx context.Context, userID int64) (map[int64]Membership, error) {
	return d.repo.UserChannels(ctx, userID)
}

// AddUserToChannel joins a user to a channel. The join is idempotent; only a
// newly created membership is announced to the user's connected clients.
func (d *Directory) AddUserToChannel(ctx context.Context, userID, channelID int64, membership Membership) error {
	created, err := d.repo.CreateMembership(ctx, userID, channelID, membership.DMPeer)
	if err != nil {
		return err
	}

	if created && d.notifier != nil {
		d.notifier.ChannelAdded(userID, channelID, membership)
	}

	return nil
}

// TouchChannel records an accepted message on the channel's timestamp.
func (d *Directory) TouchChannel(ctx context.Context, channelID int64, ts time.Time) error {
	return d.repo.TouchChannel(ctx, channelID, ts)
}
