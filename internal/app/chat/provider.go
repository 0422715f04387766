package chat

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/equwal/pixelplanet/internal/app/directory"
	"github.com/equwal/pixelplanet/internal/app/user"
	"github.com/equwal/pixelplanet/internal/pkg/limiter"
	"github.com/equwal/pixelplanet/internal/pkg/logx"
)

// countryOverrides is a documented exception table mapping single accounts to
// a fixed display country. There is no general mechanism for user-controlled
// flags; do not extend this beyond confirmed special cases.
var countryOverrides = map[int64]string{
	2927: "bt",
}

// Provider composes the rate limiter, mute store, filter chain, channel
// directory, and history buffer into the message send pipeline, the admin
// command interpreter, and the broadcast path.
//
// The country-mute set is process-wide mutable state owned exclusively by
// this struct and reachable only through its methods.
type Provider struct {
	dir         *directory.Directory
	mutes       MuteService
	proxyCheck  ProxyChecker
	broadcaster Broadcaster
	history     *HistoryBuffer
	chain       *FilterChain

	// cyrillic matches the script range that is rejected on the "en" default
	// channel; that channel stays script-restricted and the int channel takes
	// the rest.
	cyrillic *regexp.Regexp

	mu             sync.Mutex
	mutedCountries map[string]struct{}

	logger zerolog.Logger
}

// NewProvider wires the pipeline. The directory must be initialized before
// messages are sent.
func NewProvider(dir *directory.Directory, mutes MuteService, proxyCheck ProxyChecker, broadcaster Broadcaster) *Provider {
	return &Provider{
		dir:            dir,
		mutes:          mutes,
		proxyCheck:     proxyCheck,
		broadcaster:    broadcaster,
		history:        NewHistoryBuffer(HistoryLimit),
		chain:          NewFilterChain(DefaultFilterRules(), DefaultSubstitutions(), MaxMessageLength),
		cyrillic:       regexp.MustCompile(`[\x{0436}-\x{043B}]`),
		mutedCountries: make(map[string]struct{}),
		logger:         logx.Logger().With().Str("component", "chat").Logger(),
	}
}

// GetHistory returns up to limit most recent messages of a channel.
func (p *Provider) GetHistory(channelID int64, limit int) []ChatMessage {
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}
	return p.history.GetMessages(channelID, limit)
}

// CheckIfDm exposes DM detection for the transport layer.
func (p *Provider) CheckIfDm(u *user.User, channelID int64) *int64 {
	return p.dir.CheckIfDm(u.Channels, channelID)
}

// SendMessage runs one message through the moderation pipeline.
//
// It returns a user-facing rejection text, or "" when the message was
// accepted and broadcast. A non-nil error means a backing service did not
// answer; the caller must report a generic failure and never treat it as
// acceptance.
func (p *Provider) SendMessage(ctx context.Context, u *user.User, message string, channelID int64) (string, error) {
	if u.Role == user.RoleUser {
		isProxy, err := p.proxyCheck.IsProxy(ctx, u.IP)
		if err != nil {
			return "", err
		}
		if isProxy {
			p.logger.Info().
				Str("name", u.Name).
				Str("ip", u.IP).
				Msg("Blocked chat message through proxy")
			return "You can not send chat messages with proxy", nil
		}
	}

	if u.Name == "" || u.ID == 0 {
		return "Couldn't send your message, pls log out and back in again.", nil
	}

	if strings.HasPrefix(message, CommandPrefix) && u.Role > user.RoleUser {
		return p.AdminCommands(ctx, message, channelID)
	}

	if u.Limiter == nil {
		u.Limiter = limiter.NewChatRateLimiter(RateLimitCapacity, RateLimitWindow, RateLimitBurst)
	}
	if wait := u.Limiter.Tick(); wait > 0 {
		waitSeconds := int(wait / time.Second)
		return fmt.Sprintf("You are sending messages too fast, you have to wait %ds :(", waitSeconds), nil
	}

	if !p.dir.HasChannelAccess(u.Lang, u.Channels, channelID) {
		return "You don't have access to this channel", nil
	}

	country := u.Country
	if country == "" {
		country = "xx"
	}
	displayCountry := country
	if hasOverrideSuffix(u.Name) {
		displayCountry = "il"
	}
	if cc, ok := countryOverrides[u.ID]; ok {
		displayCountry = cc
	}

	if !u.Verified {
		return "Your mail has to be verified in order to chat", nil
	}

	muted, err := p.mutes.CheckMuted(ctx, u.ID)
	if err != nil {
		return "", err
	}
	if muted < 0 {
		return "You are permanently muted, join our guilded to appeal the mute", nil
	}
	if muted > 0 {
		if muted > 120 {
			minutes := int(math.Round(float64(muted) / 60))
			return fmt.Sprintf("You are muted for another %d minutes", minutes), nil
		}
		return fmt.Sprintf("You are muted for another %d seconds", muted), nil
	}

	res := p.chain.Apply(message)
	if res.Rejected {
		if res.AutoMuteMinutes > 0 {
			if _, err := p.muteUser(ctx, u.Name, channelID, res.AutoMuteMinutes); err != nil {
				return "", err
			}
			return "Ow no! Spam protection decided to mute you", nil
		}
		return "You can't send a message this long :(", nil
	}
	message = res.Text

	if channelID == p.dir.EnChannelID() && p.cyrillic.MatchString(message) {
		return "Please use int channel", nil
	}

	if p.isCountryMuted(country) {
		return "Your country is temporary muted from chat", nil
	}

	if u.LastMessage != "" && u.LastMessage == message {
		u.MessageRepeat++
		if u.MessageRepeat+1 >= FloodThreshold {
			u.MessageRepeat = 0
			if _, err := p.muteUser(ctx, u.Name, channelID, FloodMuteMinutes); err != nil {
				return "", err
			}
			return "Stop flooding.", nil
		}
	} else {
		u.MessageRepeat = 0
		u.LastMessage = message
	}

	p.logger.Info().
		Str("name", u.Name).
		Str("ip", u.IP).
		Int64("cid", channelID).
		Str("message", message).
		Msg("Received chat message")

	if err := p.dir.TouchChannel(ctx, channelID, time.Now()); err != nil {
		// advisory: the message is already accepted
		p.logger.Warn().Err(err).Int64("cid", channelID).Msg("Failed to update channel timestamp")
	}

	p.BroadcastChatMessage(u.Name, message, channelID, u.ID, displayCountry, true)
	return "", nil
}

// BroadcastChatMessage writes a message to the channel history and hands it
// to the transport layer. Messages over MaxBroadcastLength are silently
// dropped; this path is also reachable without the send-time checks.
func (p *Provider) BroadcastChatMessage(name, message string, channelID, userID int64, country string, sendAPI bool) {
	if len([]rune(message)) > MaxBroadcastLength {
		return
	}

	p.history.AddMessage(name, message, channelID, userID, country)
	p.broadcaster.BroadcastChatMessage(name, message, channelID, userID, country, sendAPI)
}

// hasOverrideSuffix reports whether a display name carries one of the name
// suffixes that force a fixed display country.
func hasOverrideSuffix(name string) bool {
	return strings.HasSuffix(name, "berg") || strings.HasSuffix(name, "stein")
}

func (p *Provider) isCountryMuted(country string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.mutedCountries[country]
	return ok
}

func (p *Provider) muteCountry(country string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mutedCountries[country] = struct{}{}
}

// unmuteCountry removes one country and reports whether it was present.
func (p *Provider) unmuteCountry(country string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.mutedCountries[country]; !ok {
		return false
	}
	delete(p.mutedCountries, country)
	return true
}

// drainMutedCountries clears the set and returns its former members sorted.
func (p *Provider) drainMutedCountries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	countries := make([]string, 0, len(p.mutedCountries))
	for cc := range p.mutedCountries {
		countries = append(countries, cc)
	}
	sort.Strings(countries)

	p.mutedCountries = make(map[string]struct{})
	return countries
}
