package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/equwal/pixelplanet/internal/app/directory"
)

// AdminCommands interprets channel text starting with the command prefix.
//
// The first whitespace-delimited token after the prefix selects the command,
// the rest are arguments. Like SendMessage it returns a user-facing result
// text ("" for success) and a separate error for backing-service failures.
// Command handling bypasses filtering and rate limiting entirely.
func (p *Provider) AdminCommands(ctx context.Context, message string, channelID int64) (string, error) {
	parts := strings.Split(message, " ")
	cmd := strings.TrimPrefix(parts[0], CommandPrefix)
	args := parts[1:]

	switch cmd {
	case "mute":
		// a numeric last token is the duration in minutes, anything else is
		// part of a (possibly multi-word) name and means a permanent mute
		if len(args) > 0 {
			if minutes, err := strconv.Atoi(args[len(args)-1]); err == nil {
				return p.muteUser(ctx, strings.Join(args[:len(args)-1], " "), channelID, minutes)
			}
		}
		return p.muteUser(ctx, strings.Join(args, " "), channelID, 0)

	case "unmute":
		return p.unmuteUser(ctx, strings.Join(args, " "), channelID)

	case "mutec":
		if len(args) == 0 || args[0] == "" {
			return "No country defined for mutec", nil
		}
		cc := strings.ToLower(args[0])
		p.muteCountry(cc)
		p.broadcastInfo(fmt.Sprintf("Country %s has been muted", cc), channelID)
		return "", nil

	case "unmutec":
		if len(args) > 0 && args[0] != "" {
			cc := strings.ToLower(args[0])
			if !p.unmuteCountry(cc) {
				return fmt.Sprintf("Country %s is not muted", cc), nil
			}
			p.broadcastInfo(fmt.Sprintf("Country %s has been unmuted", cc), channelID)
			return "", nil
		}
		countries := p.drainMutedCountries()
		if len(countries) == 0 {
			return "No country is currently muted", nil
		}
		p.broadcastInfo(fmt.Sprintf("Countries %s have been unmuted", strings.Join(countries, ",")), channelID)
		return "", nil

	default:
		return fmt.Sprintf("Couldn't parse command %s", cmd), nil
	}
}

// muteUser resolves a display name and mutes the account, for the given
// number of minutes or permanently when minutes is 0. The mute is announced
// by the info principal. An unresolved name mutates nothing.
func (p *Provider) muteUser(ctx context.Context, plainName string, channelID int64, minutes int) (string, error) {
	name := strings.TrimPrefix(plainName, "@")

	id, err := p.dir.UserIDByName(ctx, name)
	if err != nil {
		return "", err
	}
	if id == 0 {
		return fmt.Sprintf("Couldn't find user %s", name), nil
	}

	if err := p.mutes.Mute(ctx, id, minutes); err != nil {
		return "", err
	}

	if minutes > 0 {
		p.broadcastInfo(fmt.Sprintf("%s has been muted for %dmin", name, minutes), channelID)
	} else {
		p.broadcastInfo(fmt.Sprintf("%s has been muted forever", name), channelID)
	}

	p.logger.Info().Int64("uid", id).Int("minutes", minutes).Msg("Muted user")
	return "", nil
}

// unmuteUser resolves a display name and removes the account's mute record,
// announcing the unmute. Unmuting a user who is not muted reports that back
// without any broadcast.
func (p *Provider) unmuteUser(ctx context.Context, plainName string, channelID int64) (string, error) {
	name := strings.TrimPrefix(plainName, "@")

	id, err := p.dir.UserIDByName(ctx, name)
	if err != nil {
		return "", err
	}
	if id == 0 {
		return fmt.Sprintf("Couldn't find user %s", name), nil
	}

	removed, err := p.mutes.Unmute(ctx, id)
	if err != nil {
		return "", err
	}
	if !removed {
		return fmt.Sprintf("User %s is not muted", name), nil
	}

	p.broadcastInfo(fmt.Sprintf("%s has been unmuted", name), channelID)
	p.logger.Info().Int64("uid", id).Msg("Unmuted user")
	return "", nil
}

// broadcastInfo sends a system message from the info principal.
func (p *Provider) broadcastInfo(message string, channelID int64) {
	p.BroadcastChatMessage(directory.InfoUserName, message, channelID, p.dir.InfoUserID(), "xx", true)
}
