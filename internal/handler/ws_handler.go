/*
Package handler provides the HTTP handlers and routing setup for the chat server.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
resolving the connecting principal in the directory, upgrading the HTTP connection to
WebSocket, and initiating the client lifecycle.
*/
package handler

import (
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/equwal/pixelplanet/internal/app/directory"
	"github.com/equwal/pixelplanet/internal/app/socket"
	"github.com/equwal/pixelplanet/internal/app/user"
	"github.com/equwal/pixelplanet/internal/pkg/errs"
	"github.com/equwal/pixelplanet/internal/pkg/limiter"
	"github.com/equwal/pixelplanet/internal/pkg/logx"
	"github.com/equwal/pixelplanet/internal/pkg/req"
	"github.com/equwal/pixelplanet/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
//
// GET /ws?uid=<id> opens a session for a directory principal;
// GET /ws?feed=1 opens a read-only connection to the public message feed.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		if req.QueryString(r, "feed", "") != "" {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				logx.Error(err, "Failed to upgrade feed connection to WebSocket")
				return
			}

			client := socket.NewFeedClient(deps.Hub, conn)
			go client.WritePump()
			deps.Hub.RegisterClient(client)
			client.ReadPump()
			return
		}

		userID, paramErr := req.QueryInt64(r, "uid")
		if paramErr != nil {
			logx.Warn("WebSocket request rejected: Missing or invalid uid", "ip", ip)
			resp.RespondError(w, r, paramErr)
			return
		}

		record, err := deps.Directory.UserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, directory.ErrUserNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			logx.Error(err, "Directory lookup failed during WebSocket gate", "uid", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrChatUnavailable))
			return
		}

		memberships, err := deps.Directory.UserChannels(r.Context(), userID)
		if err != nil {
			logx.Error(err, "Membership lookup failed during WebSocket gate", "uid", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrChatUnavailable))
			return
		}

		sessionUser := &user.User{
			ID:       record.ID,
			Name:     record.Name,
			IP:       ip,
			Country:  record.Country,
			Role:     record.Role,
			Verified: record.Verified,
			Lang:     record.Lang,
			Channels: memberships,
		}

		// subscribed channels: all defaults plus the explicit memberships
		channels := make(map[int64]struct{})
		for id := range deps.Directory.DefaultChannels(record.Lang) {
			channels[id] = struct{}{}
		}
		for id := range memberships {
			channels[id] = struct{}{}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := socket.NewClient(deps.Hub, conn, sessionUser, channels)

		go client.WritePump()

		logx.Info("WebSocket connection established", "uid", userID, "name", record.Name)

		deps.Hub.RegisterClient(client)

		client.ReadPump()
	}
}
