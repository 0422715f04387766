/*
Package handler provides the HTTP handlers and routing setup for the chat server.

This file serves the channel history query: the most recent messages of a
channel in chronological order, from the in-memory history buffer.
*/
package handler

import (
	"net/http"

	"github.com/equwal/pixelplanet/internal/app/chat"
	"github.com/equwal/pixelplanet/internal/pkg/errs"
	"github.com/equwal/pixelplanet/internal/pkg/req"
	"github.com/equwal/pixelplanet/internal/pkg/resp"
)

// HandleChatHistory serves GET /api/chat/history?cid=<id>&limit=<n>.
//
// Only default and language channel history is served here; per-user
// channels (DMs) are never exposed without a session and this endpoint has
// none.
func HandleChatHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channelID, paramErr := req.QueryInt64(r, "cid")
		if paramErr != nil {
			resp.RespondError(w, r, paramErr)
			return
		}

		limit, paramErr := req.QueryIntDefault(r, "limit", chat.HistoryLimit)
		if paramErr != nil {
			resp.RespondError(w, r, paramErr)
			return
		}

		// an anonymous reader has no language and no memberships
		if !deps.Directory.HasChannelAccess("", nil, channelID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrChannelAccessDenied))
			return
		}

		messages := deps.Provider.GetHistory(channelID, limit)
		resp.RespondSuccess(w, r, messages)
	}
}
