/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting, reading the
session cookie, upgrading the HTTP connection to WebSocket, and initiating the client lifecycle.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"spiderlink/internal/app/gateway"
	"spiderlink/internal/pkg/auth/jwt"
	"spiderlink/internal/pkg/errs"
	"spiderlink/internal/pkg/limiter"
	"spiderlink/internal/pkg/logx"
	"spiderlink/internal/pkg/randx"
	"spiderlink/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// A valid session cookie becomes the connection's verified identity; without one the
// connection is anonymous until it authenticates.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(limiter.ClientIP(r)) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "remote_ip", logx.AnonymizeIP(r.RemoteAddr))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		identity := ""
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			identity = payload.ID
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connID := randx.ConnectionID()
		client := gateway.NewClient(connID, identity, conn, deps.Hub, deps.Gateway)

		go client.WritePump()

		deps.Hub.Register(client)
		logx.Info("WebSocket connection established and client registered", "conn_id", connID, "verified", identity != "")

		client.ReadPump()
	}
}
