package handler

import (
	"spiderlink/internal/app/gateway"
	"spiderlink/internal/app/storage"
	"spiderlink/internal/app/user"
	"spiderlink/internal/configs"
	"spiderlink/internal/pkg/pow"
)

// AppDeps are the services the HTTP layer hands requests to.
type AppDeps struct {
	Config  *configs.AppConfig
	Users   *user.Directory
	Hub     *gateway.Hub
	Gateway *gateway.Gateway
	Pow     *pow.Manager

	// Storage is nil when uploads are disabled.
	Storage storage.Service
}

// secureCookies reports whether session cookies need the Secure flag.
func (d *AppDeps) secureCookies() bool {
	return !d.Config.IsDevelopment()
}
