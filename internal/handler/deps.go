package handler

import (
	"livechat/internal/app/relay"
	"livechat/internal/app/storage"
	"livechat/internal/configs"
)

// AppDeps holds what the HTTP handlers need.
type AppDeps struct {
	Hub    *relay.Hub
	Config *configs.AppConfig

	// StorageService is nil when media sharing is not configured.
	StorageService storage.StorageService
}
