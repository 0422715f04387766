package handler

import (
	"github.com/equwal/pixelplanet/internal/app/chat"
	"github.com/equwal/pixelplanet/internal/app/directory"
	"github.com/equwal/pixelplanet/internal/app/socket"
	"github.com/equwal/pixelplanet/internal/configs"
)

// AppDeps bundles the wired application services the handlers need.
type AppDeps struct {
	Hub       *socket.Hub
	Provider  *chat.Provider
	Directory *directory.Directory
	Config    *configs.AppConfig
}
