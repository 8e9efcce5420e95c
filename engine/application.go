package engine

import (
	"github.com/spaghettifunk/instancer/engine/config"
)

type ApplicationConfig struct {
	Config config.Config
	// ScenePath is a .toml or .yaml scene file loaded at initialization, if set.
	ScenePath string
	// AssetDir is indexed by the asset manager and resolves relative asset paths.
	AssetDir string
	// Window opens a glfw window and renders through Vulkan. Without it
	// frames are recorded by the trace backend.
	Window bool
}
