// Package platform owns the window and the surface the renderer draws into.
package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/instancer/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type WindowConfig struct {
	Title  string
	Width  uint32
	Height uint32
}

/**
 * @brief A glfw window without a client API, for Vulkan. Framebuffer size
 * changes are forwarded to the Surface.
 */
type Window struct {
	handle  *glfw.Window
	surface *Surface
}

func NewWindow(cfg WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return nil, err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	handle, err := glfw.CreateWindow(int(cfg.Width), int(cfg.Height), cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		core.LogError("failed to create window: %s", err)
		return nil, err
	}

	fw, fh := handle.GetFramebufferSize()
	w := &Window{
		handle:  handle,
		surface: NewSurface(uint32(fw), uint32(fh)),
	}
	handle.SetFramebufferSizeCallback(w.framebufferSizeCallback)
	handle.SetKeyCallback(w.keyCallback)
	handle.Show()

	core.LogInfo("window %q created (%dx%d)", cfg.Title, fw, fh)
	return w, nil
}

// Handle is the glfw window. It satisfies vulkan.Window.
func (w *Window) Handle() *glfw.Window {
	return w.handle
}

func (w *Window) Surface() *Surface {
	return w.surface
}

// PollEvents processes pending window events and reports whether the
// window is still open.
func (w *Window) PollEvents() bool {
	glfw.PollEvents()
	return !w.handle.ShouldClose()
}

func (w *Window) Shutdown() {
	w.handle.Destroy()
	glfw.Terminate()
}

func (w *Window) keyCallback(win *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		win.SetShouldClose(true)
	}
}

func (w *Window) framebufferSizeCallback(win *glfw.Window, width, height int) {
	if w.surface.Resize(uint32(width), uint32(height)) {
		core.LogDebug("framebuffer resized to %dx%d", width, height)
	}
}
