package metadata

type Extent2D struct {
	Width  uint32
	Height uint32
}

/**
 * @brief The surface a frame is rendered into.
 * Generation increases every time the target is recreated (resize,
 * swapchain rebuild). Anything built against an older generation has to
 * be rebuilt before it is used.
 */
type RenderTarget struct {
	Generation uint64
	/** @brief True for the first frame after a recreation. */
	Changed bool
	Extent  Extent2D
}
