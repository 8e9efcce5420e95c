package platform

import (
	"sync"

	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

/**
 * @brief Tracks the size of the presentation surface. Every size change
 * bumps the generation; the renderer rebuilds its pipelines when it sees a
 * generation it has not built for.
 */
type Surface struct {
	mu         sync.Mutex
	extent     metadata.Extent2D
	generation uint64
	acquired   uint64
}

func NewSurface(width, height uint32) *Surface {
	return &Surface{
		extent:     metadata.Extent2D{Width: width, Height: height},
		generation: 1,
	}
}

// Resize records a new extent. Reporting the current extent again is a no-op.
func (s *Surface) Resize(width, height uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extent.Width == width && s.extent.Height == height {
		return false
	}
	s.extent = metadata.Extent2D{Width: width, Height: height}
	s.generation++
	return true
}

func (s *Surface) Extent() metadata.Extent2D {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extent
}

/**
 * @brief Returns the target to render the next frame into. Changed is set
 * on the first acquire after a resize.
 *
 * @return false while the surface has a zero extent (minimized window).
 */
func (s *Surface) Acquire() (metadata.RenderTarget, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extent.Width == 0 || s.extent.Height == 0 {
		return metadata.RenderTarget{}, false
	}
	target := metadata.RenderTarget{
		Generation: s.generation,
		Changed:    s.acquired != s.generation,
		Extent:     s.extent,
	}
	s.acquired = s.generation
	return target, true
}

// Target returns the current target without marking it acquired.
func (s *Surface) Target() metadata.RenderTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return metadata.RenderTarget{Generation: s.generation, Extent: s.extent}
}
