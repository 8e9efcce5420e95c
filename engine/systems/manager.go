package systems

import (
	"github.com/yohamta/donburi"
)

// System advances some part of the world every frame.
type System interface {
	Update(w donburi.World, deltaTime float32)
}

// SystemManager runs its systems in registration order.
type SystemManager struct {
	systems []System
}

func NewSystemManager(systems ...System) *SystemManager {
	return &SystemManager{systems: systems}
}

func (sm *SystemManager) Register(s System) {
	sm.systems = append(sm.systems, s)
}

func (sm *SystemManager) Update(w donburi.World, deltaTime float32) {
	for _, s := range sm.systems {
		s.Update(w, deltaTime)
	}
}

// Default returns a manager with the built-in sprite systems.
func Default() *SystemManager {
	return NewSystemManager(&MotionSystem{}, &TintSystem{}, &LayerCycleSystem{})
}
