package ai

import "github.com/udisondev/outpost/internal/model"

// Controller drives the behaviour of a group of encampment members.
type Controller interface {
	// Start starts the controller
	Start()

	// Stop stops the controller
	Stop()

	// SetIntention sets the group intention
	SetIntention(intention model.Intention)

	// CurrentIntention returns the group intention
	CurrentIntention() model.Intention

	// Tick performs one behaviour step (called by TickManager)
	Tick()
}
