package model

// Intention represents the behaviour state of an encampment member or its controller.
type Intention int32

const (
	// IntentionIdle - no behaviour running (controller stopped)
	IntentionIdle Intention = iota
	// IntentionDormant - asleep until woken by an activator or damage
	IntentionDormant
	// IntentionActive - guarding the defend spot
	IntentionActive
	// IntentionAttack - engaging a hostile inside the defend radius
	IntentionAttack
)

// String returns human-readable intention name
func (i Intention) String() string {
	switch i {
	case IntentionIdle:
		return "IDLE"
	case IntentionDormant:
		return "DORMANT"
	case IntentionActive:
		return "ACTIVE"
	case IntentionAttack:
		return "ATTACK"
	default:
		return "UNKNOWN"
	}
}
