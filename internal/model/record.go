package model

import (
	"time"

	"codeberg.org/anaseto/gruid"
)

// EncampmentRecord is the generation ledger entry for one committed encampment.
type EncampmentRecord struct {
	ID        int64
	Seed      uint64
	Points    float64
	Anchor    gruid.Point
	Score     float64
	FactionID int32
	Dormant   bool
	CreatedAt time.Time
	Members   []MemberRecord
}

// MemberRecord is one spawned entity of an encampment.
type MemberRecord struct {
	ObjectID   uint32
	TemplateID string
	Kind       EntityKind
	Position   gruid.Point
	Rotation   Rotation
}
