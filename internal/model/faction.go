package model

// Faction is an owning faction handle. Diplomacy lives elsewhere; here two
// different factions are always hostile to each other.
type Faction struct {
	ID     int32
	Name   string
	Player bool
}

// NewFaction creates a faction handle.
func NewFaction(id int32, name string, player bool) *Faction {
	return &Faction{ID: id, Name: name, Player: player}
}

// HostileTo reports whether f treats other as an enemy.
func (f *Faction) HostileTo(other *Faction) bool {
	if f == nil || other == nil {
		return false
	}
	return f.ID != other.ID
}
