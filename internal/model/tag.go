package model

import "github.com/zyedidia/generic/mapset"

// Tag is a catalog capability label used to filter templates per selection pass.
type Tag string

const (
	TagProblemCauser      Tag = "problem-causer"
	TagActivatorCountdown Tag = "activator-countdown"
	TagActivatorProximity Tag = "activator-proximity"
	TagGood               Tag = "good"
	TagAmbientDecoration  Tag = "ambient-decoration"
	TagLamp               Tag = "lamp"
	TagResonanceSupport   Tag = "resonance-support"
	TagShieldBullet       Tag = "shield-bullet"
	TagShieldMortar       Tag = "shield-mortar"
	TagCombatThreat       Tag = "combat-threat"
	TagDefensiveGood      Tag = "defensive-good"
	TagWall               Tag = "wall"
	TagBarricade          Tag = "barricade"
)

// TagSet is an unordered set of tags.
type TagSet = mapset.Set[Tag]

// NewTagSet builds a TagSet from the given tags.
func NewTagSet(tags ...Tag) TagSet {
	s := mapset.New[Tag]()
	for _, t := range tags {
		s.Put(t)
	}
	return s
}
