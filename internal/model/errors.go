package model

import "errors"

// Sentinel errors for catalog and generation configuration.
var (
	ErrEmptyCatalog      = errors.New("template catalog is empty")
	ErrNoCombatThreat    = errors.New("catalog has no eligible combat-threat template")
	ErrInvalidBudget     = errors.New("budget must be a finite number")
	ErrInvalidTemplate   = errors.New("invalid template")
	ErrDuplicateTemplate = errors.New("duplicate template id")
	ErrOutOfBounds       = errors.New("position out of world bounds")
	ErrCellBlocked       = errors.New("cell is blocked")
)
