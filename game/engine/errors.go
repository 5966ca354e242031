package engine

import "errors"

var (
	ErrInvalidCoord      = errors.New("coordinates outside grid")
	ErrInvalidGeometry   = errors.New("invalid grid geometry")
	ErrNilItem           = errors.New("item is nil")
	ErrNilGrid           = errors.New("grid is nil")
	ErrNilItemType       = errors.New("item type is nil")
	ErrItemInitialized   = errors.New("item already initialized")
	ErrUnknownItem       = errors.New("item not found")
	ErrUnknownItemType   = errors.New("item type not found")
	ErrUnknownGenerator  = errors.New("generator not found")
	ErrNotDragging       = errors.New("item is not being dragged")
	ErrInvalidEnergy     = errors.New("invalid energy settings")
	ErrInvalidConfig     = errors.New("invalid board config")
	ErrCatalogCycle      = errors.New("item type chain contains a cycle")
	ErrDuplicateItemType = errors.New("duplicate item type")
)
