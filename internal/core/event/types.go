package event

import (
	"errors"

	"github.com/l1jgo/scheduler/internal/core/ecs"
)

var errNoBus = errors.New("event bus resource not present")

// EntityDestroyed is emitted once per entity removed by the cleanup system.
type EntityDestroyed struct {
	Entity ecs.EntityID
}
