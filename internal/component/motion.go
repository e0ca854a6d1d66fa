package component

// Position is an entity's location in world units.
type Position struct {
	X, Y float64
}

// Velocity is in world units per second.
type Velocity struct {
	DX, DY float64
}
