package executor

// Access declares what a parallel task touches. Keys are free-form names,
// normally a component or resource type name. The executor never looks
// inside the world; it only compares declarations.
type Access struct {
	Reads  []string
	Writes []string
	// Exclusive tasks conflict with every other task in the batch.
	Exclusive bool
}

// Conflicts reports whether a and b may not run at the same time.
func (a Access) Conflicts(b Access) bool {
	if a.Exclusive || b.Exclusive {
		return true
	}
	return overlaps(a.Writes, b.Writes) || overlaps(a.Writes, b.Reads) || overlaps(a.Reads, b.Writes)
}

func overlaps(x, y []string) bool {
	for _, k := range x {
		for _, j := range y {
			if k == j {
				return true
			}
		}
	}
	return false
}
