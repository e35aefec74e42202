// Package pathtable records which agent occupies which (cell,
// orientation, timestep) slot, and is the single source of truth the
// planner and coordinator consult for collision predicates.
package pathtable

import "github.com/elektrokombinacija/realtimemapf/internal/gridmap"

// Entry is one timestep of a committed path: the cell an agent
// occupies and the orientation it occupies it in.
type Entry struct {
	Location    gridmap.Cell
	Orientation gridmap.Orientation
}

// Path is an ordered sequence of Entries, one per timestep starting
// at timestep 0. A repeated Entry represents waiting in place.
type Path []Entry

// NoAgent is the sentinel stored in an unoccupied slot.
const NoAgent = -1

// MaxTimestep marks a goal cell nobody currently holds.
const MaxTimestep = int(^uint(0) >> 1)
