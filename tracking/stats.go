package tracking

import (
	"fmt"
	"sync/atomic"
)

// Stats holds fixup statistics for a tracker. Counters are atomic so a
// metrics exporter may read them while the owning goroutine tracks entities.
type Stats struct {
	// ForeignKeyWrites is the number of foreign-key values written by fixup.
	ForeignKeyWrites atomic.Int64
	// ReferenceWrites is the number of single-valued navigations set or cleared.
	ReferenceWrites atomic.Int64
	// CollectionWrites is the number of collection additions and removals.
	CollectionWrites atomic.Int64
	// Orphans is the number of one-to-one dependents displaced from a principal.
	Orphans atomic.Int64
	// DelayedFixups is the number of foreign keys left pointing at an untracked principal.
	DelayedFixups atomic.Int64
	// Conflicts is the number of attach and reconcile calls rejected for conflicting linkage.
	Conflicts atomic.Int64
	// Attached is the number of entities that started being tracked.
	Attached atomic.Int64
	// Detached is the number of entities that stopped being tracked.
	Detached atomic.Int64
}

// Snapshot returns a snapshot of the current statistics.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		ForeignKeyWrites: s.ForeignKeyWrites.Load(),
		ReferenceWrites:  s.ReferenceWrites.Load(),
		CollectionWrites: s.CollectionWrites.Load(),
		Orphans:          s.Orphans.Load(),
		DelayedFixups:    s.DelayedFixups.Load(),
		Conflicts:        s.Conflicts.Load(),
		Attached:         s.Attached.Load(),
		Detached:         s.Detached.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *Stats) Reset() {
	s.ForeignKeyWrites.Store(0)
	s.ReferenceWrites.Store(0)
	s.CollectionWrites.Store(0)
	s.Orphans.Store(0)
	s.DelayedFixups.Store(0)
	s.Conflicts.Store(0)
	s.Attached.Store(0)
	s.Detached.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of fixup statistics.
type StatsSnapshot struct {
	ForeignKeyWrites int64
	ReferenceWrites  int64
	CollectionWrites int64
	Orphans          int64
	DelayedFixups    int64
	Conflicts        int64
	Attached         int64
	Detached         int64
}

// Mutations returns the total number of writes fixup applied to entities.
func (s StatsSnapshot) Mutations() int64 {
	return s.ForeignKeyWrites + s.ReferenceWrites + s.CollectionWrites
}

// Sub returns the difference between two snapshots.
func (s StatsSnapshot) Sub(o StatsSnapshot) StatsSnapshot {
	return StatsSnapshot{
		ForeignKeyWrites: s.ForeignKeyWrites - o.ForeignKeyWrites,
		ReferenceWrites:  s.ReferenceWrites - o.ReferenceWrites,
		CollectionWrites: s.CollectionWrites - o.CollectionWrites,
		Orphans:          s.Orphans - o.Orphans,
		DelayedFixups:    s.DelayedFixups - o.DelayedFixups,
		Conflicts:        s.Conflicts - o.Conflicts,
		Attached:         s.Attached - o.Attached,
		Detached:         s.Detached - o.Detached,
	}
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"fk=%d refs=%d collections=%d orphans=%d delayed=%d conflicts=%d attached=%d detached=%d",
		s.ForeignKeyWrites, s.ReferenceWrites, s.CollectionWrites, s.Orphans,
		s.DelayedFixups, s.Conflicts, s.Attached, s.Detached,
	)
}
