package service

import (
	"slices"
	"sync/atomic"

	"evohome_gateway/internal/evohome"
	"evohome_gateway/internal/models"
)

// snapshot is never modified after it is published.
type snapshot struct {
	entries   []models.CacheEntry // sorted by system id
	locations []int
	loaded    bool
}

func (s *snapshot) index(systemID int) (int, bool) {
	return slices.BinarySearchFunc(s.entries, systemID, func(e models.CacheEntry, id int) int {
		return e.System.ID - id
	})
}

// SystemCache holds the control system topology and the latest status of each system.
// Writers build a new snapshot and publish it with a single pointer swap, so readers
// see either the previous or the next state, never a mix.
type SystemCache struct {
	snap atomic.Pointer[snapshot]
}

func NewSystemCache() *SystemCache {
	c := &SystemCache{}
	c.snap.Store(&snapshot{})
	return c
}

// RebuildTopology replaces every entry with the systems found in locations.
// Statuses are reset until the next ApplyStatus.
func (c *SystemCache) RebuildTopology(locations evohome.Locations) []models.CacheEntry {
	next := &snapshot{loaded: true}
	seen := make(map[int]struct{})
	for _, loc := range locations {
		if !slices.Contains(next.locations, loc.LocationInfo.LocationID) {
			next.locations = append(next.locations, loc.LocationInfo.LocationID)
		}
		for _, gw := range loc.Gateways {
			for _, sys := range gw.TemperatureControlSystems {
				if _, dup := seen[sys.SystemID]; dup {
					continue
				}
				seen[sys.SystemID] = struct{}{}
				next.entries = append(next.entries, models.CacheEntry{
					System: sys.Model(loc.LocationInfo, gw.GatewayInfo.GatewayID),
				})
			}
		}
	}
	slices.SortFunc(next.entries, func(a, b models.CacheEntry) int { return a.System.ID - b.System.ID })

	c.snap.Store(next)
	return slices.Clone(next.entries)
}

// ApplyStatus replaces the status of every known system present in statuses.
// Systems missing from the topology are dropped. Returns how many entries were updated.
func (c *SystemCache) ApplyStatus(statuses []evohome.LocationStatus) int {
	cur := c.snap.Load()
	next := &snapshot{
		entries:   slices.Clone(cur.entries),
		locations: cur.locations,
		loaded:    cur.loaded,
	}

	applied := 0
	for _, loc := range statuses {
		for _, gw := range loc.Gateways {
			for _, sys := range gw.TemperatureControlSystems {
				i, ok := next.index(sys.SystemID)
				if !ok {
					continue
				}
				st := sys.Model()
				next.entries[i].Status = &st
				applied++
			}
		}
	}

	c.snap.Store(next)
	return applied
}

// ControlSystems returns the current entries. The slice is a copy; statuses are shared
// read-only values.
func (c *SystemCache) ControlSystems() []models.CacheEntry {
	return slices.Clone(c.snap.Load().entries)
}

// ControlSystem looks up a single entry by system id.
func (c *SystemCache) ControlSystem(systemID int) (models.CacheEntry, bool) {
	s := c.snap.Load()
	i, ok := s.index(systemID)
	if !ok {
		return models.CacheEntry{}, false
	}
	return s.entries[i], true
}

// ZoneStatus returns the latest status of a zone. ok is false when the system or zone
// is unknown, or no status has been applied yet.
func (c *SystemCache) ZoneStatus(systemID, zoneID int) (models.ZoneStatus, bool) {
	e, ok := c.ControlSystem(systemID)
	if !ok || e.Status == nil {
		return models.ZoneStatus{}, false
	}
	for _, z := range e.Status.Zones {
		if z.ZoneID == zoneID {
			return z, true
		}
	}
	return models.ZoneStatus{}, false
}

// FindZone returns the system owning zoneID together with the zone metadata.
func (c *SystemCache) FindZone(zoneID int) (models.ControlSystem, models.Zone, bool) {
	for _, e := range c.snap.Load().entries {
		if z, ok := e.System.Zone(zoneID); ok {
			return e.System, z, true
		}
	}
	return models.ControlSystem{}, models.Zone{}, false
}

// LocationIDs lists the locations of the current topology.
func (c *SystemCache) LocationIDs() []int {
	return slices.Clone(c.snap.Load().locations)
}

// Loaded reports whether a topology has been built.
func (c *SystemCache) Loaded() bool {
	return c.snap.Load().loaded
}

// Clear drops topology and statuses.
func (c *SystemCache) Clear() {
	c.snap.Store(&snapshot{})
}
