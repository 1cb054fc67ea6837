package service

import (
	"evohome_gateway/internal/models"
)

// MonitoringService is the read side of the cache. All reads are snapshot reads.
type MonitoringService struct {
	cache *SystemCache
}

func NewMonitoringService(cache *SystemCache) *MonitoringService {
	return &MonitoringService{cache: cache}
}

func (s *MonitoringService) ControlSystems() []models.CacheEntry {
	return s.cache.ControlSystems()
}

func (s *MonitoringService) ControlSystem(systemID int) (models.CacheEntry, bool) {
	return s.cache.ControlSystem(systemID)
}

// ZoneStatus returns false until the first successful poll, or for unknown ids.
func (s *MonitoringService) ZoneStatus(systemID, zoneID int) (models.ZoneStatus, bool) {
	return s.cache.ZoneStatus(systemID, zoneID)
}
