package service

import (
	"context"
	"log"

	"github.com/fruithappens/Coffeecue-sub003/internal/bus"
	"github.com/fruithappens/Coffeecue-sub003/internal/model"
)

// ProfileKey returns the per-station key holding identity configuration.
func ProfileKey(stationID string) string {
	return "station:" + stationID + ":profile"
}

// ProfileService reads and writes station identity values. Profiles are
// plain stored configuration, the chat layer re-reads them on demand.
type ProfileService struct {
	bus *bus.Bus
}

func NewProfileService(b *bus.Bus) *ProfileService {
	return &ProfileService{bus: b}
}

// Get returns the station's profile, or a named default when none is stored.
func (s *ProfileService) Get(ctx context.Context, stationID string) model.StationProfile {
	var p model.StationProfile
	ok, err := s.bus.Load(ctx, ProfileKey(stationID), &p)
	if err != nil {
		log.Printf("[Profile] load %s failed: %v", stationID, err)
	}
	if !ok || p.StationID == "" {
		return model.StationProfile{StationID: stationID, StationName: "Station " + stationID}
	}
	return p
}

// Set stores the station's profile.
func (s *ProfileService) Set(ctx context.Context, p model.StationProfile) error {
	return s.bus.Publish(ctx, ProfileKey(p.StationID), p)
}
