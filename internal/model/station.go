package model

// StationProfile holds the identity values a station stamps onto outgoing
// chat messages. Profiles live under their own per-station keys and are
// treated as external configuration.
type StationProfile struct {
	StationID   string `json:"station_id"`
	StationName string `json:"station_name"`
	BaristaName string `json:"barista_name,omitempty"`
}
