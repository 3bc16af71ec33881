// validate.go
// Range checks enforced before writes. The store itself enforces nothing; a
// direct write bypassing the API can violate any of these.

package models

// ValidateCoordinates checks latitude/longitude against the WGS84 ranges the
// map requires. Nodes outside these ranges would be silently invisible on
// the dashboard map, so registration rejects them outright.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return &ValidationError{Field: "latitude", Reason: "must be within [-90, 90]"}
	}
	if lon < -180 || lon > 180 {
		return &ValidationError{Field: "longitude", Reason: "must be within [-180, 180]"}
	}
	return nil
}

// ValidateSettings checks the configurable ranges before a settings save.
func ValidateSettings(s *Settings) error {
	if s.System.UpdateIntervalSeconds < 5 || s.System.UpdateIntervalSeconds > 3600 {
		return &ValidationError{Field: "system.update_interval_seconds", Reason: "must be within [5, 3600]"}
	}
	if s.System.RetentionDays < 1 || s.System.RetentionDays > 365 {
		return &ValidationError{Field: "system.retention_days", Reason: "must be within [1, 365]"}
	}
	rules := map[string]ThresholdRule{
		"temperature": s.Thresholds.Temperature,
		"pressure":    s.Thresholds.Pressure,
		"humidity":    s.Thresholds.Humidity,
		"rssi":        s.Thresholds.RSSI,
	}
	for name, rule := range rules {
		if rule.WindowMinutes < 1 || rule.WindowMinutes > 1440 {
			return &ValidationError{Field: "thresholds." + name + ".window_minutes", Reason: "must be within [1, 1440]"}
		}
		if !ValidSeverity(rule.Severity) {
			return &ValidationError{Field: "thresholds." + name + ".severity", Reason: "must be warning or critical"}
		}
	}
	return nil
}
