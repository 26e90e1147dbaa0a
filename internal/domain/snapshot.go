package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// SubjectSnapshot is the per-subject state the host publishes each frame.
// The zero value describes a valid subject outside every hazard zone.
type SubjectSnapshot struct {
	Subject    string   `json:"subject"`
	InZone     bool     `json:"in_zone"`
	Paused     bool     `json:"paused"`                // special animation, climbing, or in a vehicle
	Invalid    bool     `json:"invalid"`               // dead or otherwise ineligible
	TimeOfDay  *float64 `json:"time_of_day,omitempty"` // nil when the host does not report a day cycle
	GlobalTime float64  `json:"global_time"`
}

// ParseSubjectSnapshot decodes and validates a host snapshot.
func ParseSubjectSnapshot(data []byte) (SubjectSnapshot, error) {
	var s SubjectSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return SubjectSnapshot{}, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	s.Subject = strings.TrimSpace(s.Subject)
	if s.Subject == "" {
		return SubjectSnapshot{}, fmt.Errorf("%w: subject is required", ErrMalformedSnapshot)
	}
	if tod := s.TimeOfDay; tod != nil && (math.IsNaN(*tod) || *tod < 0 || *tod > 1) {
		return SubjectSnapshot{}, fmt.Errorf("%w: time_of_day %g outside [0,1]", ErrMalformedSnapshot, *tod)
	}
	if math.IsNaN(s.GlobalTime) || s.GlobalTime < 0 {
		return SubjectSnapshot{}, fmt.Errorf("%w: global_time %g must be non-negative", ErrMalformedSnapshot, s.GlobalTime)
	}
	return s, nil
}
