package mirror

import "time"

// Criteria are independently toggleable filter predicates, combined
// with a logical AND. The zero value filters nothing.
type Criteria struct {
	// MaxAgeHours keeps only mirrors synchronised strictly less than
	// this many hours ago. Mirrors without a last_sync are dropped
	// whenever a cutoff is set.
	MaxAgeHours *float64

	// RequireIsos, RequireIPv4 and RequireIPv6 keep only mirrors whose
	// flag is present and true.
	RequireIsos bool
	RequireIPv4 bool
	RequireIPv6 bool

	// Protocols, when non-empty, keeps only mirrors using one of the
	// listed protocols.
	Protocols []Protocol
}

// Filter returns a new list holding the subset of mirrors that satisfy
// every active criterion. Mirrors are never modified, only dropped.
func (l List) Filter(c Criteria) List {
	ml := l.Mirrors
	if c.MaxAgeHours != nil {
		ml = retain(ml, func(m Mirror) bool {
			age := m.Age()
			if age == nil {
				return false
			}
			return ageHours(*age) < *c.MaxAgeHours
		})
	}
	if c.RequireIsos {
		ml = retain(ml, func(m Mirror) bool { return m.Isos != nil && *m.Isos })
	}
	if c.RequireIPv4 {
		ml = retain(ml, func(m Mirror) bool { return m.IPv4 != nil && *m.IPv4 })
	}
	if c.RequireIPv6 {
		ml = retain(ml, func(m Mirror) bool { return m.IPv6 != nil && *m.IPv6 })
	}
	if len(c.Protocols) > 0 {
		ml = retain(ml, func(m Mirror) bool {
			for _, p := range c.Protocols {
				if m.Protocol == p {
					return true
				}
			}
			return false
		})
	}
	return List{Mirrors: ml, Source: l.Source}
}

// ageHours converts an age to hours as whole-hours + whole-minutes/60,
// both truncated toward zero. Kept in this exact form: for a mirror
// synchronised in the near future the result is a small negative
// number, which must pass any non-negative cutoff.
func ageHours(d time.Duration) float64 {
	hours := int64(d / time.Hour)
	minutes := int64(d / time.Minute)
	return float64(hours) + float64(minutes)/60.0
}

func retain(ml []Mirror, keep func(Mirror) bool) []Mirror {
	out := make([]Mirror, 0, len(ml))
	for _, m := range ml {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
