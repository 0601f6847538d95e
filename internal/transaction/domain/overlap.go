package domain

import "time"

// PeriodsOverlap reports whether [s1,e1) and [s2,e2) intersect. Half-open
// semantics: adjacent periods sharing an exact boundary do not overlap. A nil
// end collapses to its start, so an open-ended period behaves as a point in
// time and only collides with a period covering that exact instant.
func PeriodsOverlap(s1 time.Time, e1 *time.Time, s2 time.Time, e2 *time.Time) bool {
	end1 := s1
	if e1 != nil {
		end1 = *e1
	}
	end2 := s2
	if e2 != nil {
		end2 = *e2
	}

	// Point-in-time periods have zero width; treat them as closed at their
	// instant so two identical open-ended starts still collide.
	if !s1.Before(end1) {
		end1 = s1.Add(time.Nanosecond)
	}
	if !s2.Before(end2) {
		end2 = s2.Add(time.Nanosecond)
	}

	return s1.Before(end2) && s2.Before(end1)
}
