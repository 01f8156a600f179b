package mirror

import (
	"math"
	"sort"
	"time"
)

// Sort reorders the list in place by the given key. The sort is stable:
// mirrors that compare equal keep their original relative order, so
// output is deterministic even when keys are missing or NaN.
func (l *List) Sort(key SortKey) {
	ml := l.Mirrors
	switch key {
	case SortAge:
		// A mirror that never synchronised sorts as the earliest
		// possible timestamp, i.e. first.
		sort.SliceStable(ml, func(i, j int) bool {
			return lastSyncOrZero(ml[i]).Before(lastSyncOrZero(ml[j]))
		})
	case SortRate:
		// Descending. Missing and NaN rates sort last; two such
		// mirrors keep their original order.
		sort.SliceStable(ml, func(i, j int) bool {
			ri, iok := measuredRate(ml[i])
			rj, jok := measuredRate(ml[j])
			if iok && jok {
				return ri > rj
			}
			return iok && !jok
		})
	case SortCountry:
		sort.SliceStable(ml, func(i, j int) bool {
			return countryOrEmpty(ml[i]) < countryOrEmpty(ml[j])
		})
	case SortScore:
		sort.SliceStable(ml, func(i, j int) bool {
			return roundedOrInf(ml[i].Score) < roundedOrInf(ml[j].Score)
		})
	case SortDelay:
		sort.SliceStable(ml, func(i, j int) bool {
			return roundedOrInf(ml[i].Delay) < roundedOrInf(ml[j].Delay)
		})
	}
}

func lastSyncOrZero(m Mirror) time.Time {
	if m.LastSync == nil {
		return time.Time{}
	}
	return *m.LastSync
}

// measuredRate reports the download rate and whether it is a usable
// real number. NaN (zero-byte transfer) counts as unusable so that
// comparisons stay total.
func measuredRate(m Mirror) (float64, bool) {
	if m.DownloadRate == nil || math.IsNaN(*m.DownloadRate) {
		return 0, false
	}
	return *m.DownloadRate, true
}

func countryOrEmpty(m Mirror) string {
	if m.Country == nil {
		return ""
	}
	return *m.Country
}

// roundedOrInf maps a missing score or delay to +Inf so it sorts after
// every real value.
func roundedOrInf(v *float64) float64 {
	if v == nil {
		return math.Inf(1)
	}
	return math.Round(*v)
}
