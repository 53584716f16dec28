package viewport

import (
	"sort"
	"time"

	"github.com/ft8view/ft8view-go/internal/bucket"
)

const hoursPerDay = 24

// foldDays rolls contiguous hourly entries up into UTC-day buckets. A day
// is included only when all 24 of its hours are materialized in the hour
// cache; partial days are silently dropped. The daily total is the offline
// sentinel only when every contributing hour is offline; otherwise offline
// hours contribute zero. SNR is the signal-count-weighted mean of the hours
// that carried signals.
func foldDays(hourly []bucket.Entry) []bucket.Entry {
	type acc struct {
		hours     int
		online    int
		total     int
		snrSum    float64
		countries map[string]int
	}

	days := make(map[int64]*acc)
	for _, h := range hourly {
		day := h.Epoch - h.Epoch%daySeconds
		a := days[day]
		if a == nil {
			a = &acc{countries: make(map[string]int)}
			days[day] = a
		}
		a.hours++
		if h.Offline() {
			continue
		}
		a.online++
		a.total += h.Total
		a.snrSum += h.SNR * float64(h.Total)
		for country, c := range h.Countries {
			a.countries[country] += c
		}
	}

	keys := make([]int64, 0, len(days))
	for day, a := range days {
		if a.hours == hoursPerDay {
			keys = append(keys, day)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]bucket.Entry, 0, len(keys))
	for _, day := range keys {
		a := days[day]
		e := bucket.Entry{
			Epoch: day,
			Label: time.Unix(day, 0).UTC().Format("2006-01-02"),
		}
		if a.online == 0 {
			e.Total = bucket.TotalOffline
		} else {
			e.Total = a.total
			if a.total > 0 {
				e.SNR = a.snrSum / float64(a.total)
				e.Countries = a.countries
			}
		}
		out = append(out, e)
	}
	return out
}
