package usecases

import (
	"math"

	"github.com/samirrijal/bluebikes/internal/core/domain"
)

// Metric names accepted by Bucketize callers.
const (
	MetricDistance = "distance"
	MetricSpeed    = "speed"
)

// DefaultHistogramBins is the bucket count used for the distribution charts.
const DefaultHistogramBins = 100

// ExtractDistributions collects the distances and speeds of resolved trips,
// in trip order.
func ExtractDistributions(trips []domain.Trip) domain.Distributions {
	var d domain.Distributions
	for i := range trips {
		if !trips[i].Resolved() {
			continue
		}
		d.Distances = append(d.Distances, *trips[i].Dist)
		d.Speeds = append(d.Speeds, *trips[i].MPH)
	}
	return d
}

// CountWeekdays counts trips ending at station by the weekday they started,
// in canonical weekday order. Unrecognised day names are ignored.
func CountWeekdays(trips []domain.Trip, station string) domain.WeekdayReport {
	counts := make(map[string]int, len(domain.Weekdays))
	for _, day := range domain.Weekdays {
		counts[day] = 0
	}

	for i := range trips {
		if trips[i].EndStation != station {
			continue
		}
		if _, ok := counts[trips[i].StartDayName]; ok {
			counts[trips[i].StartDayName]++
		}
	}

	report := domain.WeekdayReport{Station: station, Counts: make([]domain.WeekdayCount, 0, len(domain.Weekdays))}
	for _, day := range domain.Weekdays {
		report.Counts = append(report.Counts, domain.WeekdayCount{Day: day, Count: counts[day]})
	}
	return report
}

// Bucketize splits values into bins equal-width buckets between their min and
// max. The last bucket includes the max. Non-finite values are skipped and
// counted in Histogram.Skipped.
func Bucketize(metric string, values []float64, bins int) domain.Histogram {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	h := domain.Histogram{Metric: metric}

	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			h.Skipped++
			continue
		}
		finite = append(finite, v)
	}
	if len(finite) == 0 {
		return h
	}

	h.Min, h.Max = finite[0], finite[0]
	for _, v := range finite[1:] {
		h.Min = math.Min(h.Min, v)
		h.Max = math.Max(h.Max, v)
	}
	h.Count = len(finite)

	width := (h.Max - h.Min) / float64(bins)
	h.Bins = make([]domain.Bin, bins)
	for i := range h.Bins {
		h.Bins[i].Low = h.Min + float64(i)*width
		h.Bins[i].High = h.Min + float64(i+1)*width
	}
	h.Bins[bins-1].High = h.Max

	for _, v := range finite {
		idx := bins - 1
		if width > 0 {
			idx = int((v - h.Min) / width)
			if idx >= bins {
				idx = bins - 1
			}
		}
		h.Bins[idx].Count++
	}
	return h
}
