package render

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/samirrijal/bluebikes/internal/core/domain"
)

// TextReporter prints the weekday report, one line per day.
type TextReporter struct {
	w io.Writer
}

// NewTextReporter creates a reporter writing to w.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

// ReportWeekdays writes:
//
//	Number of trips ending at <station>:
//	Sunday: N
//	...
func (r *TextReporter) ReportWeekdays(ctx context.Context, report domain.WeekdayReport) error {
	bw := bufio.NewWriter(r.w)
	fmt.Fprintf(bw, "Number of trips ending at %s:\n", report.Station)
	for _, c := range report.Counts {
		fmt.Fprintf(bw, "%s: %d\n", c.Day, c.Count)
	}
	return bw.Flush()
}
