package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"shift-tracker-backend/internal/geofence"
	"shift-tracker-backend/internal/model"
)

func rangeLabel(inRange bool) string {
	if inRange {
		return color.New(color.FgGreen).Sprint("IN RANGE")
	}
	return color.New(color.FgRed).Sprint("OUT OF RANGE")
}

func formatStatus(w io.Writer, st Status) {
	if !st.IsTracking {
		fmt.Fprintln(w, "Not clocked in.")
		if st.ClockInTime != nil {
			fmt.Fprintf(w, "  Last clock-in: %s\n", st.ClockInTime.Format("2006-01-02 15:04"))
		}
		return
	}

	fmt.Fprintf(w, "Clocked in %s\n", color.New(color.FgCyan).Sprint(st.TrackingDate))
	if st.ClockInTime != nil {
		fmt.Fprintf(w, "  Since: %s\n", st.ClockInTime.Format("15:04"))
	}
	if st.NextFetchAt != nil {
		fmt.Fprintf(w, "  Next fetch: %s\n", st.NextFetchAt.Format("15:04:05"))
	}
	if st.LastEvaluation != nil {
		fix := st.LastEvaluation.Fix
		fmt.Fprintf(w, "  Last fix: %.6f, %.6f at %s %s\n",
			fix.Latitude, fix.Longitude, fix.Timestamp.Format("15:04"), rangeLabel(st.LastEvaluation.Result.InRange))
		if !st.LastEvaluation.Result.InRange {
			fmt.Fprintf(w, "  %s\n", st.LastEvaluation.Result.Describe())
		}
	}
	if st.BackgroundError != "" {
		fmt.Fprintf(w, "  Background fetch disabled: %s\n", st.BackgroundError)
	}
}

func formatHistory(w io.Writer, fixes []model.LocationFix, loc *time.Location) {
	if len(fixes) == 0 {
		fmt.Fprintln(w, "No locations recorded.")
		return
	}
	for i, f := range fixes {
		fmt.Fprintf(w, "%3d  %s  %11.6f %11.6f  %s\n",
			i+1, f.Timestamp.In(loc).Format("2006-01-02 15:04:05"), f.Latitude, f.Longitude, f.Source)
	}
}

func formatCheck(w io.Writer, check GeofenceCheck) {
	result := geofence.Result{InRange: check.InRange, DistanceMeters: check.DistanceMeters}
	fmt.Fprintf(w, "%s  %s\n", rangeLabel(check.InRange), result.Describe())
	if check.Site.Name != "" {
		fmt.Fprintf(w, "  Site: %s (radius %.0f m)\n", check.Site.Name, check.Site.RadiusMeters)
	}
}
