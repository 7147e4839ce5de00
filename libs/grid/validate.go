package grid

import "fmt"

// MaxRangeWeeks bounds the grid: ranges longer than this do not render.
const MaxRangeWeeks = 10

// ValidateDateRange checks that [startDate, endDate] is well-ordered and fits
// within the supported number of weeks. The returned error is a user-facing
// message; the grid simply stays blank until the range is corrected.
func ValidateDateRange(startDate, endDate string) error {
	days, err := DiffDays(startDate, endDate)
	if err != nil {
		return err
	}
	if days < 0 {
		return fmt.Errorf("end date %s is before start date %s", endDate, startDate)
	}
	if days+1 > MaxRangeWeeks*7 {
		return fmt.Errorf("date range spans more than %d weeks", MaxRangeWeeks)
	}
	return nil
}
