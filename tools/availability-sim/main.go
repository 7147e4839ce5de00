package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/agreedtime/libs/grid"
	"github.com/md-rashed-zaman/agreedtime/libs/undo"
)

// simResolver maps pointer coordinates onto a week grid: one column per day
// starting at startDate, one row per slot starting at startMinute.
type simResolver struct {
	startDate   string
	startMinute int
	slotMinutes int
	cellSize    float64
}

func (r simResolver) CellAt(x, y float64) (grid.CellKey, bool) {
	if x < 0 || y < 0 {
		return grid.CellKey{}, false
	}
	col := int(x / r.cellSize)
	row := int(y / r.cellSize)
	date, err := grid.AddDays(r.startDate, col)
	if err != nil {
		return grid.CellKey{}, false
	}
	return grid.CellKey{
		Date:   date,
		Minute: r.startMinute + row*r.slotMinutes,
	}, true
}

func main() {
	var (
		baseURL     = flag.String("base-url", getenv("BASE_URL", ""), "event service base url; empty prints the payload instead of posting")
		startDate   = flag.String("start-date", "2025-12-08", "first day of the grid (YYYY-MM-DD)")
		days        = flag.Int("days", 14, "number of day columns")
		name        = flag.String("name", "sim", "participant name")
		timeZone    = flag.String("time-zone", "Asia/Seoul", "IANA zone the grid is drawn in")
		slotMinutes = flag.Int("slot-minutes", 60, "slot duration in minutes")
	)
	flag.Parse()

	loc, err := time.LoadLocation(*timeZone)
	if err != nil {
		fatal(err.Error())
	}

	resolver := simResolver{startDate: *startDate, startMinute: 9 * 60, slotMinutes: *slotMinutes, cellSize: 40}
	history := undo.New(grid.NewCellSet())

	sel := grid.NewSelection(nil, grid.SelectionConfig{
		Selectable: func(grid.CellKey) bool { return true },
		Resolver:   resolver,
		OnDragStart: func(before grid.CellSet) {
			history.Push(func(grid.CellSet) grid.CellSet { return before })
		},
	})
	cellAt := func(x, y float64) grid.CellKey {
		key, ok := resolver.CellAt(x, y)
		if !ok {
			fatal(fmt.Sprintf("no cell at (%v, %v)", x, y))
		}
		return key
	}

	// Mouse drag down the first three morning slots on day one.
	sel.PointerDown(cellAt(0, 0))
	sel.PointerEnter(cellAt(0, 40))
	sel.PointerEnter(cellAt(0, 80))
	sel.PointerUp()
	history.Set(func(grid.CellSet) grid.CellSet { return sel.Cells() })

	// Touch long-press on day two, then drag down one row.
	sel.TouchStart(40, 0)
	time.Sleep(600 * time.Millisecond)
	sel.TouchMove(40, 40)
	sel.TouchEnd()
	history.Set(func(grid.CellSet) grid.CellSet { return sel.Cells() })

	// Second thoughts about day two: undo, then redo to restore it.
	history.Undo()
	sel.Replace(history.Present())
	history.Redo()
	sel.Replace(history.Present())

	// Copy the first week's pattern across the rest of the range.
	endDate, err := grid.AddDays(*startDate, *days-1)
	if err != nil {
		fatal(err.Error())
	}
	merged, err := grid.MergeWeekPattern(sel.Cells(), *startDate, endDate,
		resolver.startMinute, resolver.startMinute+8*60, *slotMinutes)
	if err != nil {
		fatal(err.Error())
	}
	cells := merged.Cells
	fmt.Printf("pattern week1=%v added=%d cells=%d\n", merged.HasWeek1Pattern, merged.Added, cells.Len())

	if err := renderGrid(cells, resolver, *startDate, endDate, loc); err != nil {
		fatal(err.Error())
	}

	ranges := grid.CellsToRanges(cells, *slotMinutes, loc)
	fmt.Printf("encoded %d ranges\n", len(ranges))
	for _, r := range ranges {
		fmt.Printf("  %s .. %s\n", r.StartAt.Format(time.RFC3339), r.EndAt.Format(time.RFC3339))
	}

	if strings.TrimSpace(*baseURL) == "" {
		payload, _ := json.MarshalIndent(map[string]any{
			"participant_name": *name,
			"availabilities":   ranges,
		}, "", "  ")
		fmt.Println(string(payload))
		return
	}

	publicToken, err := createEvent(*baseURL, *name, *timeZone, *slotMinutes, ranges)
	if err != nil {
		fatal(err.Error())
	}
	fmt.Printf("event created public_token=%s\n", publicToken)

	token, err := submitAvailability(*baseURL, publicToken, *name+"-guest", ranges)
	if err != nil {
		fatal(err.Error())
	}
	fmt.Printf("availability submitted participant_token=%s\n", token)
}

// renderGrid prints the selection as the UI would draw it: full weeks from
// the Sunday before startDate, one column per day, one row per slot.
func renderGrid(cells grid.CellSet, r simResolver, startDate, endDate string, loc *time.Location) error {
	gridStart, err := grid.FirstSunday(startDate)
	if err != nil {
		return err
	}
	gridEnd, err := grid.LastSaturday(endDate)
	if err != nil {
		return err
	}
	days, err := grid.DiffDays(gridStart, gridEnd)
	if err != nil {
		return err
	}
	if err := grid.ValidateDateRange(gridStart, gridEnd); err != nil {
		return err
	}

	fmt.Printf("grid %s..%s %s\n", gridStart, gridEnd, grid.TimezoneOffsetString(time.Now().In(loc)))
	rows := 8
	for row := 0; row < rows; row++ {
		minute := r.startMinute + row*r.slotMinutes
		fmt.Printf("%8s |", grid.FormatMinimalTime(float64(minute)/60))
		for d := 0; d <= days; d++ {
			date, err := grid.AddDays(gridStart, d)
			if err != nil {
				return err
			}
			mark := "."
			if cells.Has(grid.CellKey{Date: date, Minute: minute}) {
				mark = "#"
			}
			fmt.Print(mark)
		}
		fmt.Println()
	}
	return nil
}

func createEvent(baseURL, organizer, timeZone string, slotMinutes int, slots []grid.TimeRange) (string, error) {
	body, err := json.Marshal(map[string]any{
		"title":          "simulated session",
		"organizer_name": organizer,
		"time_zone":      timeZone,
		"slot_duration":  slotMinutes,
		"time_slots":     slots,
	})
	if err != nil {
		return "", err
	}
	var resp struct {
		PublicToken string `json:"public_token"`
	}
	if err := post(baseURL+"/api/events", body, &resp); err != nil {
		return "", err
	}
	return resp.PublicToken, nil
}

func submitAvailability(baseURL, publicToken, name string, ranges []grid.TimeRange) (string, error) {
	body, err := json.Marshal(map[string]any{
		"participant_name": name,
		"availabilities":   ranges,
	})
	if err != nil {
		return "", err
	}
	var resp struct {
		ParticipantToken string `json:"participant_token"`
	}
	if err := post(baseURL+"/api/events/"+publicToken+"/availability", body, &resp); err != nil {
		return "", err
	}
	return resp.ParticipantToken, nil
}

func post(url string, body []byte, out any) error {
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("POST %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "error: "+msg)
	os.Exit(1)
}
