package availability

import (
	"sort"
	"time"

	"schedly/models"
)

// Pure interval math over half-open [start, end) blocks. No I/O.

// Merge sorts blocks by start and coalesces overlapping or adjacent ones.
// The result is pairwise disjoint and covers exactly the union of the input.
func Merge(blocks []models.BusyBlock) []models.BusyBlock {
	if len(blocks) == 0 {
		return nil
	}
	sorted := make([]models.BusyBlock, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []models.BusyBlock{sorted[0]}
	for _, b := range sorted[1:] {
		last := &merged[len(merged)-1]
		// Adjacency (last.End == b.Start) merges too.
		if !b.Start.After(last.End) {
			if b.End.After(last.End) {
				last.End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

// Overlaps reports whether the buffer-expanded slot
// [start-bufBefore, end+bufAfter) intersects any block. With zero buffers a
// block ending exactly at the slot start does not conflict.
func Overlaps(start, end time.Time, blocks []models.BusyBlock, bufBefore, bufAfter time.Duration) bool {
	expStart := start.Add(-bufBefore)
	expEnd := end.Add(bufAfter)
	for _, b := range blocks {
		if b.Start.Before(expEnd) && b.End.After(expStart) {
			return true
		}
	}
	return false
}

// EnumerateDay emits the candidate slots for one local date. Starts are
// placed at multiples of interval from each working-hours window start and a
// slot must end at or before the window end. Wall times that do not exist on
// a DST transition day are skipped; ambiguous ones resolve to the earlier
// instant (see ToInstant).
func EnumerateDay(year int, month time.Month, day int, hours []models.WorkingHours, duration, interval time.Duration, loc *time.Location) []models.Slot {
	var slots []models.Slot
	for _, wh := range hours {
		sh, sm, err := models.ParseWallTime(wh.Start)
		if err != nil {
			continue
		}
		eh, em, err := models.ParseWallTime(wh.End)
		if err != nil {
			continue
		}
		windowEnd, ok := ToInstant(year, month, day, eh, em, loc)
		if !ok {
			// The window end fell in a DST gap; close the window at the
			// first existing instant instead.
			windowEnd = time.Date(year, month, day, eh, em, 0, 0, loc)
		}

		for offset := time.Duration(0); ; offset += interval {
			wall := time.Duration(sh)*time.Hour + time.Duration(sm)*time.Minute + offset
			hh := int(wall / time.Hour)
			mm := int((wall % time.Hour) / time.Minute)
			if hh > 23 {
				break
			}
			start, ok := ToInstant(year, month, day, hh, mm, loc)
			if !ok {
				continue // nonexistent wall time on a spring-forward day
			}
			end := start.Add(duration)
			if end.After(windowEnd) {
				break
			}
			slots = append(slots, models.Slot{Start: start, End: end})
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots
}

// ClipToWindow trims blocks to [timeMin, timeMax) and drops empty remains.
func ClipToWindow(blocks []models.BusyBlock, timeMin, timeMax time.Time) []models.BusyBlock {
	var out []models.BusyBlock
	for _, b := range blocks {
		start, end := b.Start, b.End
		if start.Before(timeMin) {
			start = timeMin
		}
		if end.After(timeMax) {
			end = timeMax
		}
		if start.Before(end) {
			out = append(out, models.BusyBlock{Start: start, End: end, SourceCalendarID: b.SourceCalendarID})
		}
	}
	return out
}
