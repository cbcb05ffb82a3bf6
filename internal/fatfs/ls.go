package fatfs

import (
	"fmt"
	"sort"
)

// months gives the (non-standard) three-letter month abbreviations used
// by the original listing format — note "Fev" and "Set", not "Feb"/"Sep".
var months = [12]string{
	"Jan", "Fev", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Set", "Oct", "Nov", "Dec",
}

// RenderLs implements §4.6: collect, sort by name (byte-wise), and render
// each entry as "name, day-Mon-year, (DIR | size)". Sorting here is what
// makes swap-with-last compaction safe to use for storage: callers never
// observe storage order.
func RenderLs(entries []Entry) []string {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	lines := make([]string, len(sorted))
	for i, e := range sorted {
		date := fmt.Sprintf("%d-%s-%d", e.Day, months[e.Month-1], 1900+int(e.Year))
		if e.IsDir() {
			lines[i] = fmt.Sprintf("%s\t %s\tDIR", e.Name, date)
		} else {
			lines[i] = fmt.Sprintf("%s\t %s\t%d", e.Name, date, e.Size)
		}
	}
	return lines
}
