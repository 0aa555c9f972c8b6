package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/ritzau/mutual-graph/pkg/model"
	"github.com/ritzau/mutual-graph/pkg/session"
)

// TopConnected is the number of best connected people listed in a summary.
const TopConnected = 5

// PrintSummary prints a nicely formatted merge report with colors
func PrintSummary(w io.Writer, s *session.Session) {
	// Color definitions
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "Mutual Graph - Merge Summary")
	bold.Fprintln(w, "============================")

	fmt.Fprintf(w, "Sources: %d\n", len(s.Sources))
	for _, src := range s.Sources {
		marker := ""
		if s.Roots.Has(src.Base) {
			marker = green.Sprint(" (origin)")
		}
		cyan.Fprintf(w, "  %s", src.File)
		fmt.Fprintf(w, ": %d record(s)%s\n", len(src.Order), marker)
	}
	fmt.Fprintf(w, "Merged records: %d\n", s.Canonical.Len())
	fmt.Fprintln(w)

	stats := s.Graph.Stats()
	if stats.Dangling > 0 {
		yellow.Fprintf(w, "Dangling references: %d (no record, not drawn)\n", stats.Dangling)
	}
	if stats.SelfLoops > 0 {
		yellow.Fprintf(w, "Self references: %d\n", stats.SelfLoops)
	}
	if s.HideLeaves {
		if len(s.Removed) == 0 {
			fmt.Fprintln(w, "Hidden leaves: 0")
		} else {
			yellow.Fprintf(w, "Hidden leaves: %d (only connected to an origin)\n", len(s.Removed))
		}
	}

	if top := topConnected(s.Graph.Nodes(), TopConnected); len(top) > 0 {
		bold.Fprintln(w, "Most connected:")
		for _, n := range top {
			fmt.Fprintf(w, "  %-24s %d\n", n.Label, n.Degree)
		}
		fmt.Fprintln(w)
	}

	green.Fprintln(w, s.Stats())
}

// topConnected returns up to n nodes with the highest degree. Ties keep node
// order.
func topConnected(nodes []model.Node, n int) []model.Node {
	sorted := make([]model.Node, 0, len(nodes))
	for _, node := range nodes {
		if node.Degree > 0 {
			sorted = append(sorted, node)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Degree > sorted[j].Degree
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// PrintError prints a failed load in red.
func PrintError(w io.Writer, err error) {
	color.New(color.FgRed, color.Bold).Fprintf(w, "Error: %v\n", err)
}
