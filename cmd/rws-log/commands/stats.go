package commands

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rws-panel/rws-go/pkg/log"
)

// Stats summarizes a capture.
type Stats struct {
	Events     int
	First      time.Time
	Last       time.Time
	ByLayer    map[log.Layer]int
	ByCategory map[log.Category]int
	ByStatus   map[int]int

	// Responses counts HTTP responses with a measured round trip.
	Responses int
	TotalRTT  time.Duration
	MaxRTT    time.Duration

	// Pushes counts pushed changes per resource.
	Pushes map[string]int

	// Mastership tracks coordination transitions per domain.
	Mastership map[string]*DomainStats

	// Failures counts error events per failing operation.
	Failures map[string]int

	Sessions map[string]*SessionStats
}

// DomainStats holds mastership activity for one domain.
type DomainStats struct {
	Transitions int
	Last        string
}

// SessionStats holds activity for one client session.
type SessionStats struct {
	Controller string
	First      time.Time
	Last       time.Time
	Events     int
	Pushes     int
}

func newStats() *Stats {
	return &Stats{
		ByLayer:    make(map[log.Layer]int),
		ByCategory: make(map[log.Category]int),
		ByStatus:   make(map[int]int),
		Pushes:     make(map[string]int),
		Mastership: make(map[string]*DomainStats),
		Failures:   make(map[string]int),
		Sessions:   make(map[string]*SessionStats),
	}
}

func (s *Stats) add(e log.Event) {
	s.Events++
	if s.First.IsZero() || e.Timestamp.Before(s.First) {
		s.First = e.Timestamp
	}
	if e.Timestamp.After(s.Last) {
		s.Last = e.Timestamp
	}
	s.ByLayer[e.Layer]++
	s.ByCategory[e.Category]++

	sess := s.Sessions[e.SessionID]
	if sess == nil {
		sess = &SessionStats{First: e.Timestamp, Last: e.Timestamp}
		s.Sessions[e.SessionID] = sess
	}
	sess.Events++
	sess.First = minTime(sess.First, e.Timestamp)
	if e.Timestamp.After(sess.Last) {
		sess.Last = e.Timestamp
	}
	if sess.Controller == "" {
		sess.Controller = e.Controller
	}

	switch {
	case e.Request != nil:
		if e.Request.StatusCode != 0 {
			s.ByStatus[e.Request.StatusCode]++
		}
		if d := e.Request.Duration; d != nil {
			s.Responses++
			s.TotalRTT += *d
			s.MaxRTT = max(s.MaxRTT, *d)
		}
	case e.Push != nil:
		s.Pushes[e.Resource]++
		sess.Pushes++
	case e.StateChange != nil:
		if e.StateChange.Entity == log.StateEntityMastership {
			d := s.Mastership[e.StateChange.Name]
			if d == nil {
				d = &DomainStats{}
				s.Mastership[e.StateChange.Name] = d
			}
			d.Transitions++
			d.Last = e.StateChange.NewState
		}
	case e.Error != nil:
		op := e.Error.Context
		if op == "" {
			op = "(unknown)"
		}
		s.Failures[op]++
	}
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

// MeanRTT returns the average measured HTTP round trip.
func (s *Stats) MeanRTT() time.Duration {
	if s.Responses == 0 {
		return 0
	}
	return s.TotalRTT / time.Duration(s.Responses)
}

// CollectStats reads a whole capture and summarizes it.
func CollectStats(path string) (*Stats, error) {
	r, err := Selection{}.open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	stats := newStats()
	for event, err := range r.All() {
		if err != nil {
			return nil, fmt.Errorf("read capture: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

// RunStats prints a summary of a capture.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	return stats.print(w)
}

func (s *Stats) print(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "Capture")
	fmt.Fprintf(w, "  events\t%d\n", s.Events)
	if s.Events > 0 {
		fmt.Fprintf(w, "  span\t%s .. %s (%s)\n",
			s.First.UTC().Format(time.RFC3339), s.Last.UTC().Format(time.RFC3339),
			s.Last.Sub(s.First).Round(time.Millisecond))
		fmt.Fprintf(w, "  layers\t%s\n", countList(s.ByLayer, []log.Layer{log.LayerHTTP, log.LayerSubscription, log.LayerCoordination}))
		fmt.Fprintf(w, "  categories\t%s\n", countList(s.ByCategory, []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError}))
	}

	if len(s.ByStatus) > 0 || s.Responses > 0 {
		fmt.Fprintln(w, "\nHTTP")
		if s.Responses > 0 {
			fmt.Fprintf(w, "  round trip\tmean %s, max %s over %d responses\n",
				formatDuration(s.MeanRTT()), formatDuration(s.MaxRTT), s.Responses)
		}
		for _, code := range slices.Sorted(maps.Keys(s.ByStatus)) {
			fmt.Fprintf(w, "  %d\t%d\n", code, s.ByStatus[code])
		}
	}

	if len(s.Pushes) > 0 {
		fmt.Fprintln(w, "\nPushes")
		for _, res := range byCountDesc(s.Pushes) {
			fmt.Fprintf(w, "  %s\t%d\n", res, s.Pushes[res])
		}
	}

	if len(s.Mastership) > 0 {
		fmt.Fprintln(w, "\nMastership")
		for _, domain := range slices.Sorted(maps.Keys(s.Mastership)) {
			d := s.Mastership[domain]
			fmt.Fprintf(w, "  %s\t%d transitions, last %s\n", domain, d.Transitions, d.Last)
		}
	}

	if len(s.Failures) > 0 {
		fmt.Fprintln(w, "\nErrors")
		for _, op := range byCountDesc(s.Failures) {
			fmt.Fprintf(w, "  %s\t%d\n", op, s.Failures[op])
		}
	}

	fmt.Fprintf(w, "\nSessions (%d)\n", len(s.Sessions))
	ids := slices.SortedFunc(maps.Keys(s.Sessions), func(a, b string) int {
		return s.Sessions[a].First.Compare(s.Sessions[b].First)
	})
	for _, id := range ids {
		ss := s.Sessions[id]
		fmt.Fprintf(w, "  %s\t%d events, %d pushes, %s\t%s\n",
			shortSession(id), ss.Events, ss.Pushes, ss.Last.Sub(ss.First).Round(time.Millisecond), ss.Controller)
	}
	return w.Flush()
}

func countList[K comparable](counts map[K]int, order []K) string {
	var parts []string
	for _, k := range order {
		if n := counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%v %d", k, n))
		}
	}
	return strings.Join(parts, ", ")
}

// byCountDesc returns the keys of counts, most frequent first.
func byCountDesc(counts map[string]int) []string {
	return slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		return cmp.Or(cmp.Compare(counts[b], counts[a]), strings.Compare(a, b))
	})
}
