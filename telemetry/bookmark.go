package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFirstHalt   BookmarkType = "first_halt"
	BookmarkHalfArrived BookmarkType = "half_arrived"
	BookmarkSettled     BookmarkType = "settled"
	BookmarkAllHalted   BookmarkType = "all_halted"
	BookmarkStalled     BookmarkType = "stalled"
)

// Bookmark marks a notable moment of a run.
type Bookmark struct {
	RunID       string       `csv:"run_id"`
	Type        BookmarkType `csv:"type"`
	Tick        int64        `csv:"tick"`
	SimTimeSec  float64      `csv:"sim_time"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"sim_time", b.SimTimeSec,
		"description", b.Description,
	)
}

// BookmarkDetector detects milestones from consecutive window stats. Each
// milestone fires once until Reset; a stall fires again only after progress
// resumes.
type BookmarkDetector struct {
	tolerance float64

	// Rolling history of mean goal distance (circular buffer)
	history     []float64
	historyIdx  int
	historyFull bool

	fired   map[BookmarkType]bool
	stalled bool
}

// NewBookmarkDetector creates a detector. tolerance is the arrival distance;
// historySize is how many windows without progress count as a stall.
func NewBookmarkDetector(tolerance float64, historySize int) *BookmarkDetector {
	if historySize < 2 {
		historySize = 2
	}
	return &BookmarkDetector{
		tolerance: tolerance,
		history:   make([]float64, historySize),
		fired:     make(map[BookmarkType]bool),
	}
}

// Reset re-arms every milestone, e.g. after the agents were given new targets.
func (bd *BookmarkDetector) Reset() {
	clear(bd.fired)
	bd.historyIdx = 0
	bd.historyFull = false
	bd.stalled = false
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(s WindowStats) []Bookmark {
	var out []Bookmark
	mark := func(t BookmarkType, format string, args ...any) {
		if bd.fired[t] {
			return
		}
		bd.fired[t] = true
		out = append(out, Bookmark{
			RunID:       s.RunID,
			Type:        t,
			Tick:        s.WindowEndTick,
			SimTimeSec:  s.SimTimeSec,
			Description: fmt.Sprintf(format, args...),
		})
	}

	if s.Halted > 0 {
		mark(BookmarkFirstHalt, "%d agents on the floor", s.Halted)
	}
	if s.Active > 0 && s.GoalDistP50 <= bd.tolerance {
		mark(BookmarkHalfArrived, "median goal distance %.3f", s.GoalDistP50)
	}
	if s.Active > 0 && s.Settled {
		mark(BookmarkSettled, "max goal distance %.3f", s.GoalDistMax)
	}
	if s.Active == 0 && s.Halted > 0 {
		mark(BookmarkAllHalted, "all %d agents halted", s.Halted)
	}

	if b, ok := bd.checkStall(s); ok {
		out = append(out, b)
	}
	return out
}

// checkStall compares the mean goal distance with the oldest value in the
// history; less than 1% improvement over the whole history is a stall.
func (bd *BookmarkDetector) checkStall(s WindowStats) (Bookmark, bool) {
	oldest := bd.history[bd.historyIdx]
	full := bd.historyFull

	bd.history[bd.historyIdx] = s.GoalDistMean
	bd.historyIdx = (bd.historyIdx + 1) % len(bd.history)
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}

	if !full || s.Active == 0 || s.Settled {
		bd.stalled = false
		return Bookmark{}, false
	}

	progressing := s.GoalDistMean < oldest*0.99
	if progressing {
		bd.stalled = false
		return Bookmark{}, false
	}
	if bd.stalled {
		return Bookmark{}, false
	}
	bd.stalled = true
	return Bookmark{
		RunID:      s.RunID,
		Type:       BookmarkStalled,
		Tick:       s.WindowEndTick,
		SimTimeSec: s.SimTimeSec,
		Description: fmt.Sprintf("mean goal distance %.3f, was %.3f %d windows ago",
			s.GoalDistMean, oldest, len(bd.history)),
	}, true
}
