package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFirstSpeciation BookmarkType = "first_speciation"
	BookmarkRadiation       BookmarkType = "radiation"
	BookmarkPopulationCrash BookmarkType = "population_crash"
	BookmarkLowlandRefuge   BookmarkType = "lowland_refuge"
	BookmarkExtinction      BookmarkType = "extinction"
)

// Bookmark marks a notable moment in a run.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Step        int          `csv:"step"`
	Time        float64      `csv:"time_myr"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark at debug level.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	logger.Debug("bookmark",
		"type", string(b.Type),
		"step", b.Step,
		"time_myr", b.Time,
		"description", b.Description,
	)
}

// BookmarkDetector watches the step series for notable moments.
type BookmarkDetector struct {
	history     []StepStats
	historySize int
	historyIdx  int
	historyFull bool

	recentPeak int  // peak mountain population since the last crash
	crashed    bool // a crash was reported and has not recovered
	speciated  bool
	refuge     bool
	extinct    bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]StepStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest step and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats StepStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkFirstSpeciation(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkRadiation(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkPopulationCrash(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkLowlandRefuge(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkExtinction(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	if stats.Alive > bd.recentPeak {
		bd.recentPeak = stats.Alive
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats StepStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []StepStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkFirstSpeciation(stats StepStats) *Bookmark {
	if bd.speciated || stats.Nodes < 2 {
		return nil
	}
	bd.speciated = true
	return &Bookmark{
		Type:        BookmarkFirstSpeciation,
		Step:        stats.Step,
		Time:        stats.Time,
		Description: fmt.Sprintf("first new lineage recorded (%d nodes)", stats.Nodes),
	}
}

// checkRadiation fires when living species exceed twice the rolling
// average and the rise is at least three species.
func (bd *BookmarkDetector) checkRadiation(stats StepStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Species
	}
	avg := float64(total) / float64(len(history))

	if float64(stats.Species) > 2*avg && float64(stats.Species)-avg >= 3 {
		return &Bookmark{
			Type:        BookmarkRadiation,
			Step:        stats.Step,
			Time:        stats.Time,
			Description: fmt.Sprintf("living species %d vs rolling avg %.1f", stats.Species, avg),
		}
	}
	return nil
}

// checkPopulationCrash fires once when the mountain population drops more
// than 30% below its recent peak, and re-arms after recovery.
func (bd *BookmarkDetector) checkPopulationCrash(stats StepStats) *Bookmark {
	if bd.recentPeak < 10 {
		return nil
	}
	threshold := int(float64(bd.recentPeak) * 0.7)

	if bd.crashed {
		if stats.Alive >= threshold {
			bd.crashed = false
		}
		return nil
	}
	if stats.Alive < threshold {
		bd.crashed = true
		peak := bd.recentPeak
		bd.recentPeak = stats.Alive
		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Step:        stats.Step,
			Time:        stats.Time,
			Description: fmt.Sprintf("mountain population fell from %d to %d", peak, stats.Alive),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkLowlandRefuge(stats StepStats) *Bookmark {
	if bd.refuge || stats.Alive > 0 || stats.Lowlands == 0 {
		return nil
	}
	bd.refuge = true
	return &Bookmark{
		Type:        BookmarkLowlandRefuge,
		Step:        stats.Step,
		Time:        stats.Time,
		Description: fmt.Sprintf("mountain empty, %d survive in the lowlands", stats.Lowlands),
	}
}

func (bd *BookmarkDetector) checkExtinction(stats StepStats) *Bookmark {
	if bd.extinct || stats.Alive+stats.Lowlands > 0 {
		return nil
	}
	bd.extinct = true
	return &Bookmark{
		Type:        BookmarkExtinction,
		Step:        stats.Step,
		Time:        stats.Time,
		Description: "no salamanders remain",
	}
}
