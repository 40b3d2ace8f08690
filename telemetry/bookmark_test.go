package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_FirstSpeciation(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if got := bd.Check(StepStats{Step: 0, Alive: 50, Species: 1, Nodes: 1}); hasBookmark(got, BookmarkFirstSpeciation) {
		t.Error("single node should not trigger first_speciation")
	}
	if got := bd.Check(StepStats{Step: 1, Alive: 50, Species: 2, Nodes: 2}); !hasBookmark(got, BookmarkFirstSpeciation) {
		t.Error("expected first_speciation bookmark")
	}
	if got := bd.Check(StepStats{Step: 2, Alive: 50, Species: 3, Nodes: 3}); hasBookmark(got, BookmarkFirstSpeciation) {
		t.Error("first_speciation should fire only once")
	}
}

func TestBookmarkDetector_Radiation(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(StepStats{Step: i, Alive: 100, Species: 2, Nodes: 2})
	}

	bookmarks := bd.Check(StepStats{Step: 5, Alive: 100, Species: 8, Nodes: 8})
	if !hasBookmark(bookmarks, BookmarkRadiation) {
		t.Error("expected radiation bookmark")
	}
}

func TestBookmarkDetector_NoRadiationOnSmallRise(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(StepStats{Step: i, Alive: 100, Species: 1, Nodes: 1})
	}

	// Doubles the average but only by two species.
	bookmarks := bd.Check(StepStats{Step: 5, Alive: 100, Species: 3, Nodes: 3})
	if hasBookmark(bookmarks, BookmarkRadiation) {
		t.Error("rise of two species should not trigger radiation")
	}
}

func TestBookmarkDetector_PopulationCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(StepStats{Step: i, Alive: 200, Species: 1, Nodes: 1})
	}

	bookmarks := bd.Check(StepStats{Step: 5, Alive: 100, Species: 1, Nodes: 1})
	if !hasBookmark(bookmarks, BookmarkPopulationCrash) {
		t.Error("expected population_crash bookmark")
	}

	// Still low: no repeat until recovery.
	bookmarks = bd.Check(StepStats{Step: 6, Alive: 40, Species: 1, Nodes: 1})
	if hasBookmark(bookmarks, BookmarkPopulationCrash) {
		t.Error("population_crash should not repeat before recovery")
	}
}

func TestBookmarkDetector_RefugeAndExtinction(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bd.Check(StepStats{Step: 0, Alive: 30, Lowlands: 5, Species: 1, Nodes: 1})

	bookmarks := bd.Check(StepStats{Step: 1, Alive: 0, Lowlands: 5, Species: 1, Nodes: 1})
	if !hasBookmark(bookmarks, BookmarkLowlandRefuge) {
		t.Error("expected lowland_refuge bookmark")
	}
	if hasBookmark(bookmarks, BookmarkExtinction) {
		t.Error("lowland survivors should prevent extinction bookmark")
	}

	bookmarks = bd.Check(StepStats{Step: 2, Alive: 0, Lowlands: 0, Species: 0, Nodes: 1})
	if !hasBookmark(bookmarks, BookmarkExtinction) {
		t.Error("expected extinction bookmark")
	}
	if hasBookmark(bookmarks, BookmarkLowlandRefuge) {
		t.Error("lowland_refuge should fire only once")
	}
}
