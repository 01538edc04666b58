package main

import (
	"math"
	"slices"
	"testing"

	"github.com/samber/lo"
)

// These tests validate the shipped data/notes.json, not the loader logic.

func loadShippedCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := loadCatalog("data/notes.json")
	if err != nil {
		t.Fatalf("failed to load data/notes.json: %v", err)
	}
	return cat
}

func TestShippedCatalogShape(t *testing.T) {
	cat := loadShippedCatalog(t)
	if len(cat.Notes) != 13 {
		t.Errorf("catalog has %d notes, want 13 (chromatic C4..C5)", len(cat.Notes))
	}

	whites := lo.CountBy(cat.Notes, func(n Note) bool { return n.Class == NoteClassWhite })
	blacks := lo.CountBy(cat.Notes, func(n Note) bool { return n.Class == NoteClassBlack })
	if whites != 8 || blacks != 5 {
		t.Errorf("got %d white / %d black keys, want 8 / 5", whites, blacks)
	}
}

func TestShippedCatalogEqualTemperament(t *testing.T) {
	cat := loadShippedCatalog(t)
	// A4 is rank 9 in a C4-rooted chromatic octave.
	for _, n := range cat.Notes {
		want := 440 * math.Pow(2, float64(n.Rank-9)/12)
		if math.Abs(n.Frequency-want)/want > 0.001 {
			t.Errorf("note %s frequency %v deviates from equal temperament %v", n.ID, n.Frequency, want)
		}
	}
}

func TestShippedCatalogTierChain(t *testing.T) {
	cat := loadShippedCatalog(t)
	easy, _ := cat.NotesForDifficulty(DifficultyEasy)
	medium, _ := cat.NotesForDifficulty(DifficultyMedium)
	hard, _ := cat.NotesForDifficulty(DifficultyHard)

	if len(easy) >= len(medium) || len(medium) >= len(hard) {
		t.Errorf("tier sizes %d/%d/%d are not strictly growing", len(easy), len(medium), len(hard))
	}
	mediumIDs := lo.Map(medium, func(n Note, _ int) string { return n.ID })
	for _, n := range easy {
		if !slices.Contains(mediumIDs, n.ID) {
			t.Errorf("easy note %s missing from medium", n.ID)
		}
	}
	if len(hard) != len(cat.Notes) {
		t.Errorf("hard tier has %d notes, want full catalog %d", len(hard), len(cat.Notes))
	}
	for _, n := range medium {
		if n.Class != NoteClassWhite {
			t.Errorf("medium tier contains black key %s", n.ID)
		}
	}
}
