package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/samber/lo"
)

// Sentinel errors surfaced to the presentation layer.
var (
	ErrUnknownNote       = errors.New(ErrorUnknownNote)
	ErrUnknownDifficulty = errors.New(ErrorUnknownDifficulty)
	ErrInvalidTransition = errors.New(ErrorNotAcceptingGuess)
)

// Catalog is the immutable note lookup table. It is built once at startup,
// validated, and then only read.
type Catalog struct {
	Notes []Note // rank order, ascending frequency

	byID  map[string]Note
	tiers map[string][]Note // difficulty -> ordered subset of Notes
}

// loadCatalog reads and validates the note catalog from a JSON file.
func loadCatalog(path string) (*Catalog, error) {
	logInfo("Loading note catalog from %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var nl NoteList
	if err := json.Unmarshal(data, &nl); err != nil {
		return nil, err
	}
	cat, err := newCatalog(nl)
	if err != nil {
		return nil, err
	}
	logInfo("Successfully loaded %d notes across %d difficulties", len(cat.Notes), len(cat.tiers))
	return cat, nil
}

// newCatalog builds a Catalog from a NoteList, enforcing the catalog
// invariants: unique ids, positive strictly increasing frequencies by rank,
// valid classifications, non-empty difficulty tiers forming the chain
// easy ⊆ medium ⊆ hard, and every tier member present in the catalog.
func newCatalog(nl NoteList) (*Catalog, error) {
	if len(nl.Notes) == 0 {
		return nil, errors.New("catalog has no notes")
	}

	notes := append([]Note(nil), nl.Notes...)
	sort.Slice(notes, func(i, j int) bool { return notes[i].Rank < notes[j].Rank })

	byID := make(map[string]Note, len(notes))
	for i, n := range notes {
		if n.ID == "" {
			return nil, fmt.Errorf("note at rank %d has empty id", n.Rank)
		}
		if _, dup := byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate note id %q", n.ID)
		}
		if n.Class != NoteClassWhite && n.Class != NoteClassBlack {
			return nil, fmt.Errorf("note %q has invalid class %q", n.ID, n.Class)
		}
		if n.Frequency <= 0 {
			return nil, fmt.Errorf("note %q has non-positive frequency %v", n.ID, n.Frequency)
		}
		if i > 0 {
			if notes[i-1].Rank == n.Rank {
				return nil, fmt.Errorf("notes %q and %q share rank %d", notes[i-1].ID, n.ID, n.Rank)
			}
			if notes[i-1].Frequency >= n.Frequency {
				return nil, fmt.Errorf("frequency not increasing from %q to %q", notes[i-1].ID, n.ID)
			}
		}
		byID[n.ID] = n
	}

	tiers := make(map[string][]Note, len(nl.Difficulties))
	for name, ids := range nl.Difficulties {
		if len(ids) == 0 {
			return nil, fmt.Errorf("difficulty %q has no notes", name)
		}
		tier := make([]Note, 0, len(ids))
		for _, id := range ids {
			n, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("difficulty %q references unknown note %q", name, id)
			}
			tier = append(tier, n)
		}
		tiers[name] = tier
	}

	for _, name := range []string{DifficultyEasy, DifficultyMedium, DifficultyHard} {
		if _, ok := tiers[name]; !ok {
			return nil, fmt.Errorf("difficulty %q missing from catalog", name)
		}
	}
	if err := requireSubset(tiers[DifficultyEasy], tiers[DifficultyMedium], DifficultyEasy, DifficultyMedium); err != nil {
		return nil, err
	}
	if err := requireSubset(tiers[DifficultyMedium], tiers[DifficultyHard], DifficultyMedium, DifficultyHard); err != nil {
		return nil, err
	}

	return &Catalog{Notes: notes, byID: byID, tiers: tiers}, nil
}

func requireSubset(inner, outer []Note, innerName, outerName string) error {
	outerIDs := lo.Map(outer, func(n Note, _ int) string { return n.ID })
	missing, ok := lo.Find(inner, func(n Note) bool { return !slices.Contains(outerIDs, n.ID) })
	if ok {
		return fmt.Errorf("difficulty %q has note %q missing from %q", innerName, missing.ID, outerName)
	}
	return nil
}

// NotesForDifficulty returns the ordered note subset for a difficulty.
func (cat *Catalog) NotesForDifficulty(d string) ([]Note, error) {
	tier, ok := cat.tiers[d]
	if !ok {
		return nil, ErrUnknownDifficulty
	}
	return tier, nil
}

// FrequencyOf returns the frequency in Hz for a note id.
func (cat *Catalog) FrequencyOf(id string) (float64, error) {
	n, ok := cat.byID[id]
	if !ok {
		return 0, ErrUnknownNote
	}
	return n.Frequency, nil
}

// HasNote reports whether the id names a catalog note.
func (cat *Catalog) HasNote(id string) bool {
	_, ok := cat.byID[id]
	return ok
}

// HasDifficulty reports whether the name is a configured difficulty tier.
func (cat *Catalog) HasDifficulty(d string) bool {
	_, ok := cat.tiers[d]
	return ok
}
