package fontset

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/tdewolff/incrfont"
)

const (
	// MinimumNonObfuscationLength is the number of codepoints below which a glyph request is padded with random codepoints.
	MinimumNonObfuscationLength = 20

	// ObfuscationRange is the range [0,ObfuscationRange) of codepoints used for padding.
	ObfuscationRange = 256
)

// DefaultWeight is the weight of text without an explicit weight.
const DefaultWeight = "400"

var cssWeightToNumber = map[string]string{
	"lighter": "300",
	"normal":  "400",
	"bold":    "700",
	"bolder":  "800",
}

// FontID returns the identity of the font of a family and weight.
func FontID(family, weight string) string {
	return family + ";" + weight
}

// WeightNumber returns the numeric weight for a CSS font-weight value.
func WeightNumber(weight string) string {
	weight = strings.ToLower(strings.TrimSpace(weight))
	if weight == "" {
		return DefaultWeight
	} else if number, ok := cssWeightToNumber[weight]; ok {
		return number
	} else if _, err := strconv.Atoi(weight); err != nil {
		return DefaultWeight
	}
	return weight
}

// State is the state of a font in the update cycle.
type State int

// see State
const (
	Idle State = iota
	Accumulating
	Requesting
	Applying
)

func (state State) String() string {
	switch state {
	case Idle:
		return "Idle"
	case Accumulating:
		return "Accumulating"
	case Requesting:
		return "Requesting"
	case Applying:
		return "Applying"
	}
	return "State(" + strconv.Itoa(int(state)) + ")"
}

// FontView is the state of one font of a set. All fields are guarded by the set's mutex, but only the worker goroutine modifies the snapshot, the flags and the pending set.
type FontView struct {
	ID     string
	Weight string

	mu                 *sync.Mutex
	needed             map[rune]bool // observed but not in the snapshot
	pending            map[rune]bool // being fetched, subset of needed
	satisfied          map[rune]bool // in the snapshot
	phase              State         // Requesting or Applying, Idle otherwise
	alreadyPersisted   bool
	needsSnapshotApply bool
	storeFailed        bool // the base is not persisted over an unreadable snapshot
	info               incrfont.FileInfo
	snapshot           []byte
}

func newFontView(mu *sync.Mutex, family, weight string) *FontView {
	return &FontView{
		ID:        FontID(family, weight),
		Weight:    weight,
		mu:        mu,
		needed:    map[rune]bool{},
		pending:   map[rune]bool{},
		satisfied: map[rune]bool{},
	}
}

// addText adds the codepoints of text that are not in the snapshot to the needed set. It returns true if any were added.
func (font *FontView) addText(text string) bool {
	added := false
	for _, r := range text {
		if !font.satisfied[r] && !font.needed[r] {
			font.needed[r] = true
			added = true
		}
	}
	return added
}

// State returns the state of the font.
func (font *FontView) State() State {
	font.mu.Lock()
	defer font.mu.Unlock()
	if font.phase != Idle {
		return font.phase
	} else if 0 < len(font.needed) {
		return Accumulating
	}
	return Idle
}

// Needed returns the sorted codepoints that were observed but are not in the snapshot.
func (font *FontView) Needed() []rune {
	font.mu.Lock()
	defer font.mu.Unlock()
	return sortedRunes(font.needed)
}

// Pending returns the sorted codepoints that are being fetched.
func (font *FontView) Pending() []rune {
	font.mu.Lock()
	defer font.mu.Unlock()
	return sortedRunes(font.pending)
}

// Satisfied returns the sorted codepoints whose glyphs are in the snapshot. Padding codepoints are never included.
func (font *FontView) Satisfied() []rune {
	font.mu.Lock()
	defer font.mu.Unlock()
	return sortedRunes(font.satisfied)
}

// Snapshot returns the active snapshot, or nil if the font has not been loaded.
func (font *FontView) Snapshot() ([]byte, incrfont.FileInfo) {
	font.mu.Lock()
	defer font.mu.Unlock()
	return font.snapshot, font.info
}

// AlreadyPersisted returns true if the snapshot was loaded from the store.
func (font *FontView) AlreadyPersisted() bool {
	font.mu.Lock()
	defer font.mu.Unlock()
	return font.alreadyPersisted
}

// NeedsSnapshotApply returns true if the snapshot has not yet been applied to the sink.
func (font *FontView) NeedsSnapshotApply() bool {
	font.mu.Lock()
	defer font.mu.Unlock()
	return font.needsSnapshotApply
}

func sortedRunes(set map[rune]bool) []rune {
	rs := make([]rune, 0, len(set))
	for r := range set {
		rs = append(rs, r)
	}
	slices.Sort(rs)
	return rs
}

// pad returns the sorted codepoints of chars, padded with random distinct codepoints from [0,ObfuscationRange) up to MinimumNonObfuscationLength.
func pad(chars []rune, rng *rand.Rand) []rune {
	seen := make(map[rune]bool, MinimumNonObfuscationLength)
	for _, r := range chars {
		seen[r] = true
	}
	padded := append([]rune{}, chars...)
	for len(padded) < MinimumNonObfuscationLength {
		r := rune(rng.IntN(ObfuscationRange))
		if !seen[r] {
			seen[r] = true
			padded = append(padded, r)
		}
	}
	slices.Sort(padded)
	return padded
}
