// Package prompt converts image-generation prompts between an ordered list of
// labeled sections and the flat bracket-marker text edited in the admin UI.
//
// Flat text looks like:
//
//	[SCENE]
//	A cat on a windowsill
//
//	[STYLE]
//	{"palette": "pastel"}
//
//	[AVOID]
//	blurry, watermark
//
// None of the operations in this package fail: malformed input degrades to
// the fallback rules documented on each function.
package prompt

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Block identifies one of the recognized prompt blocks.
type Block string

const (
	BlockScene       Block = "scene"
	BlockStyle       Block = "style"
	BlockAvoid       Block = "avoid"
	BlockComposition Block = "composition"
)

// blockOrder is the canonical serialization order.
var blockOrder = []Block{BlockScene, BlockStyle, BlockAvoid, BlockComposition}

// Tag returns the canonical marker line for the block, e.g. "[STYLE]".
func (b Block) Tag() string {
	return "[" + strings.ToUpper(string(b)) + "]"
}

// Title returns the section label used when blocks are turned into sections.
func (b Block) Title() string {
	s := string(b)
	return strings.ToUpper(s[:1]) + s[1:]
}

// LabelPrompt is the label of the single free-form section produced when
// flat text carries no markers. It serializes without a marker line.
const LabelPrompt = "prompt"

// Section is a labeled, ordered, toggleable unit of prompt text.
type Section struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Content string `json:"content"`
	Enabled bool   `json:"enabled"`
	Order   int    `json:"order"`
}

// NewSection returns an enabled section with a fresh ID.
// Order is left at zero; callers resequence after inserting.
func NewSection(label, content string) Section {
	return Section{
		ID:      uuid.NewString(),
		Label:   label,
		Content: content,
		Enabled: true,
	}
}

// DefaultSections returns the four canonical empty sections in order.
func DefaultSections() []Section {
	sections := make([]Section, 0, len(blockOrder))
	for i, b := range blockOrder {
		s := NewSection(b.Title(), "")
		s.Order = i
		sections = append(sections, s)
	}
	return sections
}

// MarkerFor maps a section label to its marker line.
// Known block names map to their canonical tag case-insensitively, the
// free-form "prompt" label (or an empty label) has no marker, and any other
// label becomes its uppercased text in brackets.
func MarkerFor(label string) string {
	l := strings.TrimSpace(label)
	if l == "" || strings.EqualFold(l, LabelPrompt) {
		return ""
	}
	for _, b := range blockOrder {
		if strings.EqualFold(l, string(b)) {
			return b.Tag()
		}
	}
	return "[" + strings.ToUpper(l) + "]"
}

// Resequence returns a copy of sections sorted by Order (stable for ties)
// with Order renumbered to 0..n-1.
func Resequence(sections []Section) []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	for i := range out {
		out[i].Order = i
	}
	return out
}

// Move returns a resequenced copy of sections with the section at position
// from (in order) moved to position to. Out-of-range positions leave the
// order unchanged.
func Move(sections []Section, from, to int) []Section {
	out := Resequence(sections)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]Section{moved}, out[to:]...)...)
	for i := range out {
		out[i].Order = i
	}
	return out
}

// SetEnabled returns a copy of sections with the section matching id toggled.
// Disabled sections stay in the list so they can be re-enabled later.
// The second return value reports whether id was found.
func SetEnabled(sections []Section, id string, enabled bool) ([]Section, bool) {
	out := make([]Section, len(sections))
	copy(out, sections)
	found := false
	for i := range out {
		if out[i].ID == id {
			out[i].Enabled = enabled
			found = true
		}
	}
	return out, found
}

// enabledInOrder filters to enabled sections and sorts them by Order.
func enabledInOrder(sections []Section) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		if s.Enabled {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
