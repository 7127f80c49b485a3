package prompt

import (
	"regexp"
	"strings"
)

// markerPattern matches a whole trimmed marker line: an optionally bracketed
// block name with an optional trailing colon. A bare "[]" is the scene marker.
var markerPattern = regexp.MustCompile(`(?i)^(?:\[\s*(scene|style|avoid|composition)?\s*\]|(scene|style|avoid|composition))\s*:?$`)

// blankRuns matches two or more consecutive blank (or whitespace-only) lines.
var blankRuns = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)

// Blocks is the result of parsing flat prompt text.
type Blocks struct {
	Scene       string     `json:"scene"`
	Style       StyleValue `json:"style"`
	Avoid       string     `json:"avoid"`
	Composition string     `json:"composition"`

	// Marked is true when at least one marker line was found.
	Marked bool `json:"-"`
}

// StyleParsedAsJSON reports whether the style block holds a JSON object.
func (b Blocks) StyleParsedAsJSON() bool {
	return b.Style.Structured()
}

// Get returns the text of a block.
func (b Blocks) Get(block Block) string {
	switch block {
	case BlockScene:
		return b.Scene
	case BlockStyle:
		return b.Style.String()
	case BlockAvoid:
		return b.Avoid
	case BlockComposition:
		return b.Composition
	}
	return ""
}

// Empty reports whether every block is blank.
func (b Blocks) Empty() bool {
	for _, block := range blockOrder {
		if strings.TrimSpace(b.Get(block)) != "" {
			return false
		}
	}
	return true
}

// matchMarker returns the block a line switches to, if the line is a marker.
func matchMarker(line string) (Block, bool) {
	m := markerPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	name := m[1]
	if name == "" {
		name = m[2]
	}
	if name == "" {
		return BlockScene, true
	}
	// (?i) folds non-ASCII runes such as U+017F onto "s"; only exact
	// block names switch buckets, anything else stays prompt text.
	block := Block(strings.ToLower(name))
	for _, b := range blockOrder {
		if b == block {
			return block, true
		}
	}
	return "", false
}

// Parse splits flat text into blocks. Lines before the first marker belong
// to the scene block. Marker lines themselves are dropped; every other line,
// blank ones included, is kept in order in the active block. When a prompt
// line happens to look exactly like a marker it is treated as one: the first
// match wins and no disambiguation is attempted.
func Parse(text string) Blocks {
	buckets := make(map[Block][]string, len(blockOrder))
	current := BlockScene
	marked := false

	for _, line := range strings.Split(normalizeNewlines(text), "\n") {
		if block, ok := matchMarker(line); ok {
			current = block
			marked = true
			continue
		}
		buckets[current] = append(buckets[current], line)
	}

	join := func(b Block) string {
		return strings.TrimSpace(strings.Join(buckets[b], "\n"))
	}

	return Blocks{
		Scene:       join(BlockScene),
		Style:       ParseStyle(join(BlockStyle)),
		Avoid:       join(BlockAvoid),
		Composition: join(BlockComposition),
		Marked:      marked,
	}
}

// Build renders the four blocks as flat text in canonical order. Blocks that
// are empty after trimming are omitted, marker included.
func Build(scene, style, avoid, composition string) string {
	values := []string{scene, style, avoid, composition}
	parts := make([]string, 0, len(values))
	for i, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		parts = append(parts, blockOrder[i].Tag()+"\n"+v)
	}
	return strings.Join(parts, "\n\n")
}

// BuildBlocks is Build over a parsed Blocks value.
func BuildBlocks(b Blocks) string {
	return Build(b.Scene, b.Style.String(), b.Avoid, b.Composition)
}

// SectionsToFlatText renders enabled sections, ordered by Order, each as its
// marker line followed by its trimmed content. Runs of blank lines collapse
// to one and the result is trimmed.
func SectionsToFlatText(sections []Section) string {
	ordered := enabledInOrder(sections)
	parts := make([]string, 0, len(ordered))
	for _, s := range ordered {
		content := strings.TrimSpace(normalizeNewlines(s.Content))
		if tag := MarkerFor(s.Label); tag != "" {
			parts = append(parts, tag+"\n"+content+"\n")
		} else {
			parts = append(parts, content+"\n")
		}
	}
	text := blankRuns.ReplaceAllString(strings.Join(parts, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

// FlatTextToSections turns flat text into sections. Text without markers, or
// whose marked blocks are all blank, becomes a single "prompt" section with
// the whole trimmed text so nothing is lost. Otherwise the result is always
// the four canonical sections, enabled and ordered 0..3, blank ones included.
func FlatTextToSections(text string) []Section {
	blocks := Parse(text)
	trimmed := strings.TrimSpace(text)

	if trimmed != "" && (!blocks.Marked || blocks.Empty()) {
		s := NewSection(LabelPrompt, trimmed)
		return []Section{s}
	}

	sections := make([]Section, 0, len(blockOrder))
	for i, b := range blockOrder {
		s := NewSection(b.Title(), blocks.Get(b))
		s.Order = i
		sections = append(sections, s)
	}
	return sections
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
