package prompt

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Substitute replaces every {{key}} whose key is present in vars. Keys must
// match exactly; unknown placeholders are left as literal text. Replacement
// is a single pass, so values containing placeholders are not expanded again.
func Substitute(content string, vars map[string]string) string {
	if len(vars) == 0 {
		return content
	}
	return placeholderPattern.ReplaceAllStringFunc(content, func(m string) string {
		if v, ok := vars[m[2:len(m)-2]]; ok {
			return v
		}
		return m
	})
}

// SubstituteBlocks applies Substitute to each block independently.
// A structured style is substituted on its text form and re-parsed.
func SubstituteBlocks(b Blocks, vars map[string]string) Blocks {
	return Blocks{
		Scene:       Substitute(b.Scene, vars),
		Style:       ParseStyle(Substitute(b.Style.String(), vars)),
		Avoid:       Substitute(b.Avoid, vars),
		Composition: Substitute(b.Composition, vars),
		Marked:      b.Marked,
	}
}

// SubstituteSections returns the enabled sections, in order, with
// placeholders substituted. Disabled sections never reach a request.
func SubstituteSections(sections []Section, vars map[string]string) []Section {
	ordered := enabledInOrder(sections)
	for i := range ordered {
		ordered[i].Content = Substitute(ordered[i].Content, vars)
	}
	return ordered
}

// Placeholders returns the distinct placeholder names in content, in order
// of first appearance.
func Placeholders(content string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(matches))
	var names []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Unresolved returns the placeholder names in content that vars does not define.
func Unresolved(content string, vars map[string]string) []string {
	var missing []string
	for _, name := range Placeholders(content) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
