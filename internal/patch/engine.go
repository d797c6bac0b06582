// Package patch applies an approved change set to manifest text by
// surgical edits.
//
// The manifest is never parsed, mutated, and re-serialized: that would
// normalize formatting and destroy the user's original style. Instead each
// operation locates its target in the raw text and splices in the minimal
// replacement, leaving every other byte untouched. Parsing is used only to
// verify that the text round-trips as JSON before and after.
package patch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/depfix-cli/depfix/internal/changeset"
)

// BackupSuffix is appended to the manifest path for the pre-edit backup.
const BackupSuffix = ".bak"

// Result reports what one Apply invocation did.
type Result struct {
	BackupPath        string
	ChangesApplied    int
	RemovalsApplied   int
	EngineKeysUpdated int
}

// sectionBounds locates `"<section>": {` by first occurrence and returns
// the offsets of the section body: start is just past the opening brace,
// end is the index of the matching closing brace. Brace depth is tracked
// so nested values inside the section do not end the scan early.
func sectionBounds(text, section string) (start, end int, ok bool) {
	header := regexp.MustCompile(`"` + regexp.QuoteMeta(section) + `"\s*:\s*\{`)
	loc := header.FindStringIndex(text)
	if loc == nil {
		return 0, 0, false
	}

	depth := 1
	for i := loc[1]; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return loc[1], i, true
			}
		}
	}
	return 0, 0, false
}

// ReplaceVersion rewrites one package's version string inside one section.
// The from string must match the manifest text verbatim; when the section,
// package, or exact current version cannot be found the text is returned
// unchanged with replaced=false.
func ReplaceVersion(text, section, pkg, from, to string) (string, bool) {
	start, end, ok := sectionBounds(text, section)
	if !ok {
		return text, false
	}
	body := text[start:end]

	// Anchoring on the full quoted key and colon keeps a package whose
	// name is a substring of another from matching the wrong entry.
	entry := regexp.MustCompile(`("` + regexp.QuoteMeta(pkg) + `"\s*:\s*")` + regexp.QuoteMeta(from) + `(")`)
	m := entry.FindStringSubmatchIndex(body)
	if m == nil {
		return text, false
	}

	// m[3] ends the opening `"pkg": "` group, m[4] starts the closing
	// quote group; only the version token between them is replaced.
	body = body[:m[3]] + to + body[m[4]:]
	return text[:start] + body + text[end:], true
}

// RemovePackage deletes one package's declaration line from one section
// and repairs the trailing comma of the previous entry when the deleted
// line was the section's last.
//
// Matching assumes one declaration per line, the conventional formatting
// for package.json; a declaration spread across multiple lines is not
// found and the removal is skipped.
func RemovePackage(text, section, pkg string) (string, bool) {
	lines := strings.Split(text, "\n")

	header := regexp.MustCompile(`"` + regexp.QuoteMeta(section) + `"\s*:\s*\{`)
	decl := regexp.MustCompile(`^\s*"` + regexp.QuoteMeta(pkg) + `"\s*:\s*"[^"]*"\s*(,?)\s*$`)

	target := -1
	hadComma := false

	inSection := false
	depth := 0
	for i, line := range lines {
		if !inSection {
			loc := header.FindStringIndex(line)
			if loc == nil {
				continue
			}
			inSection = true
			depth = braceDelta(line[loc[1]:]) + 1
			if depth <= 0 {
				break // section opened and closed on the header line
			}
			continue
		}

		if m := decl.FindStringSubmatch(line); m != nil {
			target = i
			hadComma = m[1] == ","
			break
		}

		depth += braceDelta(line)
		if depth <= 0 {
			break // left the section without finding the package
		}
	}

	if target == -1 {
		return text, false
	}

	if !hadComma && target > 0 {
		// Deleted the last entry: the previous line's trailing comma
		// would dangle before the closing brace.
		lines[target-1] = stripTrailingComma(lines[target-1])
	}

	lines = append(lines[:target], lines[target+1:]...)
	return strings.Join(lines, "\n"), true
}

// braceDelta returns the net brace depth change across a line.
func braceDelta(line string) int {
	return strings.Count(line, "{") - strings.Count(line, "}")
}

// stripTrailingComma removes a comma at the end of a line, ignoring
// trailing whitespace, and leaves the line alone otherwise.
func stripTrailingComma(line string) string {
	trimmed := strings.TrimRight(line, " \t\r")
	if !strings.HasSuffix(trimmed, ",") {
		return line
	}
	return trimmed[:len(trimmed)-1] + line[len(trimmed):]
}

// UpdateEngines edits the engines block in place, or synthesizes one after
// the manifest's identity fields when none exists. Returns the number of
// keys written. Unrelated keys in an existing block are never touched.
func UpdateEngines(text string, up changeset.EngineUpdate) (string, int) {
	pairs := enginePairs(up)
	if len(pairs) == 0 {
		return text, 0
	}

	if _, _, ok := sectionBounds(text, "engines"); ok {
		count := 0
		for _, p := range pairs {
			var done bool
			text, done = setEngineKey(text, p.key, p.value)
			if done {
				count++
			}
		}
		return text, count
	}

	return insertEnginesBlock(text, pairs)
}

type enginePair struct {
	key   string
	value string
}

func enginePairs(up changeset.EngineUpdate) []enginePair {
	var pairs []enginePair
	if up.Node != "" {
		pairs = append(pairs, enginePair{"node", up.Node})
	}
	if up.Npm != "" {
		pairs = append(pairs, enginePair{"npm", up.Npm})
	}
	return pairs
}

// setEngineKey replaces the key's value inside the engines block, or
// inserts the key before the block's closing brace using the block's
// established indentation.
func setEngineKey(text, key, value string) (string, bool) {
	start, end, ok := sectionBounds(text, "engines")
	if !ok {
		return text, false
	}
	body := text[start:end]

	existing := regexp.MustCompile(`("` + regexp.QuoteMeta(key) + `"\s*:\s*")[^"]*(")`)
	if m := existing.FindStringSubmatchIndex(body); m != nil {
		body = body[:m[3]] + value + body[m[4]:]
		return text[:start] + body + text[end:], true
	}

	headerIndent := lineIndentAt(text, start)
	entryIndent := headerIndent + "  "
	if m := regexp.MustCompile(`\n([ \t]*)"`).FindStringSubmatch(body); m != nil {
		entryIndent = m[1]
	}

	entry := fmt.Sprintf("%s%q: %q", entryIndent, key, value)
	if strings.TrimSpace(body) == "" {
		body = "\n" + entry + "\n" + headerIndent
	} else {
		body = strings.TrimRight(body, " \t\n\r") + ",\n" + entry + "\n" + headerIndent
	}
	return text[:start] + body + text[end:], true
}

// insertEnginesBlock builds a fresh engines block and places it directly
// after the version field, falling back to the name field. Only top-level
// fields anchor the block; a dependency literally named "version" or
// "name" must not pull the insertion inside its section. With neither
// identity field present there is no safe insertion point and the update
// is a no-op.
func insertEnginesBlock(text string, pairs []enginePair) (string, int) {
	anchor := topLevelField(text, "version")
	if anchor == nil {
		anchor = topLevelField(text, "name")
	}
	if anchor == nil {
		return text, 0
	}

	indent := lineIndentAt(text, anchor[0])
	var b strings.Builder
	fmt.Fprintf(&b, "%s\"engines\": {\n", indent)
	for i, p := range pairs {
		sep := ""
		if i < len(pairs)-1 {
			sep = ","
		}
		fmt.Fprintf(&b, "%s  %q: %q%s\n", indent, p.key, p.value, sep)
	}
	fmt.Fprintf(&b, "%s}", indent)
	block := b.String()

	// Whether the anchor field already ends in a comma decides which side
	// of the new block the separating comma goes on.
	rest := text[anchor[1]:]
	afterWS := len(rest) - len(strings.TrimLeft(rest, " \t\r\n"))
	if afterWS < len(rest) && rest[afterWS] == ',' {
		at := anchor[1] + afterWS + 1
		return text[:at] + "\n" + block + "," + text[at:], len(pairs)
	}
	return text[:anchor[1]] + ",\n" + block + text[anchor[1]:], len(pairs)
}

// topLevelField locates the first `"<key>": "..."` occurrence sitting at
// the document's top level.
func topLevelField(text, key string) []int {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*"[^"]*"`)
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if braceDepthAt(text, loc[0]) == 1 {
			return loc
		}
	}
	return nil
}

// braceDepthAt returns the object-brace depth at pos, ignoring braces
// that appear inside JSON strings.
func braceDepthAt(text string, pos int) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < pos && i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
		}
	}
	return depth
}

// lineIndentAt returns the leading whitespace of the line containing pos.
func lineIndentAt(text string, pos int) string {
	lineStart := strings.LastIndexByte(text[:pos], '\n') + 1
	i := lineStart
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	return text[lineStart:i]
}

// Apply runs the full patch sequence against the manifest at path: read,
// validate, back up, edit, re-validate, atomically write.
//
// A change or removal whose target text cannot be located is skipped and
// left out of the counts; change sets are computed from a fresh read of
// the same file, so a miss means stale data and guessing would be worse
// than skipping. An unreadable or unparsable manifest is fatal and aborts
// before any byte of the live file is altered.
func Apply(path string, changes []changeset.Change, removals []changeset.Removal, engines changeset.EngineUpdate) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var probe map[string]any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("manifest is not valid JSON: %w", err)
	}

	backupPath := path + BackupSuffix
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing backup: %w", err)
	}

	res := &Result{BackupPath: backupPath}
	text := string(data)

	for _, c := range changes {
		var done bool
		text, done = ReplaceVersion(text, c.Section, c.Package, c.From, c.To)
		if done {
			res.ChangesApplied++
		}
	}

	for _, r := range removals {
		var done bool
		text, done = RemovePackage(text, r.Section, r.Package)
		if done {
			res.RemovalsApplied++
		}
	}

	// Engines go last so the identity-field scan never runs against a
	// half-patched dependency section.
	text, res.EngineKeysUpdated = UpdateEngines(text, engines)

	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, fmt.Errorf("patched manifest failed to re-parse, original kept at %s: %w", backupPath, err)
	}

	if err := writeAtomic(path, []byte(text)); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	return res, nil
}

// writeAtomic writes data to a temp file in the target's directory and
// renames it over the target, so a crash never leaves a half-written
// manifest.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	if info, err := os.Stat(path); err == nil {
		os.Chmod(tmp.Name(), info.Mode())
	}

	return os.Rename(tmp.Name(), path)
}
