// Package changeset diffs a parsed manifest against an approved solution
// and produces the exact edits the patch engine should apply.
//
// Everything here is a pure data transformation: no file or network I/O,
// and identical inputs always produce identical, order-stable output.
package changeset

import (
	"github.com/depfix-cli/depfix/internal/manifest"
	"github.com/depfix-cli/depfix/internal/resolve"
	"github.com/depfix-cli/depfix/internal/vers"
)

// Change is a single in-place version update for one package.
type Change struct {
	Package string
	// From is the literal version string currently in the manifest; the
	// patch engine matches it verbatim and skips the change if it is gone.
	From string
	// To is the formatted replacement version.
	To string
	// Section is "dependencies" or "devDependencies".
	Section string
}

// Removal deletes one package's declaration from one section.
type Removal struct {
	Package string
	Section string
	Reason  string
}

// EngineUpdate carries minimum engine constraints keyed by the manifest's
// engines-block names.
type EngineUpdate struct {
	Node string
	Npm  string
}

// Empty reports whether the update carries no constraints.
func (e EngineUpdate) Empty() bool {
	return e.Node == "" && e.Npm == ""
}

// Build compares the manifest's dependency sections against the solution
// and emits the version changes to apply, runtime dependencies first, in
// the solution's document order within each section.
func Build(m *manifest.Manifest, sol *resolve.Solution) []Change {
	var changes []Change
	changes = appendSection(changes, m.Dependencies, sol.Dependencies, resolve.SectionDependencies)
	changes = appendSection(changes, m.DevDependencies, sol.DevDependencies, resolve.SectionDevDependencies)
	return changes
}

func appendSection(changes []Change, declared map[string]string, proposed resolve.Entries, section string) []Change {
	for _, entry := range proposed {
		switch vers.Classify(entry.Version) {
		case vers.Unknown, vers.RemovalSentinel:
			// Removals travel through the removal list, never here.
			continue
		}

		current, ok := declared[entry.Package]
		if !ok || current == entry.Version {
			continue
		}

		// Comparing the formatted form too keeps the builder idempotent:
		// once "^4.17.21" is written, proposing "4.17.21" again is a no-op.
		to := vers.Format(entry.Version)
		if current == to {
			continue
		}

		changes = append(changes, Change{
			Package: entry.Package,
			From:    current,
			To:      to,
			Section: section,
		})
	}
	return changes
}

// Removals merges the solution's explicit removal advice with any entries
// whose proposed version is a removal sentinel. Only packages actually
// declared in the named section are emitted, each at most once.
func Removals(m *manifest.Manifest, sol *resolve.Solution) []Removal {
	var removals []Removal
	seen := make(map[string]bool)

	add := func(pkg, section, reason string) {
		key := section + "\x00" + pkg
		if seen[key] {
			return
		}
		if _, ok := m.Section(section)[pkg]; !ok {
			return
		}
		seen[key] = true
		removals = append(removals, Removal{Package: pkg, Section: section, Reason: reason})
	}

	for _, rem := range sol.Removals {
		section := rem.Type
		if section == "" {
			section = resolve.SectionDependencies
		}
		add(rem.Package, section, rem.Reason)
	}

	for _, entry := range sol.Dependencies {
		if vers.Classify(entry.Version) == vers.RemovalSentinel {
			add(entry.Package, resolve.SectionDependencies, "flagged for removal")
		}
	}
	for _, entry := range sol.DevDependencies {
		if vers.Classify(entry.Version) == vers.RemovalSentinel {
			add(entry.Package, resolve.SectionDevDependencies, "flagged for removal")
		}
	}

	return removals
}

// Engines copies the solution's engine constraints, if any.
func Engines(sol *resolve.Solution) EngineUpdate {
	if sol.Engines == nil {
		return EngineUpdate{}
	}
	return EngineUpdate{Node: sol.Engines.Node, Npm: sol.Engines.Npm}
}
