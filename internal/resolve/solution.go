// Package resolve defines the analysis service's solution payload and the
// client that obtains it.
package resolve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Section names used on the wire and in the manifest.
const (
	SectionDependencies    = "dependencies"
	SectionDevDependencies = "devDependencies"
)

// Entry is one proposed package/version pair.
type Entry struct {
	Package string
	Version string
}

// Entries is an ordered list of proposed versions for one section.
//
// The service's document order is significant: changes are applied in the
// order the solution lists them. A plain map would lose that order under
// Go's randomized iteration, so the section is decoded entry by entry from
// the JSON token stream.
type Entries []Entry

// UnmarshalJSON decodes a JSON object into entries in document order.
func (e *Entries) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*e = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	var out Entries
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", keyTok)
		}

		var version string
		if err := dec.Decode(&version); err != nil {
			return fmt.Errorf("version for %q: %w", key, err)
		}

		out = append(out, Entry{Package: key, Version: version})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*e = out
	return nil
}

// MarshalJSON encodes entries back to a JSON object in order.
func (e Entries) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	out := []byte{'{'}
	for i, entry := range e {
		if i > 0 {
			out = append(out, ',')
		}
		k, err := json.Marshal(entry.Package)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(entry.Version)
		if err != nil {
			return nil, err
		}
		out = append(out, k...)
		out = append(out, ':')
		out = append(out, v...)
	}
	return append(out, '}'), nil
}

// Get returns the proposed version for a package, if present.
func (e Entries) Get(pkg string) (string, bool) {
	for _, entry := range e {
		if entry.Package == pkg {
			return entry.Version, true
		}
	}
	return "", false
}

// RemovalAdvice is one package the service recommends deleting.
type RemovalAdvice struct {
	Package string `json:"package"`
	Reason  string `json:"reason"`
	// Type names the manifest section the package lives in; empty means
	// runtime dependencies.
	Type string `json:"type,omitempty"`
}

// EngineAdvice carries recommended minimum engine constraints.
type EngineAdvice struct {
	Node string `json:"runtimeMinVersion,omitempty"`
	Npm  string `json:"packageManagerMinVersion,omitempty"`
}

// Solution is the approved fix returned by the analysis service.
type Solution struct {
	Dependencies    Entries         `json:"dependencies"`
	DevDependencies Entries         `json:"devDependencies"`
	Removals        []RemovalAdvice `json:"removals,omitempty"`
	Engines         *EngineAdvice   `json:"engines,omitempty"`
}

// Validate checks the payload shape at the trust boundary, before any of
// it reaches the change-set builder.
func (s *Solution) Validate() error {
	for _, entry := range s.Dependencies {
		if entry.Package == "" {
			return fmt.Errorf("dependencies: entry with empty package name")
		}
	}
	for _, entry := range s.DevDependencies {
		if entry.Package == "" {
			return fmt.Errorf("devDependencies: entry with empty package name")
		}
	}
	for i, rem := range s.Removals {
		if rem.Package == "" {
			return fmt.Errorf("removals[%d]: empty package name", i)
		}
		switch rem.Type {
		case "", SectionDependencies, SectionDevDependencies:
		default:
			return fmt.Errorf("removals[%d]: unknown section %q", i, rem.Type)
		}
	}
	return nil
}

// LoadSolution reads an approved solution from a local JSON file, the
// offline path used when replaying a previously approved plan.
func LoadSolution(path string) (*Solution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading solution: %w", err)
	}

	var sol Solution
	if err := json.Unmarshal(data, &sol); err != nil {
		return nil, fmt.Errorf("parsing solution: %w", err)
	}

	if err := sol.Validate(); err != nil {
		return nil, fmt.Errorf("invalid solution: %w", err)
	}

	return &sol, nil
}
