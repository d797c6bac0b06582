// Package manifest loads a project's package.json as both raw text and a
// parsed read-only view.
//
// The raw bytes are the authoritative document: all edits happen as text
// surgery elsewhere, and the parsed view exists only for diffing and for
// building the sanitized summary sent to the analysis service.
package manifest

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultName is the manifest filename in the target ecosystem.
const DefaultName = "package.json"

// Manifest is a loaded package.json.
type Manifest struct {
	// Path is the on-disk location the manifest was read from.
	Path string
	// Raw holds the exact on-disk bytes.
	Raw []byte

	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Private          bool              `json:"private"`
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
	Engines          map[string]string `json:"engines"`
}

// Load reads and parses <dir>/package.json. An unreadable file or JSON
// that does not parse is fatal; nothing downstream can run without a
// well-formed manifest.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, DefaultName)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", DefaultName, err)
	}

	m := &Manifest{Path: path, Raw: data}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", DefaultName, err)
	}

	return m, nil
}

// Section returns the declared versions for a dependency section name.
// Unrecognized section names return nil.
func (m *Manifest) Section(name string) map[string]string {
	switch name {
	case "dependencies":
		return m.Dependencies
	case "devDependencies":
		return m.DevDependencies
	case "peerDependencies":
		return m.PeerDependencies
	case "engines":
		return m.Engines
	default:
		return nil
	}
}

// Summary is the sanitized subset of a manifest sent to the analysis
// service. Scripts, custom keys, and anything else in the file never
// leave the machine.
type Summary struct {
	Name             string            `json:"name"`
	Version          string            `json:"version,omitempty"`
	Dependencies     map[string]string `json:"dependencies,omitempty"`
	DevDependencies  map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies map[string]string `json:"peerDependencies,omitempty"`
	Engines          map[string]string `json:"engines,omitempty"`
	// Fingerprint is the SRI-format sha256 of the raw manifest bytes,
	// letting the service flag solutions computed against stale text.
	Fingerprint string `json:"fingerprint"`
}

// Summary builds the sanitized view of the manifest.
func (m *Manifest) Summary() *Summary {
	return &Summary{
		Name:             m.Name,
		Version:          m.Version,
		Dependencies:     m.Dependencies,
		DevDependencies:  m.DevDependencies,
		PeerDependencies: m.PeerDependencies,
		Engines:          m.Engines,
		Fingerprint:      Fingerprint(m.Raw),
	}
}

// Fingerprint computes the SRI-format sha256 digest of manifest bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256-" + base64.StdEncoding.EncodeToString(sum[:])
}
