package resolve

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestEntriesDecodeOrder(t *testing.T) {
	// Document order must survive decoding; it drives change order.
	data := []byte(`{"zeta": "1.0.0", "alpha": "2.0.0", "mid": "3.0.0"}`)

	var e Entries
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := []Entry{
		{"zeta", "1.0.0"},
		{"alpha", "2.0.0"},
		{"mid", "3.0.0"},
	}
	if len(e) != len(want) {
		t.Fatalf("len = %d, want %d", len(e), len(want))
	}
	for i := range want {
		if e[i] != want[i] {
			t.Errorf("entry[%d] = %+v, want %+v", i, e[i], want[i])
		}
	}
}

func TestEntriesDecodeNull(t *testing.T) {
	var e Entries
	if err := json.Unmarshal([]byte(`null`), &e); err != nil {
		t.Fatalf("Unmarshal(null) error = %v", err)
	}
	if e != nil {
		t.Errorf("null decoded to %v, want nil", e)
	}
}

func TestEntriesRoundTrip(t *testing.T) {
	e := Entries{{"b", "1.0.0"}, {"a", "2.0.0"}}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"b":"1.0.0","a":"2.0.0"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var back Entries
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(back) != 2 || back[0] != e[0] || back[1] != e[1] {
		t.Errorf("round trip = %v, want %v", back, e)
	}
}

func TestEntriesGet(t *testing.T) {
	e := Entries{{"lodash", "4.17.21"}}

	if v, ok := e.Get("lodash"); !ok || v != "4.17.21" {
		t.Errorf("Get(lodash) = %q, %v", v, ok)
	}
	if _, ok := e.Get("axios"); ok {
		t.Error("Get(axios) found a missing package")
	}
}

func TestSolutionValidate(t *testing.T) {
	tests := []struct {
		name    string
		sol     Solution
		wantErr bool
	}{
		{
			name: "valid",
			sol: Solution{
				Dependencies: Entries{{"lodash", "4.17.21"}},
				Removals:     []RemovalAdvice{{Package: "axios", Reason: "vulnerable", Type: "dependencies"}},
				Engines:      &EngineAdvice{Node: ">=18.0.0"},
			},
		},
		{
			name: "removal without type",
			sol:  Solution{Removals: []RemovalAdvice{{Package: "left-pad"}}},
		},
		{
			name:    "empty package in dependencies",
			sol:     Solution{Dependencies: Entries{{"", "1.0.0"}}},
			wantErr: true,
		},
		{
			name:    "empty package in removals",
			sol:     Solution{Removals: []RemovalAdvice{{Reason: "why not"}}},
			wantErr: true,
		},
		{
			name:    "bad removal section",
			sol:     Solution{Removals: []RemovalAdvice{{Package: "x", Type: "peerDependencies"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sol.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadSolution(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solution.json")

	content := `{
  "dependencies": {"lodash": "4.17.21", "axios": "REMOVE"},
  "devDependencies": {"jest": "28.0.0"},
  "removals": [{"package": "request", "reason": "deprecated"}],
  "engines": {"runtimeMinVersion": ">=18.0.0", "packageManagerMinVersion": ">=9.0.0"}
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	sol, err := LoadSolution(path)
	if err != nil {
		t.Fatalf("LoadSolution() error = %v", err)
	}

	if v, _ := sol.Dependencies.Get("lodash"); v != "4.17.21" {
		t.Errorf("lodash = %q", v)
	}
	if v, _ := sol.Dependencies.Get("axios"); v != "REMOVE" {
		t.Errorf("axios = %q", v)
	}
	if len(sol.Removals) != 1 || sol.Removals[0].Package != "request" {
		t.Errorf("Removals = %+v", sol.Removals)
	}
	if sol.Engines == nil || sol.Engines.Node != ">=18.0.0" || sol.Engines.Npm != ">=9.0.0" {
		t.Errorf("Engines = %+v", sol.Engines)
	}
}

func TestLoadSolutionErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadSolution(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("want error for missing file")
		}
	})

	t.Run("invalid payload", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte(`{"removals": [{"reason": "no name"}]}`), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadSolution(path); err == nil {
			t.Error("want validation error")
		}
	})
}
