package vers

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		spec string
		want Class
	}{
		{"", Unknown},
		{" ", Unknown},
		{" \t\n", Unknown},
		{"unknown", Unknown},
		{"Unknown", Unknown},
		{"Not Available", Unknown},
		{"pending", Unknown},
		{"Manual Review Required", Unknown},
		{"1.2.3 (manual review required)", Unknown},
		{"Requires Manual Review", Unknown},
		{"see notes", Unknown},
		{"abc", Unknown},

		{"REMOVE", RemovalSentinel},
		{"remove", RemovalSentinel},
		{"Remove", RemovalSentinel},
		{"remove or replace", RemovalSentinel},
		{"Remove or Replace", RemovalSentinel},

		{"4.17.21", Valid},
		{"^2.0.0", Valid},
		{"~1.2.3", Valid},
		{">=18.0.0", Valid},
		{"<5.0.0", Valid},
		{"=1.0.0", Valid},
		{"*", Valid},
		{"latest", Valid},
		{"0.21.0", Valid},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			if got := Classify(tt.spec); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"4.17.0", "^4.17.0"},
		{"~4.17.0", "~4.17.0"},
		{"^4.17.0", "^4.17.0"},
		{">=4.17.0 <5.0.0", ">=4.17.0 <5.0.0"},
		{"1.0.0 || 2.0.0", "1.0.0 || 2.0.0"},
		{"1.x||2.x", "1.x||2.x"},
		{"", ""},
		{"=1.2.3", "=1.2.3"},
		{"18.0.0", "^18.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			if got := Format(tt.spec); got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.spec, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"upgrade", "^4.17.0", "^4.17.21", -1},
		{"downgrade", "~2.0.0", "~1.9.0", 1},
		{"equal", "^1.2.3", "1.2.3", 0},
		{"unparsable left", "latest", "^1.0.0", 0},
		{"unparsable right", "^1.0.0", "*", 0},
		{"range operators stripped", ">=18.0.0", "^17.0.0", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
