package specparser

import "testing"

func TestParseRequirement(t *testing.T) {
	cases := []struct {
		spec       string
		wantName   string
		wantSpec   string
		wantErr    bool
	}{
		{"numpy", "numpy", "", false},
		{"numpy==1.26.0", "numpy", "==1.26.0", false},
		{"pandas>=2.0", "pandas", ">=2.0", false},
		{"scipy<1.10", "scipy", "<1.10", false},
		{"requests~=2.28", "requests", "~=2.28", false},
		{"scikit-learn>=1.0", "scikit-learn", ">=1.0", false},
		{"my_pkg!=1.2.3", "my_pkg", "!=1.2.3", false},
		{"", "", "", true},
		{"==1.0", "", "", true},
		{"num py==1.0", "", "", true},
		{"numpy @ 1.0", "", "", true},
	}

	for _, c := range cases {
		name, constraint, err := ParseRequirement(c.spec)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseRequirement(%q) expected error, got none", c.spec)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRequirement(%q) unexpected error: %v", c.spec, err)
		}
		if name != c.wantName || constraint != c.wantSpec {
			t.Errorf("ParseRequirement(%q) = (%q, %q), want (%q, %q)",
				c.spec, name, constraint, c.wantName, c.wantSpec)
		}
	}
}
