package versionspec

import "testing"

func TestSatisfies(t *testing.T) {
	cases := []struct {
		installed string
		spec      string
		want      bool
		wantErr   bool
	}{
		{"1.26.0", "", true, false},
		{"1.26.0", "<2.0.0", true, false},
		{"2.1.0", "<2.0.0", false, false},
		{"1.26.15", "!=1.26.15", false, false},
		{"1.26.14", "!=1.26.15", true, false},
		{"2023.7.22", "!=1.2.3", true, false},
		{"1.2.2", "!=1.2.3", true, false},
		{"1.2.3", "!=1.2.3", false, false},
		{"2.30.0", "~=2.28", true, false},
		{"3.0.0", "~=2.28", false, false},
		{"2.27.9", "~=2.28", false, false},
		{"not-a-version", ">=1.0", false, true},
	}

	for _, c := range cases {
		got, err := Satisfies(c.installed, c.spec)
		if c.wantErr {
			if err == nil {
				t.Errorf("Satisfies(%q, %q) expected error, got none", c.installed, c.spec)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Satisfies(%q, %q) unexpected error: %v", c.installed, c.spec, err)
		}
		if got != c.want {
			t.Errorf("Satisfies(%q, %q) = %v, want %v", c.installed, c.spec, got, c.want)
		}
	}
}

func TestTranslateTilde(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"~=2.28", ">=2.28, <3"},
		{"~=2.28.3", ">=2.28.3, <2.29"},
	}
	for _, c := range cases {
		got, err := translate(c.in)
		if err != nil {
			t.Fatalf("translate(%q) unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("translate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
