package model

import (
	"strings"
	"testing"
)

func TestIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/foo/bar", "github.com-foo-bar"},
		{"http://github.com/foo/bar", "github.com-foo-bar"},
		{"https://spacedock.info/mod/100/Some-Mod", "spacedock.info-mod-100-Some-Mod"},
		{"https://www.curse.com/ksp-mods/kerbal/220221-mechjeb", "www.curse.com-ksp-mods-kerbal-220221-mechjeb"},
		{"https://example.com/mod/", "example.com-mod"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := IDFromURL(tt.url)
			if got != tt.want {
				t.Errorf("IDFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
			if strings.ContainsAny(got, "/\\") {
				t.Errorf("id %q contains path separators", got)
			}
		})
	}
}

func TestIDFromURL_Deterministic(t *testing.T) {
	a := IDFromURL("https://github.com/foo/bar")
	b := IDFromURL("https://github.com/foo/bar")
	if a != b {
		t.Errorf("ids differ for same URL: %q vs %q", a, b)
	}

	other := IDFromURL("https://github.com/foo/baz")
	if a == other {
		t.Errorf("distinct paths produced the same id %q", a)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantNil bool
	}{
		{"1.2", "1.2", false},
		{"v2.5.1", "2.5.1", false},
		{"MechJeb2-1.2.zip", "1.2", false},
		{"Release 2.5.1 for KSP 0.25", "2.5.1", false},
		{"1.2.3.4", "1.2.3.4", false},
		{"build 2023 of 1.4", "1.4", false},
		{"v2", "2", false},
		{"mod.dll", "", true},
		{"no version here", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseVersion(tt.input)
			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseVersion(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseVersion(%q) = nil, want %q", tt.input, tt.want)
			}
			if got.Raw != tt.want {
				t.Errorf("ParseVersion(%q).Raw = %q, want %q", tt.input, got.Raw, tt.want)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	v10 := ParseVersion("1.0")
	v20 := ParseVersion("2.0")
	v20b := ParseVersion("2.0.0")

	tests := []struct {
		name          string
		local, remote *Version
		want          Ordering
	}{
		{"remote newer", v10, v20, OrderingNewer},
		{"remote older", v20, v10, OrderingOlder},
		{"equal", v20, v20, OrderingEqual},
		{"equal after canonicalization", v20, v20b, OrderingEqual},
		{"local unknown", nil, v20, OrderingUnknown},
		{"remote unknown", v10, nil, OrderingUnknown},
		{"both unknown", nil, nil, OrderingUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareVersions(tt.local, tt.remote); got != tt.want {
				t.Errorf("CompareVersions() = %v, want %v", got, tt.want)
			}
		})
	}
}

// A stored version whose text no longer parses must compare as
// unknown, not as older than everything.
func TestCompareVersions_UnparseableStoredVersion(t *testing.T) {
	var stored Version
	if err := stored.UnmarshalJSON([]byte(`"corrupted"`)); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}

	remote := ParseVersion("2.0")
	if got := CompareVersions(&stored, remote); got != OrderingUnknown {
		t.Errorf("CompareVersions(unparseable, 2.0) = %v, want unknown", got)
	}
	if got := CompareVersions(remote, &stored); got != OrderingUnknown {
		t.Errorf("CompareVersions(2.0, unparseable) = %v, want unknown", got)
	}
}

func TestVersionJSONRoundTrip(t *testing.T) {
	v := ParseVersion("1.2.3")
	data, err := v.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	var back Version
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}

	if back.Raw != v.Raw {
		t.Errorf("round trip Raw = %q, want %q", back.Raw, v.Raw)
	}
	if CompareVersions(v, &back) != OrderingEqual {
		t.Errorf("round-tripped version is not equal to original")
	}
}

func TestModStructure_DependencyModules(t *testing.T) {
	s := &ModStructure{
		Modules: []Module{
			{Name: "MechJeb2", Files: []string{"MechJeb2/Plugins/MechJeb2.dll"}},
			{Name: "ModuleManager.dll", Files: []string{"ModuleManager.dll"}},
		},
	}

	deps := s.DependencyModules()
	if len(deps) != 1 || deps[0] != "ModuleManager.dll" {
		t.Errorf("DependencyModules() = %v, want [ModuleManager.dll]", deps)
	}

	names := s.ModuleNames()
	if len(names) != 2 {
		t.Errorf("ModuleNames() = %v, want 2 entries", names)
	}
}
