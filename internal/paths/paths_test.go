package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "pkg", "util")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file := filepath.Join(sub, "math.go")
	if err := os.WriteFile(file, []byte("package util\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Canonicalize(file, root)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if got != "pkg/util/math.go" {
		t.Errorf("Canonicalize = %q, want %q", got, "pkg/util/math.go")
	}
}

func TestCanonicalizeMissingFile(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "not", "yet.go")

	got, err := Canonicalize(missing, root)
	if err != nil {
		t.Fatalf("Canonicalize on missing file: %v", err)
	}
	if got != "not/yet.go" {
		t.Errorf("Canonicalize = %q, want %q", got, "not/yet.go")
	}
}

func TestIsWithinWorkspace(t *testing.T) {
	root := t.TempDir()

	inside := filepath.Join(root, "a.go")
	if !IsWithinWorkspace(inside, root) {
		t.Errorf("IsWithinWorkspace(%q) = false, want true", inside)
	}

	outside := filepath.Join(filepath.Dir(root), "elsewhere", "b.go")
	if IsWithinWorkspace(outside, root) {
		t.Errorf("IsWithinWorkspace(%q) = true, want false", outside)
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(`src\main\app.ts`)
	if got != "src/main/app.ts" && got != `src\main\app.ts` {
		// backslash conversion only applies on Windows via ToSlash
		t.Errorf("Normalize = %q", got)
	}
}

func TestJoinWorkspace(t *testing.T) {
	got := JoinWorkspace("/repo", "pkg/util/math.go")
	want := filepath.Join("/repo", "pkg", "util", "math.go")
	if got != want {
		t.Errorf("JoinWorkspace = %q, want %q", got, want)
	}
}

func TestFileURIRoundTrip(t *testing.T) {
	tests := []struct {
		path string
		uri  string
	}{
		{"/home/dev/project/main.go", "file:///home/dev/project/main.go"},
		{"/tmp/a b/file.py", "file:///tmp/a b/file.py"},
	}

	for _, tt := range tests {
		if got := ToFileURI(tt.path); got != tt.uri {
			t.Errorf("ToFileURI(%q) = %q, want %q", tt.path, got, tt.uri)
		}
		if got := FromFileURI(tt.uri); got != tt.path {
			t.Errorf("FromFileURI(%q) = %q, want %q", tt.uri, got, tt.path)
		}
	}
}

func TestFromFileURIPercentEncoded(t *testing.T) {
	got := FromFileURI("file:///home/dev/my%20project/main.go")
	if got != "/home/dev/my project/main.go" {
		t.Errorf("FromFileURI = %q, want decoded space", got)
	}
}

func TestFromFileURIPassThrough(t *testing.T) {
	got := FromFileURI("pkg/util/math.go")
	if got != "pkg/util/math.go" {
		t.Errorf("FromFileURI on non-URI = %q, want unchanged", got)
	}
}
