package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withPlainColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestColoredKeepsComponents(t *testing.T) {
	withPlainColor(t)
	orig := Version
	t.Cleanup(func() { Version = orig })

	for _, v := range []string{"0.1.0-dev", "1.2.3", "1.0.0-beta.1", "nightly"} {
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored() = %q, want %q", got, v)
		}
	}
}

func TestInfoLines(t *testing.T) {
	withPlainColor(t)
	origCommit, origDate := GitCommit, BuildDate
	t.Cleanup(func() { GitCommit, BuildDate = origCommit, origDate })

	GitCommit = "abc123"
	BuildDate = ""
	lines := Current().Lines()
	joined := strings.Join(lines, "\n")
	if !strings.HasPrefix(lines[0], "coselect ") {
		t.Fatalf("first line should name the binary: %q", lines[0])
	}
	if !strings.Contains(joined, "commit: abc123") {
		t.Fatalf("commit missing:\n%s", joined)
	}
	if strings.Contains(joined, "built:") {
		t.Fatalf("empty build date must be omitted:\n%s", joined)
	}
}

func BenchmarkVersionAccess(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Current()
	}
}
