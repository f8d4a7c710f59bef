package version

import (
	"strings"
	"testing"
)

func TestGetFullVersion(t *testing.T) {
	original := Version
	t.Cleanup(func() { Version = original })

	Version = "dev"
	if got := GetFullVersion(); !strings.HasPrefix(got, "tokibot/dev (commit: ") {
		t.Fatalf("unexpected dev version %q", got)
	}

	Version = "1.2.0"
	if got := GetFullVersion(); got != "tokibot/1.2.0" {
		t.Fatalf("unexpected release version %q", got)
	}
}
