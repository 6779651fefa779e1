package targets_test

import (
	"os"
	"path"
	"strings"
	"testing"

	"github.com/worldtick/worldtick/internal/targets"
)

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"# worlds",
		"1 Germany",
		"",
		"5 UK",
		"malformed",
		"test-world Staging extra-token",
	}, "\n")

	got, err := targets.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("parsed %d targets (expected 3)", len(got))
	}
	if got[0].ID != "1" || got[0].Label != "Germany" {
		t.Errorf("unexpected first target: %+v", got[0])
	}
	if got[1].ID != "5" || got[1].Label != "UK" {
		t.Errorf("unexpected second target: %+v", got[1])
	}
	if got[2].ID != "test-world" || got[2].Label != "Staging" {
		t.Errorf("unexpected third target: %+v", got[2])
	}
}

func TestParseFile(t *testing.T) {
	p := path.Join(t.TempDir(), "worlds.txt")
	if err := os.WriteFile(p, []byte("2 US\n9 Brazil\n"), 0644); err != nil {
		t.Fatalf("cannot write test file: %v", err)
	}
	got, err := targets.ParseFile(p)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("parsed %d targets (expected 2)", len(got))
	}
	if _, err := targets.ParseFile(path.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Errorf("ParseFile succeeded on a missing file")
	}
}
