package persistence_test

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/worldtick/worldtick/internal/persistence"
)

// A struct that can be marshalled to JSON.
type MarshallableStruct struct {
	Test string
}

func TestWriteDataFile(t *testing.T) {
	tempDir := t.TempDir()
	testdata := MarshallableStruct{Test: "foo"}
	df, err := persistence.WriteDataFile(tempDir, "type", "subtest", "fake-uuid", testdata)
	if err != nil {
		t.Fatalf("cannot create test datafile: %v", err)
	}

	if df.Prefix != tempDir || df.Datatype != "type" ||
		df.Subtest != "subtest" || df.UUID != "fake-uuid" {
		t.Fatalf("invalid field values in DataFile")
	}

	// Check the generated path.
	prefix := fmt.Sprintf("%s/type/%s/type-subtest-", tempDir,
		time.Now().Format("2006/01/02"))
	if !strings.HasPrefix(df.Path, prefix) ||
		!strings.HasSuffix(df.Path, "fake-uuid.json") {
		t.Errorf("invalid output path: %s", df.Path)
	}
	// Check the file contents.
	content, err := os.ReadFile(df.Path)
	if err != nil {
		t.Errorf("error while reading file content: %v", err)
	}
	if string(content) != `{"Test":"foo"}` {
		t.Errorf("unexpected file content: %s", string(content))
	}
	if df.Size != len(content) {
		t.Errorf("invalid Size: %d (should be %d)", df.Size, len(content))
	}
}

func TestWriteDataFile_UnmarshallableResult(t *testing.T) {
	_, err := persistence.WriteDataFile(t.TempDir(), "type", "subtest",
		"fake-uuid", make(chan int))
	if err == nil {
		t.Errorf("WriteDataFile succeeded with an unmarshallable result")
	}
}
