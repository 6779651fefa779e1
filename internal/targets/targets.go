// Package targets reads world target lists. The format is line-oriented
// and whitespace-delimited: the first token is the world identifier, the
// second its label. Blank lines and lines starting with '#' are skipped.
package targets

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/worldtick/worldtick/pkg/tick1/model"
)

// Parse reads targets from r. Malformed lines are skipped with a notice,
// not treated as fatal.
func Parse(r io.Reader) ([]model.Target, error) {
	var targets []model.Target
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			log.Warn("skipping malformed target line", "line", lineNo)
			continue
		}
		targets = append(targets, model.Target{
			ID:    fields[0],
			Label: fields[1],
		})
	}
	return targets, scanner.Err()
}

// ParseFile reads targets from the file at path.
func ParseFile(path string) ([]model.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}
