// Package watchlist loads the configurable ticker set the engine tracks:
// a newline/CSV list of upper-case symbols, first header-like row skipped.
package watchlist

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Load reads one symbol per line (or the first CSV column), skipping a
// leading literal SYMBOL or TICKER header row and blank lines.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open watchlist: %w", err)
	}
	defer f.Close()

	var symbols []string
	first := true
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if idx := strings.IndexByte(line, ','); idx >= 0 {
			line = line[:idx]
		}
		line = strings.ToUpper(strings.TrimSpace(line))

		if first {
			first = false
			if line == "SYMBOL" || line == "TICKER" {
				continue
			}
		}
		symbols = append(symbols, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("watchlist %s contained no symbols", path)
	}
	return symbols, nil
}
