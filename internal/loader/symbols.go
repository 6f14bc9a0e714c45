package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadSymbols reads one ticker symbol per line, skipping blank lines and
// lines starting with '#'. Order is preserved and duplicates are kept.
func LoadSymbols(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	symbols, err := ParseSymbols(f)
	if err != nil {
		return nil, fmt.Errorf("read symbols file %s: %w", filePath, err)
	}
	return symbols, nil
}

// ParseSymbols reads one symbol per line. Blank lines and lines starting
// with # are ignored.
func ParseSymbols(r io.Reader) ([]string, error) {
	var symbols []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		symbols = append(symbols, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return symbols, nil
}
