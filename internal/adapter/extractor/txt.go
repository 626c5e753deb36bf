package extractor

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// readTXT returns the file verbatim. Invalid UTF-8 sequences become U+FFFD.
// An empty file is a valid, empty document.
func readTXT(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}
