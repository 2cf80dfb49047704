package classifier

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"
)

// DefaultKeywords is the built-in corpus used when no keyword file is present.
var DefaultKeywords = []string{
	"business",
	"investment",
	"startup",
	"revenue",
	"profit",
	"marketing",
}

// LoadKeywords reads a newline-delimited keyword file. A missing file falls
// back to DefaultKeywords; any other read error yields an empty corpus, which
// makes the classifier reject everything.
func LoadKeywords(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return append([]string(nil), DefaultKeywords...)
		}
		log.Printf("keyword corpus unreadable: %v", err)
		return nil
	}

	var keywords []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		keywords = append(keywords, line)
	}
	return keywords
}
