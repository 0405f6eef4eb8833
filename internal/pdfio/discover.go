package pdfio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindPDFs returns the PDF files directly inside a directory, deduplicated
// case-insensitively (*.pdf and *.PDF resolve to one entry on
// case-insensitive filesystems) and sorted by name for stable batch order.
func FindPDFs(directory string) ([]string, error) {
	if directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	if _, err := os.Stat(directory); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", directory)
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", directory, err)
	}

	seen := make(map[string]struct{})
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}

		abs, err := filepath.Abs(filepath.Join(directory, entry.Name()))
		if err != nil {
			continue
		}
		key := strings.ToLower(abs)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		paths = append(paths, abs)
	}

	sort.Strings(paths)
	return paths, nil
}
