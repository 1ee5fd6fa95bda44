// Package pipeline drives the extraction batch: file discovery, the retry
// policy around provider calls, sequential orchestration, and collision-safe
// renaming of processed invoices.
package pipeline

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExcludeKeywords skips the travel itineraries and checkout receipts
// that tend to land in the same folder as real invoices.
var DefaultExcludeKeywords = []string{"行程单", "itinerary", "receipt"}

var invoiceExts = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// Walk enumerates invoice candidates under root: recursive, extension
// filtered, excluding any file whose name contains one of the keywords.
// The result is sorted by path so repeated runs over an unchanged tree
// process files in the same order. Walk never caches; re-invoking re-walks.
func Walk(root string, excludeKeywords []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !invoiceExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		name := strings.ToLower(d.Name())
		for _, kw := range excludeKeywords {
			if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// IsPDF reports whether path needs rasterization before upload.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
