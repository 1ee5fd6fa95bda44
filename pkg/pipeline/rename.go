package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sheldonz/invoscan/pkg/invoice"
)

// RenameResult is the outcome for one eligible record.
type RenameResult struct {
	Source  string
	Target  string
	Renamed bool
	Err     error
}

func (r RenameResult) String() string {
	src := filepath.Base(r.Source)
	dst := filepath.Base(r.Target)
	switch {
	case r.Err != nil:
		return fmt.Sprintf("rename failed %s: %v", src, r.Err)
	case r.Renamed:
		return fmt.Sprintf("renamed %s -> %s", src, dst)
	default:
		return fmt.Sprintf("would rename %s -> %s", src, dst)
	}
}

// RenameAll renames every eligible record's file to
// "<amount>-<buyer><ext>" in its source directory. Each rename is
// all-or-nothing; one failure does not stop the rest. Results come back in
// record order.
func RenameAll(records []invoice.Record) []RenameResult {
	return renameRecords(records, true)
}

// ProposeRenames computes targets without touching the filesystem beyond
// collision checks.
func ProposeRenames(records []invoice.Record) []RenameResult {
	return renameRecords(records, false)
}

func renameRecords(records []invoice.Record, apply bool) []RenameResult {
	var results []RenameResult
	// Targets handed out this run count as taken even before the rename
	// lands on disk, so two records with the same amount and buyer cannot
	// race for one name.
	claimed := map[string]bool{}

	for _, rec := range records {
		if !rec.Valid() {
			continue
		}

		target := renameTarget(rec, claimed)
		claimed[target] = true

		res := RenameResult{Source: rec.SourcePath, Target: target}
		if target == rec.SourcePath {
			// Already named correctly.
			res.Renamed = false
			results = append(results, res)
			continue
		}

		if apply {
			if err := os.Rename(rec.SourcePath, target); err != nil {
				res.Err = err
			} else {
				res.Renamed = true
			}
		}
		results = append(results, res)
	}

	return results
}

// renameTarget builds the collision-free destination path for one record.
func renameTarget(rec invoice.Record, claimed map[string]bool) string {
	dir := filepath.Dir(rec.SourcePath)
	ext := filepath.Ext(rec.SourcePath)
	base := invoice.FormatAmount(rec.AmountTotal) + "-" + sanitizeName(rec.BuyerName)

	target := filepath.Join(dir, base+ext)
	for n := 1; taken(target, rec.SourcePath, claimed); n++ {
		target = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, n, ext))
	}
	return target
}

// taken reports whether target exists on disk or was claimed this run. The
// record's own current path never counts as a collision.
func taken(target, source string, claimed map[string]bool) bool {
	if target == source {
		return false
	}
	if claimed[target] {
		return true
	}
	_, err := os.Stat(target)
	return err == nil
}

// unsafe characters are replaced so buyer names survive as file names.
const unsafeNameChars = `/\:*?"<>|`

// sanitizeName makes a buyer name filesystem-safe: whitespace and reserved
// characters become "_", the result is capped at 15 runes, and an empty
// name falls back to "unknown".
func sanitizeName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeNameChars, r) {
			return '_'
		}
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '　' {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))

	runes := []rune(mapped)
	if len(runes) > 15 {
		mapped = string(runes[:15])
	}
	if mapped == "" {
		return "unknown"
	}
	return mapped
}
