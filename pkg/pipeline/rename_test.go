package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sheldonz/invoscan/pkg/invoice"
	"github.com/shopspring/decimal"
)

func successRecord(path, buyer, amount string) invoice.Record {
	d, _ := decimal.NewFromString(amount)
	return invoice.Record{
		SourcePath:  path,
		AmountTotal: d,
		BuyerName:   buyer,
		Status:      invoice.StatusSuccess,
	}
}

func TestRenameAll_BasicTarget(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "scan001.pdf")

	records := []invoice.Record{
		successRecord(filepath.Join(root, "scan001.pdf"), "测试科技公司", "1234.50"),
	}

	results := RenameAll(records)
	if len(results) != 1 || !results[0].Renamed {
		t.Fatalf("results = %+v", results)
	}

	want := filepath.Join(root, "1234.50-测试科技公司.pdf")
	if results[0].Target != want {
		t.Errorf("Target = %q, want %q", results[0].Target, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("target missing on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "scan001.pdf")); !os.IsNotExist(err) {
		t.Error("source should be gone after rename")
	}
}

// Two records resolving to the same name must land as X.ext and X-1.ext.
func TestRenameAll_CollisionSuffix(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.pdf", "b.pdf")

	records := []invoice.Record{
		successRecord(filepath.Join(root, "a.pdf"), "ACME", "100.00"),
		successRecord(filepath.Join(root, "b.pdf"), "ACME", "100.00"),
	}

	results := RenameAll(records)
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}

	if filepath.Base(results[0].Target) != "100.00-ACME.pdf" {
		t.Errorf("first target = %q, want 100.00-ACME.pdf", results[0].Target)
	}
	if filepath.Base(results[1].Target) != "100.00-ACME-1.pdf" {
		t.Errorf("second target = %q, want 100.00-ACME-1.pdf", results[1].Target)
	}
	for _, r := range results {
		if _, err := os.Stat(r.Target); err != nil {
			t.Errorf("target %s missing: %v", r.Target, err)
		}
	}
}

func TestRenameAll_CollisionWithExistingFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.pdf", "100.00-ACME.pdf")

	records := []invoice.Record{
		successRecord(filepath.Join(root, "a.pdf"), "ACME", "100.00"),
	}

	results := RenameAll(records)
	if filepath.Base(results[0].Target) != "100.00-ACME-1.pdf" {
		t.Errorf("Target = %q, want suffix past the existing file", results[0].Target)
	}
}

func TestRenameAll_SkipsFailedRecords(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "bad.pdf")

	records := []invoice.Record{
		invoice.FailedRecord(filepath.Join(root, "bad.pdf"), invoice.TagAmountNotFound, "no amount"),
	}

	if results := RenameAll(records); len(results) != 0 {
		t.Errorf("results = %+v, want none for failed records", results)
	}
	if _, err := os.Stat(filepath.Join(root, "bad.pdf")); err != nil {
		t.Error("failed record's file must not be touched")
	}
}

func TestRenameAll_MissingSourceRecordsError(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "b.pdf")

	records := []invoice.Record{
		successRecord(filepath.Join(root, "gone.pdf"), "ACME", "10.00"),
		successRecord(filepath.Join(root, "b.pdf"), "Globex", "20.00"),
	}

	results := RenameAll(records)
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Err == nil {
		t.Error("first rename should fail, source does not exist")
	}
	if !results[1].Renamed {
		t.Error("second rename should still run after the first failed")
	}
}

func TestProposeRenames_LeavesDiskAlone(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.pdf")
	src := filepath.Join(root, "a.pdf")

	results := ProposeRenames([]invoice.Record{successRecord(src, "ACME", "55.00")})

	if len(results) != 1 || results[0].Renamed {
		t.Fatalf("results = %+v", results)
	}
	if _, err := os.Stat(src); err != nil {
		t.Error("source must still exist after a propose-only pass")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ACME Corp", "ACME_Corp"},
		{`A/C\M:E*?"<>|`, "A_C_M_E______"},
		{"  spaced  ", "spaced"},
		{"北京市海淀区中关村软件园发展有限责任公司", "北京市海淀区中关村软件园发展有"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
