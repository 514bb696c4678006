package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "statement.txt")
	if err := os.WriteFile(file, []byte("content"), 0o644); err != nil {
		t.Fatalf("fixture write failed: %v", err)
	}

	if err := validateFileExists(file, "statement file"); err != nil {
		t.Errorf("existing file must validate: %v", err)
	}
	if err := validateFileExists("", "statement file"); err == nil {
		t.Error("empty path must be rejected")
	}
	if err := validateFileExists(filepath.Join(dir, "missing.txt"), "statement file"); err == nil {
		t.Error("missing file must be rejected")
	}
	if err := validateFileExists(dir, "statement file"); err == nil {
		t.Error("directory must be rejected")
	}
}

func TestOpenReportStdout(t *testing.T) {
	generator, out, cleanup, err := openReport("console", "")
	if err != nil {
		t.Fatalf("openReport failed: %v", err)
	}
	defer cleanup()

	if generator == nil {
		t.Fatal("expected a generator")
	}
	if out != os.Stdout {
		t.Error("empty output path must mean stdout")
	}
}

func TestOpenReportRejectsUnknownFormat(t *testing.T) {
	if _, _, _, err := openReport("xml", ""); err == nil {
		t.Error("unknown format must be rejected")
	}
}
