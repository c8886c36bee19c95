package flatfiles

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func writeGzipCSV(t *testing.T, path, content string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("writing gzip content: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing test flatfile: %v", err)
	}
}

func TestLoadFiltersBySymbolAndParsesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2024-06-10.csv.gz")
	csv := "ticker,volume,open,close,high,low,window_start,transactions\n" +
		"AAPL,27000,10.00,10.40,10.45,9.95,1718020200000000000,412\n" +
		"ZZZZ,500,1.00,1.01,1.02,0.99,1718020200000000000,3\n"
	writeGzipCSV(t, path, csv)

	bars, err := Load(path, map[string]bool{"AAPL": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar after symbol filter, got %d", len(bars))
	}
	b := bars[0]
	if b.Symbol != "AAPL" || b.Volume != 27000 || b.Transactions != 412 {
		t.Fatalf("unexpected bar: %+v", b)
	}
	if b.Close != 10.40 {
		t.Fatalf("expected close 10.40, got %v", b.Close)
	}
}

func TestLoadWithEmptySymbolSetKeepsEverything(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2024-06-11.csv.gz")
	csv := "ticker,volume,open,close,high,low,window_start,transactions\n" +
		"AAPL,27000,10.00,10.40,10.45,9.95,1718020200000000000,412\n" +
		"MSFT,15000,55.00,55.50,55.60,54.90,1718020200000000000,88\n"
	writeGzipCSV(t, path, csv)

	bars, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
}

func TestLoadMissingRequiredColumnErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2024-06-12.csv.gz")
	writeGzipCSV(t, path, "ticker,open,close\nAAPL,10,11\n")

	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected an error for a file missing required columns")
	}
}
