// Package flatfiles downloads and parses daily minute-aggregate flat
// files used to seed a replay run: one gzip-compressed CSV per trading
// day, every row one symbol-minute with ticker, OHLCV, a nanosecond
// window_start, and a transaction count. No object-storage SDK is wired
// here — the bucket this data lives in is reachable over plain HTTPS, so
// net/http is enough and avoids pulling in a cloud SDK for a single GET.
package flatfiles

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Bar is one symbol-minute row from a flat file.
type Bar struct {
	Symbol       string
	Ts           time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       int64
	Transactions int64
}

// Download fetches the flat file for a given date into destDir, skipping
// the request if a valid cached copy already exists. baseURL is expected
// to end just before the "/YYYY/MM/YYYY-MM-DD.csv.gz" path Polygon-style
// buckets use.
func Download(baseURL, destDir string, day time.Time) (string, error) {
	dateStr := day.Format("2006-01-02")
	destPath := filepath.Join(destDir, dateStr+".csv.gz")

	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		return destPath, nil
	}

	url := fmt.Sprintf("%s/%s/%s/%s.csv.gz", strings.TrimRight(baseURL, "/"), day.Format("2006"), day.Format("01"), dateStr)

	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("flatfile download failed for %s: %w", dateStr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("flatfile download for %s returned status %d", dateStr, resp.StatusCode)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("creating flatfile cache dir: %w", err)
	}
	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating flatfile cache file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing flatfile cache file: %w", err)
	}
	out.Close()
	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("finalizing flatfile cache file: %w", err)
	}
	return destPath, nil
}

// Load parses a gzip-compressed minute-aggregate CSV, restricting the
// result to the given symbol set when non-empty. Rows for symbols
// outside the set are skipped without error — the file holds the whole
// market, and a replay run usually wants a handful of tickers.
func Load(path string, symbols map[string]bool) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening flatfile %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompressing flatfile %s: %w", path, err)
	}
	defer gz.Close()

	r := csv.NewReader(gz)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading flatfile header %s: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	required := []string{"ticker", "volume", "open", "close", "high", "low", "window_start"}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("flatfile %s missing required column %q", path, name)
		}
	}

	var bars []Bar
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // a single malformed row doesn't abort the whole file
		}
		symbol := strings.ToUpper(strings.TrimSpace(row[col["ticker"]]))
		if len(symbols) > 0 && !symbols[symbol] {
			continue
		}
		nanos, err := strconv.ParseInt(row[col["window_start"]], 10, 64)
		if err != nil {
			continue
		}
		bar := Bar{
			Symbol: symbol,
			Ts:     time.Unix(0, nanos),
		}
		bar.Open, _ = strconv.ParseFloat(row[col["open"]], 64)
		bar.High, _ = strconv.ParseFloat(row[col["high"]], 64)
		bar.Low, _ = strconv.ParseFloat(row[col["low"]], 64)
		bar.Close, _ = strconv.ParseFloat(row[col["close"]], 64)
		bar.Volume, _ = strconv.ParseInt(row[col["volume"]], 10, 64)
		if i, ok := col["transactions"]; ok {
			bar.Transactions, _ = strconv.ParseInt(row[i], 10, 64)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
