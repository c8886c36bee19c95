// Package historical loads the read-only per-symbol HistoricalStats map
// consumed by the detector: CSV is the primary format; an optional
// Postgres-backed loader serves deployments that already keep the
// 20-day rollups in the trading database.
package historical

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"momentumsentry/detector"
)

// LoadCSV reads a `symbol, avg_volume_20d, avg_range_20d, last_updated`
// file. Malformed rows are skipped with a warning rather than failing
// the whole load — a bad historical-stats file must not stop the engine
// from starting with degraded (base-threshold) behavior.
func LoadCSV(path string) (map[string]detector.HistoricalStats, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("ℹ️  no historical stats file at %s, using base thresholds", path)
			return map[string]detector.HistoricalStats{}, nil
		}
		return nil, fmt.Errorf("open historical stats: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	out := make(map[string]detector.HistoricalStats)
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read historical stats: %w", err)
		}
		if first {
			first = false
			if len(row) > 0 && (strings.EqualFold(row[0], "symbol")) {
				continue
			}
		}
		if len(row) < 3 {
			log.Printf("⚠️  skipping malformed historical stats row: %v", row)
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(row[0]))
		avgVol, errV := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		avgRange, errR := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if errV != nil || errR != nil {
			log.Printf("⚠️  skipping unparseable historical stats row for %s", symbol)
			continue
		}
		out[symbol] = detector.HistoricalStats{AvgVolume20d: avgVol, AvgRange20d: avgRange}
	}

	log.Printf("✅ loaded historical stats for %d symbols from %s", len(out), path)
	return out, nil
}

// LoadPostgres reads the same stats from a `symbol_stats_20d` table,
// an alternate source for deployments that already maintain it in the
// trading database instead of shipping a flat CSV.
func LoadPostgres(dsn string) (map[string]detector.HistoricalStats, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open historical stats db: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT symbol, avg_volume_20d, avg_range_20d FROM symbol_stats_20d`)
	if err != nil {
		return nil, fmt.Errorf("query historical stats: %w", err)
	}
	defer rows.Close()

	out := make(map[string]detector.HistoricalStats)
	for rows.Next() {
		var symbol string
		var avgVol, avgRange float64
		if err := rows.Scan(&symbol, &avgVol, &avgRange); err != nil {
			return nil, fmt.Errorf("scan historical stats row: %w", err)
		}
		out[strings.ToUpper(symbol)] = detector.HistoricalStats{AvgVolume20d: avgVol, AvgRange20d: avgRange}
	}
	return out, rows.Err()
}
