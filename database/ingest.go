package database

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// IngestResult summarizes a bulk CSV load. SiteIDs lists the distinct sites
// that received rows, in first-seen order, so callers can invalidate derived
// caches.
type IngestResult struct {
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
	SiteIDs  []string `json:"site_ids,omitempty"`
}

// BulkLoader streams meter readings into the database using COPY.
type BulkLoader struct {
	pool *SQLPool
}

// NewBulkLoader creates a new CSV bulk loader
func NewBulkLoader(pool *SQLPool) *BulkLoader {
	return &BulkLoader{pool: pool}
}

// LoadCSV ingests rows of the form site_id,meter_id,timestamp,value,unit.
// Malformed rows are skipped and counted, never fatal; only transport-level
// failures abort the load. Timestamps are RFC3339.
func (l *BulkLoader) LoadCSV(r io.Reader) (*IngestResult, error) {
	tx, err := l.pool.Conn().Begin()
	if err != nil {
		return nil, fmt.Errorf("LoadCSV: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(pq.CopyIn("meter_readings", "site_id", "meter_id", "timestamp", "value_kwh", "unit"))
	if err != nil {
		return nil, fmt.Errorf("LoadCSV: prepare copy: %w", err)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	result := &IngestResult{}
	seenSites := make(map[string]bool)
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Skipped++
			continue
		}
		// Header row
		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "site_id") {
			continue
		}

		row, ok := parseReadingRecord(record)
		if !ok {
			result.Skipped++
			continue
		}

		if _, err := stmt.Exec(row.siteID, row.meterID, row.ts, row.value, row.unit); err != nil {
			return nil, fmt.Errorf("LoadCSV: copy row %d: %w", line, err)
		}
		result.Inserted++
		if !seenSites[row.siteID] {
			seenSites[row.siteID] = true
			result.SiteIDs = append(result.SiteIDs, row.siteID)
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.Exec(); err != nil {
		return nil, fmt.Errorf("LoadCSV: flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return nil, fmt.Errorf("LoadCSV: close copy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("LoadCSV: commit: %w", err)
	}

	log.Printf("✅ CSV ingest complete: %d inserted, %d skipped", result.Inserted, result.Skipped)
	return result, nil
}

// csvRow is one validated meter reading parsed from a CSV record
type csvRow struct {
	siteID  string
	meterID string
	ts      time.Time
	value   float64
	unit    string
}

// parseReadingRecord validates one site_id,meter_id,timestamp,value[,unit]
// record. The unit defaults to kwh when absent.
func parseReadingRecord(record []string) (csvRow, bool) {
	if len(record) < 4 {
		return csvRow{}, false
	}

	siteID := strings.TrimSpace(record[0])
	if siteID == "" {
		return csvRow{}, false
	}

	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(record[2]))
	if err != nil {
		return csvRow{}, false
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
	if err != nil {
		return csvRow{}, false
	}

	unit := "kwh"
	if len(record) >= 5 && strings.TrimSpace(record[4]) != "" {
		unit = strings.ToLower(strings.TrimSpace(record[4]))
	}

	return csvRow{
		siteID:  siteID,
		meterID: strings.TrimSpace(record[1]),
		ts:      ts,
		value:   value,
		unit:    unit,
	}, true
}
