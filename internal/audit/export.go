package audit

import (
	"bytes"
	"encoding/csv"
)

// CSVExporter renders timeline rows as CSV for download.
type CSVExporter struct{}

// WriteCSV renders the rows with a header line.
func (CSVExporter) WriteCSV(rows []TimelineRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	header := []string{"occurred_at", "action", "actor", "role", "target_type", "target_id", "target_name", "description", "status", "severity"}
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.At.UTC().Format("2006-01-02 15:04:05"),
			row.Action,
			row.ActorName,
			row.ActorRole,
			row.TargetType,
			row.TargetID,
			row.TargetName,
			row.Description,
			row.Status,
			row.Severity,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
