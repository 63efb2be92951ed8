package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yourusername/linkedin-connector/internal/connection"
)

const (
	Filename    = "linkedin_results.csv"
	ContentType = "text/csv"

	ColumnProfileURL = "profile_url"
	ColumnInviteMsg  = "invite_msg"
)

var header = []string{"Profile", "Status"}

// ErrMissingColumn is returned when the upload lacks a required column
var ErrMissingColumn = errors.New("missing required column")

// Row is one line of the exported report
type Row struct {
	Profile string
	Status  string
}

// LoadTasks reads the uploaded table. Column order is free and extra
// columns are ignored.
func LoadTasks(r io.Reader) ([]connection.Task, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	head, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	urlIdx, msgIdx := -1, -1
	for i, name := range head {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case ColumnProfileURL:
			urlIdx = i
		case ColumnInviteMsg:
			msgIdx = i
		}
	}
	if urlIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnProfileURL)
	}
	if msgIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnInviteMsg)
	}

	var tasks []connection.Task
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		task := connection.Task{
			ProfileURL: strings.TrimSpace(field(record, urlIdx)),
			InviteMsg:  field(record, msgIdx),
		}
		if task.ProfileURL == "" {
			return nil, fmt.Errorf("row %d: empty %s", line, ColumnProfileURL)
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// FormatStatus joins the status text and the timestamp of a result
func FormatStatus(r connection.Result) string {
	return fmt.Sprintf("%s (%s)", r.Status, r.TimestampString())
}

// Rows converts results into report rows, keeping their order
func Rows(results []connection.Result) []Row {
	rows := make([]Row, len(results))
	for i, r := range results {
		rows[i] = Row{Profile: r.ProfileURL, Status: FormatStatus(r)}
	}
	return rows
}

// Write exports results as CSV with a Profile,Status header
func Write(w io.Writer, results []connection.Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range Rows(results) {
		if err := writer.Write([]string{row.Profile, row.Status}); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadResults parses a report produced by Write
func ReadResults(r io.Reader) ([]Row, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	if len(records) == 0 || len(records[0]) != 2 || records[0][0] != header[0] || records[0][1] != header[1] {
		return nil, fmt.Errorf("unexpected report header")
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, Row{Profile: rec[0], Status: rec[1]})
	}
	return rows, nil
}

func field(record []string, idx int) string {
	if idx < len(record) {
		return record[idx]
	}
	return ""
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
