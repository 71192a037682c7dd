// Package caseloader parses tabular test cases into evaluation.TestCase
// records. Malformed rows are rejected here with their row numbers; the
// evaluation core only ever sees validated cases.
package caseloader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"hunter/src/core/evaluation"
	"hunter/src/log"
)

// ReferenceSeparator splits multiple reference documents packed into one
// CSV cell.
const ReferenceSeparator = "||"

var csvColumns = []string{"id", "model", "question", "reference", "answer", "latency_ms"}

// RowError records one rejected input row. Row numbering starts at 1 and
// includes the CSV header row.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// LoadResult separates the rows that parsed cleanly from the ones that did
// not. A file with some bad rows still yields all of its good cases.
type LoadResult struct {
	Cases    []evaluation.TestCase
	Rejected []RowError
}

// LoadFile dispatches on the file extension: .csv or .json.
func LoadFile(path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open test case file: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return LoadCSV(f)
	case ".json":
		return LoadJSON(f)
	default:
		return nil, fmt.Errorf("unsupported test case format %q (want .csv or .json)", ext)
	}
}

// LoadCSV reads test cases from CSV. Expected header: id, model, question,
// reference, answer, latency_ms. The id and latency_ms columns are
// optional; multiple reference documents in one cell are separated by "||".
func LoadCSV(r io.Reader) (*LoadResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("test case file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	row := 1
	for {
		row++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Rejected = append(result.Rejected, RowError{Row: row, Err: err})
			continue
		}

		tc, err := parseRecord(columns, record)
		if err != nil {
			result.Rejected = append(result.Rejected, RowError{Row: row, Err: err})
			continue
		}
		result.Cases = append(result.Cases, tc)
	}

	log.Debug("loaded CSV test cases", "cases", len(result.Cases), "rejected", len(result.Rejected))
	return result, nil
}

// jsonCase mirrors evaluation.TestCase with the loader's column names, so
// JSON files and CSV files describe cases the same way.
type jsonCase struct {
	ID        string   `json:"id"`
	Model     string   `json:"model"`
	Question  string   `json:"question"`
	Reference []string `json:"reference"`
	Answer    string   `json:"answer"`
	LatencyMS int64    `json:"latency_ms"`
}

// LoadJSON reads test cases from a JSON array.
func LoadJSON(r io.Reader) (*LoadResult, error) {
	var rows []jsonCase
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode test case JSON: %w", err)
	}

	result := &LoadResult{}
	for i, row := range rows {
		tc := evaluation.TestCase{
			ID:                 row.ID,
			Question:           row.Question,
			ReferenceDocuments: cleanReferences(row.Reference),
			CandidateAnswer:    row.Answer,
			ModelName:          row.Model,
			LatencyMS:          row.LatencyMS,
		}
		if err := finalize(&tc); err != nil {
			result.Rejected = append(result.Rejected, RowError{Row: i + 1, Err: err})
			continue
		}
		result.Cases = append(result.Cases, tc)
	}

	log.Debug("loaded JSON test cases", "cases", len(result.Cases), "rejected", len(result.Rejected))
	return result, nil
}

func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{"model", "question", "reference", "answer"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("CSV header is missing the %q column (have %v, want %v)",
				required, header, csvColumns)
		}
	}
	return columns, nil
}

func parseRecord(columns map[string]int, record []string) (evaluation.TestCase, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	tc := evaluation.TestCase{
		ID:                 field("id"),
		Question:           field("question"),
		ReferenceDocuments: cleanReferences(strings.Split(field("reference"), ReferenceSeparator)),
		CandidateAnswer:    field("answer"),
		ModelName:          field("model"),
	}

	if raw := field("latency_ms"); raw != "" {
		latency, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return evaluation.TestCase{}, fmt.Errorf("invalid latency_ms %q: %w", raw, err)
		}
		if latency < 0 {
			return evaluation.TestCase{}, fmt.Errorf("negative latency_ms %d", latency)
		}
		tc.LatencyMS = latency
	}

	if err := finalize(&tc); err != nil {
		return evaluation.TestCase{}, err
	}
	return tc, nil
}

// finalize fills in a generated ID when the row has none and applies the
// core's own validation rules.
func finalize(tc *evaluation.TestCase) error {
	if tc.ID == "" {
		tc.ID = uuid.NewString()
	}
	if strings.TrimSpace(tc.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty (case %q)", evaluation.ErrInvalidInput, tc.ID)
	}
	return tc.Validate()
}

func cleanReferences(refs []string) []string {
	var out []string
	for _, ref := range refs {
		if trimmed := strings.TrimSpace(ref); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
