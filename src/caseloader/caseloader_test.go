package caseloader_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hunter/src/caseloader"
	"hunter/src/core/evaluation"
)

func TestLoadCSV(t *testing.T) {
	input := strings.Join([]string{
		"id,model,question,reference,answer,latency_ms",
		`c1,gpt-x,What is the capital of France?,Paris is the capital of France.,The capital of France is Paris.,120`,
		`c2,gpt-x,Name two primary colors.,Red and blue are primary colors.||Yellow is a primary color.,Red and blue.,`,
	}, "\n")

	result, err := caseloader.LoadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if len(result.Rejected) != 0 {
		t.Fatalf("LoadCSV() rejected %d rows: %v", len(result.Rejected), result.Rejected)
	}
	if len(result.Cases) != 2 {
		t.Fatalf("LoadCSV() loaded %d cases, want 2", len(result.Cases))
	}

	first := result.Cases[0]
	if first.ID != "c1" || first.ModelName != "gpt-x" || first.LatencyMS != 120 {
		t.Errorf("first case = %+v", first)
	}
	if len(first.ReferenceDocuments) != 1 {
		t.Errorf("first case has %d references, want 1", len(first.ReferenceDocuments))
	}

	second := result.Cases[1]
	if len(second.ReferenceDocuments) != 2 {
		t.Errorf("second case has %d references, want 2 (split on %q)",
			len(second.ReferenceDocuments), caseloader.ReferenceSeparator)
	}
	if second.LatencyMS != 0 {
		t.Errorf("second case LatencyMS = %d, want 0 for an empty cell", second.LatencyMS)
	}
}

func TestLoadCSVRejectsBadRowsAndKeepsGoodOnes(t *testing.T) {
	input := strings.Join([]string{
		"id,model,question,reference,answer,latency_ms",
		`good,m,Q?,R.,A.,10`,
		`no-answer,m,Q?,R.,,`,
		`bad-latency,m,Q?,R.,A.,soon`,
		`,,Q?,R.,A.,`,
	}, "\n")

	result, err := caseloader.LoadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if len(result.Cases) != 1 || result.Cases[0].ID != "good" {
		t.Errorf("kept cases = %+v, want just the good row", result.Cases)
	}
	if len(result.Rejected) != 3 {
		t.Fatalf("LoadCSV() rejected %d rows, want 3", len(result.Rejected))
	}

	wantRows := []int{3, 4, 5}
	for i, rej := range result.Rejected {
		if rej.Row != wantRows[i] {
			t.Errorf("rejection %d on row %d, want %d", i, rej.Row, wantRows[i])
		}
	}
	if !errors.Is(result.Rejected[0].Err, evaluation.ErrInvalidInput) {
		t.Errorf("empty answer rejection = %v, want ErrInvalidInput", result.Rejected[0].Err)
	}
}

func TestLoadCSVGeneratesMissingIDs(t *testing.T) {
	input := strings.Join([]string{
		"model,question,reference,answer",
		`m,Q?,R.,A.`,
		`m,Q two?,R.,A.`,
	}, "\n")

	result, err := caseloader.LoadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if len(result.Cases) != 2 {
		t.Fatalf("LoadCSV() loaded %d cases, want 2", len(result.Cases))
	}
	if result.Cases[0].ID == "" || result.Cases[1].ID == "" {
		t.Error("generated IDs must not be empty")
	}
	if result.Cases[0].ID == result.Cases[1].ID {
		t.Error("generated IDs must be distinct")
	}
}

func TestLoadCSVMissingColumn(t *testing.T) {
	input := "id,model,question,answer\nc1,m,Q?,A."
	_, err := caseloader.LoadCSV(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "reference") {
		t.Errorf("LoadCSV() error = %v, want a missing-column error naming reference", err)
	}
}

func TestLoadJSON(t *testing.T) {
	input := `[
		{"id": "c1", "model": "m", "question": "Q?", "reference": ["R one.", "R two."], "answer": "A.", "latency_ms": 42},
		{"model": "m", "question": "Q?", "reference": [], "answer": "A."}
	]`

	result, err := caseloader.LoadJSON(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadJSON() error = %v", err)
	}
	if len(result.Cases) != 1 {
		t.Fatalf("LoadJSON() loaded %d cases, want 1", len(result.Cases))
	}
	if got := result.Cases[0]; got.LatencyMS != 42 || len(got.ReferenceDocuments) != 2 {
		t.Errorf("case = %+v", got)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Row != 2 {
		t.Errorf("rejections = %+v, want the reference-less case on row 2", result.Rejected)
	}
}

func TestLoadFileDispatch(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "cases.csv")
	csvBody := "id,model,question,reference,answer\nc1,m,Q?,R.,A.\n"
	if err := os.WriteFile(csvPath, []byte(csvBody), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := caseloader.LoadFile(csvPath)
	if err != nil {
		t.Fatalf("LoadFile(csv) error = %v", err)
	}
	if len(result.Cases) != 1 {
		t.Errorf("LoadFile(csv) loaded %d cases, want 1", len(result.Cases))
	}

	txtPath := filepath.Join(dir, "cases.txt")
	if err := os.WriteFile(txtPath, []byte("whatever"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := caseloader.LoadFile(txtPath); err == nil {
		t.Error("LoadFile(txt) should reject unsupported formats")
	}

	if _, err := caseloader.LoadFile(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("LoadFile(missing) should fail")
	}
}
