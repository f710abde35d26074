package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spendcast/internal/services"
)

func writeCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("user_id,date,description,amount,category,type\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "u1,2024-01-%02d,groceries,%d.50,food,expense\n", i, 10+i)
	}
	b.WriteString("u1,2024-01-05,salary,2000,salary,income\n")

	path := filepath.Join(t.TempDir(), "transactions.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPredictCommandJSON(t *testing.T) {
	file := writeCSV(t)
	out, err := run(t, "predict", "u1", "--file", file, "--days", "5", "--json", "--sequence-backend", "none")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}

	var resp services.PredictionResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if resp.UserID != "u1" || len(resp.Predictions) != 5 || resp.ModelType != "linear" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCompareCommandTable(t *testing.T) {
	file := writeCSV(t)
	out, err := run(t, "compare", "u1", "--file", file, "--days", "7", "--json=false", "--sequence-backend", "none")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !strings.Contains(out, "MODEL COMPARISON") || !strings.Contains(out, "linear") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestUnknownUser(t *testing.T) {
	file := writeCSV(t)
	_, err := run(t, "insights", "ghost", "--file", file, "--json=false", "--sequence-backend", "none")
	if err == nil || !strings.Contains(err.Error(), "no transaction data") {
		t.Fatalf("expected no transaction error, got %v", err)
	}
}

func TestMissingFile(t *testing.T) {
	_, err := run(t, "predict", "u1", "--file", filepath.Join(t.TempDir(), "nope.csv"), "--json=false")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
