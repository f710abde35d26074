package memory

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendcast/internal/core"
	"spendcast/internal/source"
)

const sample = `user_id,date,description,amount,category,type
u1,2024-01-02,Lunch,12.50,food,expense
u1,2024-01-01,Salary,2000,salary,income
u1,2024-01-01,Bus,"1,50",transport,expense
u2,2024-01-03,Coffee,3,food,expense
`

func TestReadCSV(t *testing.T) {
	txs, err := ReadCSV(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(txs) != 4 {
		t.Fatalf("expected 4 records, got %d", len(txs))
	}
	bus := txs[2]
	if !bus.Amount.Equal(decimal.RequireFromString("1.5")) || bus.Category != "transport" || bus.Type != core.Expense {
		t.Fatalf("unexpected record %+v", bus)
	}
}

func TestReadCSVErrors(t *testing.T) {
	cases := map[string]string{
		"bad header": "user,date,description,amount,category,type\n",
		"bad date":   "user_id,date,description,amount,category,type\nu1,yesterday,x,1,food,expense\n",
		"bad amount": "user_id,date,description,amount,category,type\nu1,2024-01-01,x,lots,food,expense\n",
		"short row":  "user_id,date,description,amount,category,type\nu1,2024-01-01,x\n",
	}
	for name, in := range cases {
		if _, err := ReadCSV(strings.NewReader(in)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if txs, err := ReadCSV(strings.NewReader("")); err != nil || len(txs) != 0 {
		t.Fatalf("empty input: %v %v", txs, err)
	}
}

func TestStoreListAndAppend(t *testing.T) {
	txs, _ := ReadCSV(strings.NewReader(sample))
	s := New(txs)
	ctx := context.Background()

	got, err := s.ListTransactions(ctx, source.ExpensesOf("u1", ""))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Description != "Bus" {
		t.Fatalf("expected u1 expenses sorted by date, got %+v", got)
	}

	ref, err := s.AppendTransaction(ctx, core.Transaction{
		UserID:      "u1",
		Description: "Dinner",
		Amount:      decimal.NewFromInt(30),
		Date:        time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		Category:    "food",
		Type:        core.Expense,
	})
	if err != nil || ref != "mem:5" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	if _, err := s.AppendTransaction(ctx, core.Transaction{UserID: "u1"}); err == nil {
		t.Fatalf("expected validation error")
	}
	got, _ = s.ListTransactions(ctx, source.ExpensesOf("u1", "food"))
	if len(got) != 2 {
		t.Fatalf("expected 2 food expenses after append, got %d", len(got))
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFile(filepath.Join(dir, "missing.csv"))
	if err != nil || len(s.All()) != 0 {
		t.Fatalf("missing file should give an empty store: %v", err)
	}

	txs, _ := ReadCSV(strings.NewReader(sample))
	var buf bytes.Buffer
	if err := WriteCSV(&buf, txs); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	path := filepath.Join(dir, "tx.csv")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	if n := len(s.All()); n != len(txs) {
		t.Fatalf("expected %d records, got %d", len(txs), n)
	}
}
