// Package memory keeps transactions in process, optionally seeded from a
// CSV file.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"spendcast/internal/core"
	"spendcast/internal/source"
)

// Columns of the seed CSV, in order. The header row is required.
var csvHeader = []string{"user_id", "date", "description", "amount", "category", "type"}

type Store struct {
	mu    sync.RWMutex
	items []core.Transaction
}

func New(seed []core.Transaction) *Store {
	return &Store{items: append([]core.Transaction(nil), seed...)}
}

// NewFromFile seeds a store from a CSV file. A missing file yields an empty
// store; a malformed one is an error.
func NewFromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	txs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return New(txs), nil
}

// ReadCSV parses transactions from r. Amounts accept the same formats as
// spreadsheet cells; records with an unparseable date or amount are errors.
func ReadCSV(r io.Reader) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, col := range csvHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return nil, fmt.Errorf("unexpected header %q at column %d, want %q", header[i], i+1, col)
		}
	}

	var out []core.Transaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		date, err := core.ParseDate(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		amount, ok := core.ParseSheetAmount(rec[3])
		if !ok {
			return nil, fmt.Errorf("line %d: %w: %q", line, core.ErrInvalidAmount, rec[3])
		}
		out = append(out, core.Transaction{
			UserID:      strings.TrimSpace(rec[0]),
			Date:        date,
			Description: strings.TrimSpace(rec[2]),
			Amount:      amount,
			Category:    strings.TrimSpace(rec[4]),
			Type:        core.TransactionType(strings.ToLower(strings.TrimSpace(rec[5]))),
		})
	}
	return out, nil
}

// WriteCSV writes txs in the format ReadCSV accepts.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range txs {
		rec := []string{t.UserID, t.Date.Format("2006-01-02"), t.Description, t.Amount.StringFixed(2), t.Category, string(t.Type)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Store) ListTransactions(_ context.Context, q source.Query) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return source.Apply(q, s.items), nil
}

// AppendTransaction stores the transaction and returns a synthetic reference.
func (s *Store) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// All returns a copy of every stored transaction in insertion order.
func (s *Store) All() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.items...)
}
