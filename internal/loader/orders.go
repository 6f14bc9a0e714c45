package loader

import (
	"alpaca-tools/internal/model"
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadOrders reads an orders table with a header row. The delimiter is a tab
// when the header line contains one, a comma otherwise. Column names are
// trimmed and upper-cased; no column is required at load time.
func LoadOrders(filePath string) ([]model.OrderRow, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ParseOrders(f)
	if err != nil {
		return nil, fmt.Errorf("parse orders file %s: %w", filePath, err)
	}
	return rows, nil
}

// ParseOrders is LoadOrders over an arbitrary reader.
func ParseOrders(r io.Reader) ([]model.OrderRow, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(headerPeekSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}

	reader := csv.NewReader(br)
	reader.Comma = detectDelimiter(head)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, name := range header {
		header[i] = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	}

	var orders []model.OrderRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if isBlank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)

		fields := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" || i >= len(record) {
				continue
			}
			fields[name] = strings.TrimSpace(record[i])
		}
		orders = append(orders, model.OrderRow{Line: line, Fields: fields})
	}

	return orders, nil
}

const headerPeekSize = 4096

func detectDelimiter(head []byte) rune {
	if i := strings.IndexByte(string(head), '\n'); i >= 0 {
		head = head[:i]
	}
	if strings.ContainsRune(string(head), '\t') {
		return '\t'
	}
	return ','
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
