package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when the inventory header lacks a required column.
var ErrMissingColumn = errors.New("catalog: missing required column")

// LoadCSVFile reads an inventory CSV from disk.
func LoadCSVFile(path string) ([]Car, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV parses the inventory export. Columns are matched by header name
// (case-insensitive); unknown columns are ignored. Rows with unparseable
// numbers keep a zero value for that field.
func LoadCSV(r io.Reader) ([]Car, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{"make", "model"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var cars []Car
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: read row: %w", err)
		}
		price, _ := strconv.ParseFloat(field(row, "price"), 64)
		km, _ := strconv.Atoi(field(row, "km"))
		year, _ := strconv.Atoi(field(row, "year"))
		cars = append(cars, Car{
			StockID: field(row, "stock_id"),
			KM:      km,
			Price:   price,
			Make:    field(row, "make"),
			Model:   field(row, "model"),
			Year:    year,
			Version: field(row, "version"),
		})
	}
	return cars, nil
}
