package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownFormat is returned by Load for unrecognized catalog sources.
var ErrUnknownFormat = errors.New("unknown catalog format")

// Load opens a catalog by format ("csv", "json", "sqlite"). An empty format is
// inferred from the file extension. table only applies to SQLite sources.
func Load(ctx context.Context, path, format, table string, cols Columns) (*Table, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			format = "csv"
		case ".json":
			format = "json"
		case ".db", ".sqlite", ".sqlite3":
			format = "sqlite"
		}
	}

	switch format {
	case "csv":
		return LoadCSV(path, cols)
	case "json":
		return LoadJSON(path, cols)
	case "sqlite":
		return LoadSQLite(ctx, path, table, cols)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// LoadCSV reads a catalog from a CSV file with a header row.
func LoadCSV(path string, cols Columns) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	return ReadCSV(f, cols)
}

// ReadCSV reads a catalog from CSV data with a header row.
func ReadCSV(r io.Reader, cols Columns) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	rr, err := newRowReader(header, cols)
	if err != nil {
		return nil, err
	}

	var items []Item
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		it, err := rr.item(record)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	return NewTable(items, cols.Groups)
}

// LoadJSON reads a catalog from a JSON array of row objects.
func LoadJSON(path string, cols Columns) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	return ReadJSON(f, cols)
}

// ReadJSON reads a catalog from a JSON array of row objects.
func ReadJSON(r io.Reader, cols Columns) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rows []map[string]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	keys := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			keys[k] = true
		}
	}
	header := make([]string, 0, len(keys))
	for k := range keys {
		header = append(header, k)
	}
	sort.Strings(header)

	rr, err := newRowReader(header, cols)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		record := make([]string, len(header))
		for i, k := range header {
			record[i] = cellString(row[k])
			if n, ok := row[k].(json.Number); ok && k == cols.ID {
				// Numeric ids compare by value, as they do in result files.
				if id, err := CanonicalID(n); err == nil {
					record[i] = string(id)
				}
			}
		}
		it, err := rr.item(record)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	return NewTable(items, cols.Groups)
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
