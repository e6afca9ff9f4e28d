package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
)

// LoadCSV reads a headered CSV export into rows. Short records are
// tolerated; missing cells resolve to empty fields.
func LoadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}
	header := records[0]
	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		raw := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(record) {
				raw[key] = record[i]
			}
		}
		rows = append(rows, Resolve(raw))
	}
	return rows, nil
}

// LoadJSON reads a mobile-money JSON statement: an array of objects
// whose values may be strings or numbers.
func LoadJSON(r io.Reader) ([]Row, error) {
	var objects []map[string]any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("failed to read json statement: %w", err)
	}
	rows := make([]Row, 0, len(objects))
	for _, obj := range objects {
		raw := make(map[string]string, len(obj))
		for key, value := range obj {
			switch v := value.(type) {
			case string:
				raw[key] = v
			case float64:
				raw[key] = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
			case bool:
				raw[key] = fmt.Sprintf("%t", v)
			}
		}
		rows = append(rows, Resolve(raw))
	}
	return rows, nil
}

// LoadXML reads an XML statement export. Each child of the document
// root is treated as one record, its child elements as key-value
// pairs, e.g. <statement><transaction><receipt>..</receipt>...
func LoadXML(r io.Reader) ([]Row, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to parse xml statement: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("xml statement has no root element")
	}
	var rows []Row
	for _, record := range root.ChildElements() {
		raw := make(map[string]string)
		for _, field := range record.ChildElements() {
			raw[field.Tag] = strings.TrimSpace(field.Text())
		}
		if len(raw) > 0 {
			rows = append(rows, Resolve(raw))
		}
	}
	return rows, nil
}

// Load dispatches on a format name: csv, json or xml.
func Load(r io.Reader, format string) ([]Row, error) {
	switch strings.ToLower(format) {
	case "csv":
		return LoadCSV(r)
	case "json":
		return LoadJSON(r)
	case "xml":
		return LoadXML(r)
	default:
		return nil, fmt.Errorf("unsupported statement format: %s", format)
	}
}
