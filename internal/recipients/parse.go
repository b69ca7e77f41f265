// Package recipients parses uploaded recipient lists.
package recipients

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

// ErrUnsupported is returned for list files that cannot be decoded
var ErrUnsupported = errors.New("unsupported recipient list")

// Parse decodes a recipient list chosen by extension:
//   - .json: an array of strings or of {"email","name"} objects
//   - .csv: a header row with email/name columns, else the first two columns
//   - anything else: one "email" or "email|name" per line
//
// Entries whose address has no "@" are dropped.
func Parse(filename string, data []byte) ([]model.Recipient, error) {
	var (
		list []model.Recipient
		err  error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		list, err = parseJSON(data)
	case ".csv":
		list, err = parseCSV(data)
	default:
		list = parseText(string(data))
	}
	if err != nil {
		return nil, err
	}

	out := list[:0]
	for _, r := range list {
		r.Email = strings.TrimSpace(r.Email)
		r.Name = strings.TrimSpace(r.Name)
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out, nil
}

func parseJSON(data []byte) ([]model.Recipient, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array: %v", ErrUnsupported, err)
	}

	list := make([]model.Recipient, 0, len(items))
	for _, raw := range items {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			list = append(list, model.Recipient{Email: s})
			continue
		}
		var r model.Recipient
		if err := json.Unmarshal(raw, &r); err == nil && r.Email != "" {
			list = append(list, r)
		}
	}
	return list, nil
}

func parseCSV(data []byte) ([]model.Recipient, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	emailCol, nameCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "email":
			emailCol = i
		case "name":
			nameCol = i
		}
	}
	if emailCol < 0 {
		emailCol, nameCol = 0, 1
	}

	var list []model.Recipient
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		r := model.Recipient{}
		if emailCol < len(row) {
			r.Email = row[emailCol]
		}
		if nameCol >= 0 && nameCol < len(row) {
			r.Name = row[nameCol]
		}
		list = append(list, r)
	}
	return list, nil
}

func parseText(content string) []model.Recipient {
	var list []model.Recipient
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		email, name, _ := strings.Cut(line, "|")
		if i := strings.Index(name, "|"); i >= 0 {
			name = name[:i]
		}
		list = append(list, model.Recipient{Email: email, Name: name})
	}
	return list
}
