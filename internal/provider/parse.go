package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

// ErrEmptyFile is returned when an uploaded credentials file yields no providers
var ErrEmptyFile = errors.New("no valid provider entries found")

type fileEntry struct {
	Label    string `json:"label" yaml:"label"`
	Service  string `json:"service" yaml:"service"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Host     string `json:"host" yaml:"host"`
	Port     any    `json:"port" yaml:"port"`
}

// ParseFile parses an uploaded SMTP credentials file. The format is chosen
// by extension: .json and .yaml/.yml hold a map keyed by provider id, any
// other extension is read as NAME|service|user|password|label|host|port lines.
func ParseFile(filename string, data []byte) (map[string]model.Provider, error) {
	var (
		providers map[string]model.Provider
		err       error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		var entries map[string]fileEntry
		if err = json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse json providers: %w", err)
		}
		providers = fromEntries(entries)
	case ".yaml", ".yml":
		var entries map[string]fileEntry
		if err = yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse yaml providers: %w", err)
		}
		providers = fromEntries(entries)
	default:
		providers = parsePipeText(string(data))
	}

	if len(providers) == 0 {
		return nil, ErrEmptyFile
	}
	return providers, nil
}

func fromEntries(entries map[string]fileEntry) map[string]model.Provider {
	out := make(map[string]model.Provider, len(entries))
	for id, e := range entries {
		p := model.Provider{
			ID:       id,
			Label:    e.Label,
			Service:  e.Service,
			User:     e.User,
			Password: e.Password,
			Host:     e.Host,
			Port:     parsePort(e.Port),
		}
		if !p.Complete() {
			continue
		}
		p.DefaultLabel()
		out[id] = p
	}
	return out
}

func parsePipeText(content string) map[string]model.Provider {
	out := make(map[string]model.Provider)
	index := 0

	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		index++

		parts := strings.Split(line, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 4 {
			continue
		}
		field := func(i int) string {
			if i < len(parts) {
				return parts[i]
			}
			return ""
		}

		id := parts[0]
		if id == "" {
			id = fmt.Sprintf("UPLOADED_%d", index)
		}
		p := model.Provider{
			ID:       id,
			Service:  parts[1],
			User:     parts[2],
			Password: parts[3],
			Label:    field(4),
			Host:     field(5),
			Port:     parsePort(field(6)),
		}
		p.DefaultLabel()
		out[id] = p
	}
	return out
}

func parsePort(v any) int {
	switch p := v.(type) {
	case int:
		return p
	case float64:
		return int(p)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
