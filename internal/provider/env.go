package provider

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

var envKeyRe = regexp.MustCompile(`^([A-Z0-9]+)_(SERVICE|USER|PASSWORD|HOST|PORT|LABEL)$`)

// LoadFromEnv groups NAME_SERVICE, NAME_USER, NAME_PASSWORD, NAME_HOST,
// NAME_PORT and NAME_LABEL variables into providers keyed by NAME.
// Groups missing service, user or password are skipped.
func LoadFromEnv(environ []string) map[string]model.Provider {
	groups := make(map[string]map[string]string)

	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		m := envKeyRe.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		name, field := m[1], m[2]
		if groups[name] == nil {
			groups[name] = make(map[string]string)
		}
		groups[name][field] = value
	}

	providers := make(map[string]model.Provider)
	for name, g := range groups {
		p := model.Provider{
			ID:       name,
			Label:    g["LABEL"],
			Service:  g["SERVICE"],
			User:     g["USER"],
			Password: g["PASSWORD"],
			Host:     g["HOST"],
		}
		if port, err := strconv.Atoi(g["PORT"]); err == nil {
			p.Port = port
		}
		if !p.Complete() {
			continue
		}
		p.DefaultLabel()
		providers[name] = p
	}
	return providers
}
