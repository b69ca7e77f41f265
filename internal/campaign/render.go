package campaign

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/osteele/liquid"
	"github.com/yuin/goldmark"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

// Body formats accepted for a campaign message
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// renderer turns the campaign message into per-recipient HTML and text bodies.
// The template is parsed once per run.
type renderer struct {
	source   string
	template *liquid.Template
	text     *bluemonday.Policy
}

func newRenderer(engine *liquid.Engine, md goldmark.Markdown, message, format string) (*renderer, error) {
	source := message
	if format == FormatMarkdown {
		var buf bytes.Buffer
		if err := md.Convert([]byte(message), &buf); err != nil {
			return nil, fmt.Errorf("convert markdown: %w", err)
		}
		source = buf.String()
	}

	r := &renderer{source: source, text: bluemonday.StrictPolicy()}

	// A message that is not a valid template is sent as written
	if tpl, err := engine.ParseString(source); err == nil {
		r.template = tpl
	}
	return r, nil
}

// HTML personalizes the body for one recipient
func (r *renderer) HTML(rcpt model.Recipient) string {
	if r.template == nil {
		return r.source
	}
	out, err := r.template.RenderString(liquid.Bindings{
		"name":  rcpt.Name,
		"email": rcpt.Email,
	})
	if err != nil {
		return r.source
	}
	return out
}

// Text derives a plain-text alternative from an HTML body
func (r *renderer) Text(body string) string {
	stripped := html.UnescapeString(r.text.Sanitize(body))

	lines := strings.Split(stripped, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
