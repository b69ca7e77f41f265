package mail

import (
	"fmt"
	"mime"
	"mime/quotedprintable"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// envelopeAddress extracts the bare address from a From or To header value
func envelopeAddress(header string) (string, error) {
	addr, err := netmail.ParseAddress(header)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", header, err)
	}
	return addr.Address, nil
}

// splitAddress returns the display name and bare address of a header value
func splitAddress(header string) (name, address string, err error) {
	addr, err := netmail.ParseAddress(header)
	if err != nil {
		return "", "", fmt.Errorf("invalid address %q: %w", header, err)
	}
	return addr.Name, addr.Address, nil
}

// newMessageID returns an RFC 5322 Message-ID for the sender's domain
func newMessageID(from string) string {
	domain := "localhost"
	if addr, err := envelopeAddress(from); err == nil {
		if _, d, ok := strings.Cut(addr, "@"); ok && d != "" {
			domain = d
		}
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// buildMIME renders msg as an RFC 5322 message. Bodies are quoted-printable;
// a message with both HTML and text becomes multipart/alternative.
func buildMIME(msg *Message, messageID string, now time.Time) []byte {
	var b strings.Builder

	b.WriteString("From: " + msg.From + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("Message-ID: " + messageID + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case msg.HTML != "" && msg.Text != "":
		boundary := "bulkmail_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		b.WriteString("Content-Type: multipart/alternative; boundary=" + boundary + "\r\n\r\n")
		writePart(&b, boundary, "text/plain", msg.Text)
		writePart(&b, boundary, "text/html", msg.HTML)
		b.WriteString("--" + boundary + "--\r\n")
	case msg.HTML != "":
		writeBody(&b, "text/html", msg.HTML)
	default:
		writeBody(&b, "text/plain", msg.Text)
	}

	return []byte(b.String())
}

func writePart(b *strings.Builder, boundary, contentType, body string) {
	b.WriteString("--" + boundary + "\r\n")
	writeBody(b, contentType, body)
	b.WriteString("\r\n")
}

func writeBody(b *strings.Builder, contentType, body string) {
	b.WriteString("Content-Type: " + contentType + "; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	w := quotedprintable.NewWriter(b)
	_, _ = w.Write([]byte(body))
	_ = w.Close()
	b.WriteString("\r\n")
}
