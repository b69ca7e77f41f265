package tracking

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// transparentGIF is a 1x1 transparent GIF89a.
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00,
	0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x01,
	0x44, 0x00, 0x3b,
}

// Pixel returns a copy of the open-tracking image
func Pixel() []byte {
	return append([]byte(nil), transparentGIF...)
}

// ServePixel writes the tracking image with headers that keep mail clients
// and proxies from caching it.
func ServePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Content-Length", strconv.Itoa(len(transparentGIF)))
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(transparentGIF)
}

// Schemes a click redirect never follows
var blockedSchemes = map[string]bool{
	"javascript": true,
	"data":       true,
	"vbscript":   true,
}

// SafeRedirectTarget returns the link target unchanged unless it is empty,
// unparsable or uses a script-capable scheme, in which case it returns "/".
func SafeRedirectTarget(raw string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || blockedSchemes[strings.ToLower(u.Scheme)] {
		return "/"
	}
	return target
}
