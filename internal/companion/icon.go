package companion

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
)

const defaultImageType = "image/png"

// ResolveIcon turns an effect's icon field into a data URL an image element can
// use directly. Data URLs pass through, absolute and server-relative URLs are
// fetched, raw base64 is wrapped. Anything else is returned unchanged.
func (c *Client) ResolveIcon(ctx context.Context, icon string) (string, error) {
	trimmed := strings.TrimSpace(icon)

	switch {
	case trimmed == "":
		return icon, nil
	case strings.HasPrefix(trimmed, "data:"):
		return icon, nil
	case strings.HasPrefix(trimmed, "http://"), strings.HasPrefix(trimmed, "https://"):
		return c.fetchDataURL(ctx, trimmed)
	}

	// Raw image bytes can start with "/" (JPEG is "/9j/..."), so sniff before
	// treating a leading slash as a path.
	if raw, ok := decodeBase64(trimmed); ok {
		if kind := http.DetectContentType(raw); strings.HasPrefix(kind, "image/") {
			return dataURL(kind, raw), nil
		}
		if !strings.HasPrefix(trimmed, "/") {
			return "data:" + defaultImageType + ";base64," + trimmed, nil
		}
	}

	if strings.HasPrefix(trimmed, "/") {
		return c.fetchDataURL(ctx, c.baseURL+trimmed)
	}
	return icon, nil
}

func (c *Client) fetchDataURL(ctx context.Context, target string) (string, error) {
	body, header, err := c.fetch(ctx, http.MethodGet, target)
	if err != nil {
		return "", err
	}
	return dataURL(imageType(header, body), body), nil
}

func decodeBase64(s string) ([]byte, bool) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

// imageType prefers the server's image/* content type, then sniffing, then PNG.
func imageType(header http.Header, body []byte) string {
	if header != nil {
		kind := strings.TrimSpace(strings.SplitN(header.Get("Content-Type"), ";", 2)[0])
		if strings.HasPrefix(kind, "image/") {
			return kind
		}
	}
	if kind := http.DetectContentType(body); strings.HasPrefix(kind, "image/") {
		return kind
	}
	return defaultImageType
}

func dataURL(kind string, body []byte) string {
	return "data:" + kind + ";base64," + base64.StdEncoding.EncodeToString(body)
}
