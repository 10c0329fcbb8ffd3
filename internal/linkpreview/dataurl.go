package linkpreview

import (
	"encoding/base64"
	"strings"

	"github.com/docbox-nz/docbox/internal/docerr"
)

// parseDataURL decodes a base64 data: URL of the form
// data:<mime>;base64,<payload>. Non-base64 encodings are rejected.
func parseDataURL(dataURL string) (*ResolvedImage, error) {
	rest := strings.TrimPrefix(dataURL, "data:")

	mediaType, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, docerr.InvalidInput("invalid data url")
	}

	mime, encoding, ok := strings.Cut(mediaType, ";")
	if !ok || encoding != "base64" {
		return nil, docerr.InvalidInput("unhandled data url format")
	}
	if mime == "" {
		return nil, docerr.InvalidInput("data url missing mime type")
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, docerr.InvalidInput("invalid data url base64")
	}
	return &ResolvedImage{ContentType: mime, Bytes: decoded}, nil
}
