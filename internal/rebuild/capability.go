package rebuild

import "strings"

// textExtractableMimes are the document formats the file processor can
// render to PDF and extract paged text from. Files outside this set (and
// encrypted files) are indexed by name and metadata only.
var textExtractableMimes = map[string]struct{}{
	"application/pdf": {},

	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.ms-powerpoint": {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},

	"application/vnd.oasis.opendocument.text":         {},
	"application/vnd.oasis.opendocument.spreadsheet":  {},
	"application/vnd.oasis.opendocument.presentation": {},

	"application/rtf": {},

	"message/rfc822": {},
}

// IsTextExtractable reports whether a stored TextContent artifact is
// expected to exist for a file of the given mime type. Any text/* mime
// qualifies alongside the explicit document formats.
func IsTextExtractable(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	_, ok := textExtractableMimes[mime]
	return ok
}
