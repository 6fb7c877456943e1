package constants

import "strings"

// AllowedExtensions holds the image extensions accepted for card ingestion.
var AllowedExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"webp": {},
}

// MimeTypes maps an allowed extension to the mime type stored with the card image.
var MimeTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeForExt returns the mime type for ext, or application/octet-stream.
func MimeForExt(ext string) string {
	if mt, ok := MimeTypes[NormalizeExt(ext)]; ok {
		return mt
	}
	return "application/octet-stream"
}
