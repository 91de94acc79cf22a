package export

import (
	"encoding/base64"
	"path"
	"strings"
)

// MimeByName guesses the content type of a stored file from its extension.
// Unknown extensions are treated as JPEG.
func MimeByName(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}

// EncodeDataURL renders data as data:<mime>;base64,<payload>.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
