package intake

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Upload is one file part of an intake request.
type Upload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// FromHeader adapts a parsed multipart file part.
func FromHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open:     func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// FromBytes is a convenience for callers that already hold the content.
func FromBytes(name string, data []byte) Upload {
	return Upload{
		Filename: name,
		Size:     int64(len(data)),
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

var allowedTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// readChecked loads the upload, enforcing max and the allowed content types.
// The type is sniffed from the content; the client-declared type is ignored.
func readChecked(u Upload, field string, max int64) ([]byte, error) {
	if u.Size > max {
		return nil, invalid(field, "file %q exceeds %d bytes", u.Filename, max)
	}
	rc, err := u.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", u.Filename, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, max+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", u.Filename, err)
	}
	if int64(len(data)) > max {
		return nil, invalid(field, "file %q exceeds %d bytes", u.Filename, max)
	}
	if len(data) == 0 {
		return nil, invalid(field, "file %q is empty", u.Filename)
	}

	mt := mimetype.Detect(data)
	for _, a := range allowedTypes {
		if mt.Is(a) {
			return data, nil
		}
	}
	return nil, invalid(field, "file %q has unsupported type %s", u.Filename, mt.String())
}

// cleanFilename reduces a client file name to a single safe path element.
func cleanFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '/' {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "file"
	}
	return name
}
