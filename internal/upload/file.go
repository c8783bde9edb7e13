// File: internal/upload/file.go
package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// File is a user-selected file held in memory for the duration of a submission.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     []byte
}

// Reader returns a fresh reader over the file content.
func (f File) Reader() io.Reader {
	return bytes.NewReader(f.Content)
}

// FromFileHeader reads a multipart file into memory. The content type falls
// back to sniffing when the client sent none.
func FromFileHeader(fh *multipart.FileHeader) (File, error) {
	if fh == nil {
		return File{}, fmt.Errorf("file header cannot be nil")
	}
	src, err := fh.Open()
	if err != nil {
		return File{}, fmt.Errorf("failed to open uploaded file %q: %w", fh.Filename, err)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return File{}, fmt.Errorf("failed to read uploaded file %q: %w", fh.Filename, err)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(content)
	}
	return File{
		Name:        fh.Filename,
		ContentType: contentType,
		Size:        int64(len(content)),
		Content:     content,
	}, nil
}
