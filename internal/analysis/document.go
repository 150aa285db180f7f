package analysis

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Document is the file submitted for analysis.
type Document struct {
	Name string
	Size int64
	open func() (io.ReadCloser, error)
	err  error
}

// FileDocument references a document on disk. The file is opened lazily.
func FileDocument(path string) Document {
	doc := Document{
		Name: filepath.Base(path),
		open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
	if info, err := os.Stat(path); err == nil {
		doc.Size = info.Size()
	}
	return doc
}

// BytesDocument wraps in-memory content.
func BytesDocument(name string, data []byte) Document {
	return Document{
		Name: name,
		Size: int64(len(data)),
		open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// ReaderDocument builds a document from an opener, e.g. an uploaded multipart file.
func ReaderDocument(name string, size int64, open func() (io.ReadCloser, error)) Document {
	return Document{Name: name, Size: size, open: open}
}

// RejectedDocument stands for an upload that was refused before its content
// could be read. It is never sent to the service.
func RejectedDocument(name string, err error) Document {
	return Document{Name: name, err: err}
}

// Err returns the rejection reason of a RejectedDocument.
func (d Document) Err() error {
	return d.err
}

// Open returns the document content.
func (d Document) Open() (io.ReadCloser, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.open == nil {
		return nil, errors.New("document has no content")
	}
	return d.open()
}

// Valid reports whether the document names a file and can be opened.
func (d Document) Valid() bool {
	return strings.TrimSpace(d.Name) != "" && d.open != nil
}
