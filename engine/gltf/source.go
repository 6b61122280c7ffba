package gltf

import (
	"encoding/base64"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/h2non/filetype"
)

// dataURIPattern matches the scheme prefix of an embedded base64 payload.
var dataURIPattern = regexp.MustCompile(`^data:[a-z-]+/[a-z-]+;base64,`)

// ImageData is the encoded payload of one document image.
type ImageData struct {
	// Name is the image's declared name, possibly empty.
	Name string

	// MimeType is the declared or sniffed MIME type, e.g. "image/png".
	MimeType string

	// Data holds the encoded image bytes.
	Data []byte
}

// BufferLookup returns the already-loaded payload of a buffer index.
type BufferLookup func(index int) ([]byte, bool)

// source is the implementation of the Source interface.
type source struct {
	fsys fs.FS
}

// Source resolves the binary payloads a Document references: buffers and images.
// Each call resolves exactly one item so the importer can load them one per tick.
type Source interface {
	// Buffer loads the payload of one buffer from an external file, a base64 data URI,
	// or the GLB binary chunk.
	//
	// Parameters:
	//   - doc: the parsed document
	//   - index: the buffer index
	//
	// Returns:
	//   - []byte: the buffer payload, at least byteLength long
	//   - error: ErrUnresolvableBuffer (wrapped) when no source exists or the payload is short
	Buffer(doc *Document, index int) ([]byte, error)

	// Image loads the encoded bytes of one image from a bufferView, a data URI or an external file.
	//
	// Parameters:
	//   - doc: the parsed document
	//   - index: the image index
	//   - buffers: lookup of buffers loaded so far
	//
	// Returns:
	//   - *ImageData: the encoded image and its MIME type
	//   - error: error if the image cannot be resolved
	Image(doc *Document, index int, buffers BufferLookup) (*ImageData, error)
}

var _ Source = &source{}

// NewSource creates a Source reading external files from fsys, or from the OS when fsys is nil.
//
// Parameters:
//   - fsys: the file system external URIs resolve in; nil for the OS
//
// Returns:
//   - Source: a new source instance
func NewSource(fsys fs.FS) Source {
	return &source{fsys: fsys}
}

func (s *source) Buffer(doc *Document, index int) ([]byte, error) {
	if index < 0 || index >= len(doc.Buffers) {
		return nil, fmt.Errorf("buffer %d out of range: %w", index, ErrUnresolvableBuffer)
	}
	buf := &doc.Buffers[index]

	var data []byte
	switch {
	case buf.URI == "" && index == 0 && doc.GLBChunk != nil:
		data = doc.GLBChunk
	case buf.URI == "":
		return nil, fmt.Errorf("buffer %d has no URI and no GLB binary chunk: %w", index, ErrUnresolvableBuffer)
	default:
		var err error
		data, _, err = s.loadURI(doc.BaseDir, buf.URI)
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w: %w", index, ErrUnresolvableBuffer, err)
		}
	}

	if len(data) < buf.ByteLength {
		return nil, fmt.Errorf("buffer %d holds %d bytes, declares %d: %w", index, len(data), buf.ByteLength, ErrUnresolvableBuffer)
	}
	return data, nil
}

func (s *source) Image(doc *Document, index int, buffers BufferLookup) (*ImageData, error) {
	if index < 0 || index >= len(doc.Images) {
		return nil, fmt.Errorf("image %d out of range", index)
	}
	img := &doc.Images[index]
	out := &ImageData{Name: img.Name, MimeType: img.MimeType}

	switch {
	case img.BufferView != nil:
		data, err := BufferViewBytes(doc, *img.BufferView, buffers)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", index, err)
		}
		out.Data = data
	case img.URI != "":
		data, mime, err := s.loadURI(doc.BaseDir, img.URI)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", index, err)
		}
		out.Data = data
		if out.MimeType == "" {
			out.MimeType = mime
		}
	default:
		return nil, fmt.Errorf("image %d has neither bufferView nor URI", index)
	}

	if out.MimeType == "" {
		if kind, err := filetype.Match(out.Data); err == nil && kind != filetype.Unknown {
			out.MimeType = kind.MIME.Value
		}
	}
	return out, nil
}

// BufferViewBytes returns the byte range a bufferView covers within its loaded buffer.
//
// Parameters:
//   - doc: the parsed document
//   - index: the bufferView index
//   - buffers: lookup of loaded buffers
//
// Returns:
//   - []byte: a sub-slice of the buffer payload
//   - error: ErrMalformedAccessor (wrapped) if the view is out of range or its buffer is not loaded
func BufferViewBytes(doc *Document, index int, buffers BufferLookup) ([]byte, error) {
	if index < 0 || index >= len(doc.BufferViews) {
		return nil, fmt.Errorf("bufferView %d out of range: %w", index, ErrMalformedAccessor)
	}
	bv := &doc.BufferViews[index]
	data, ok := buffers(bv.Buffer)
	if !ok {
		return nil, fmt.Errorf("bufferView %d references unloaded buffer %d: %w", index, bv.Buffer, ErrMalformedAccessor)
	}
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(data) {
		return nil, fmt.Errorf("bufferView %d range [%d, %d) exceeds buffer %d length %d: %w",
			index, bv.ByteOffset, end, bv.Buffer, len(data), ErrMalformedAccessor)
	}
	return data[bv.ByteOffset:end], nil
}

// loadURI loads bytes from a data URI or a file relative to baseDir.
// For data URIs the embedded media type is returned as well.
func (s *source) loadURI(baseDir, uri string) ([]byte, string, error) {
	if strings.HasPrefix(uri, "data:") {
		return decodeDataURI(uri)
	}

	rel, err := url.PathUnescape(uri)
	if err != nil {
		rel = uri
	}

	var full string
	if s.fsys != nil {
		full = path.Join(baseDir, rel)
	} else {
		full = filepath.Join(baseDir, filepath.FromSlash(rel))
	}

	data, err := readFile(s.fsys, full)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load file %q: %w", uri, err)
	}
	return data, "", nil
}

// decodeDataURI decodes a base64 data URI.
// Format: data:<type>/<subtype>;base64,<data>
func decodeDataURI(uri string) ([]byte, string, error) {
	prefix := dataURIPattern.FindString(uri)
	if prefix == "" {
		return nil, "", fmt.Errorf("unsupported data URI encoding: %.40s", uri)
	}

	data, err := base64.StdEncoding.DecodeString(uri[len(prefix):])
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}

	mime := strings.TrimSuffix(strings.TrimPrefix(prefix, "data:"), ";base64,")
	return data, mime, nil
}
