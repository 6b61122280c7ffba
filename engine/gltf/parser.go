package gltf

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// parser is the implementation of the Parser interface.
type parser struct {
	fsys fs.FS
}

// Parser defines the interface for reading glTF/GLB containers into a Document.
// Parsing only decodes the JSON and separates the GLB binary chunk; buffers and images
// are resolved later, one at a time, by a Source.
type Parser interface {
	// Parse loads and parses a glTF/GLB file from the given path.
	// Automatically detects .gltf (JSON) vs .glb (binary) format by extension or magic number.
	//
	// Parameters:
	//   - name: path to the glTF or GLB file
	//
	// Returns:
	//   - *Document: the parsed document with BaseDir set to the file's directory
	//   - error: error if reading or parsing fails
	Parse(name string) (*Document, error)

	// ParseBytes parses an in-memory glTF JSON or GLB container.
	//
	// Parameters:
	//   - data: the container bytes
	//   - baseDir: directory external URIs resolve against
	//
	// Returns:
	//   - *Document: the parsed document
	//   - error: error if parsing fails
	ParseBytes(data []byte, baseDir string) (*Document, error)

	// ParseReader parses a glTF document from a reader.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//
	// Returns:
	//   - *Document: the parsed document
	//   - error: error if parsing fails
	ParseReader(r io.Reader, isGLB bool) (*Document, error)
}

var _ Parser = &parser{}

// ParserBuilderOption is a functional option for configuring a Parser via NewParser.
type ParserBuilderOption func(*parser)

// WithParserFS is an option builder that makes the Parser read files from fsys instead of the OS.
//
// Parameters:
//   - fsys: the file system to read from; paths are slash-separated and unrooted
//
// Returns:
//   - ParserBuilderOption: a function that applies the file system option to a parser
func WithParserFS(fsys fs.FS) ParserBuilderOption {
	return func(p *parser) {
		p.fsys = fsys
	}
}

// NewParser creates a new Parser with the provided options applied.
//
// Parameters:
//   - options: a variadic list of ParserBuilderOption functions
//
// Returns:
//   - Parser: a new parser instance
func NewParser(options ...ParserBuilderOption) Parser {
	p := &parser{}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *parser) Parse(name string) (*Document, error) {
	data, err := readFile(p.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	baseDir := filepath.Dir(name)
	if p.fsys != nil {
		baseDir = path.Dir(name)
	}

	if strings.EqualFold(filepath.Ext(name), ".glb") {
		return p.parseGLB(data, baseDir)
	}
	return p.ParseBytes(data, baseDir)
}

func (p *parser) ParseBytes(data []byte, baseDir string) (*Document, error) {
	if IsGLB(data) {
		return p.parseGLB(data, baseDir)
	}
	return p.parseJSON(data, nil, baseDir)
}

func (p *parser) ParseReader(r io.Reader, isGLB bool) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	if isGLB {
		return p.parseGLB(data, "")
	}
	return p.parseJSON(data, nil, "")
}

// IsGLB reports whether data starts with the GLB magic number.
func IsGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == GLBMagic
}

// parseJSON parses glTF JSON and attaches the optional GLB binary chunk.
func (p *parser) parseJSON(data, bin []byte, baseDir string) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse glTF JSON: %w", err)
	}

	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, errInvalidGLTFVersion
	}

	doc.BaseDir = baseDir
	doc.GLBChunk = bin
	return &doc, nil
}

// parseGLB parses a GLB binary container.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *parser) parseGLB(data []byte, baseDir string) (*Document, error) {
	if len(data) < 12 {
		return nil, errGLBTooSmall
	}

	r := bytes.NewReader(data)

	var header glbHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read GLB header: %w", err)
	}

	if header.Magic != GLBMagic {
		return nil, errInvalidGLBMagic
	}
	if header.Version != GLBVersion {
		return nil, errInvalidGLBVersion
	}

	var jsonData []byte
	var binData []byte

	for {
		var chunkHeader glbChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunkHeader); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}

		if int64(chunkHeader.ChunkLength) > int64(r.Len()) {
			return nil, fmt.Errorf("chunk length %d exceeds remaining %d bytes", chunkHeader.ChunkLength, r.Len())
		}
		chunkData := make([]byte, chunkHeader.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return nil, fmt.Errorf("failed to read chunk data: %w", err)
		}

		switch chunkHeader.ChunkType {
		case GLBChunkJSON:
			jsonData = chunkData
		case GLBChunkBIN:
			if binData == nil {
				binData = chunkData
			}
		}
	}

	if jsonData == nil {
		return nil, errMissingJSONChunk
	}

	return p.parseJSON(jsonData, binData, baseDir)
}

// readFile reads name from fsys, or from the OS when fsys is nil.
func readFile(fsys fs.FS, name string) ([]byte, error) {
	if fsys == nil {
		return os.ReadFile(name)
	}
	return fs.ReadFile(fsys, path.Clean(strings.TrimPrefix(filepath.ToSlash(name), "/")))
}
