package gltf

import "errors"

// Import error taxonomy. Every stage wraps one of these with context via fmt.Errorf("...: %w"),
// so callers classify failures with errors.Is.
var (
	// ErrMalformedAccessor reports an accessor whose declared layout does not fit its data,
	// or whose bufferView/buffer reference is out of range.
	ErrMalformedAccessor = errors.New("malformed accessor")

	// ErrUnresolvableBuffer reports a buffer with no usable source (URI, data URI or GLB chunk).
	ErrUnresolvableBuffer = errors.New("unresolvable buffer")

	// ErrMissingRequiredAttribute reports a primitive without POSITION.
	ErrMissingRequiredAttribute = errors.New("missing required attribute")

	// ErrSkinDataSizeMismatch reports joint/weight arrays whose length differs from the vertex count.
	ErrSkinDataSizeMismatch = errors.New("skin data size mismatch")

	// ErrUnresolvedJoint reports a skin joint with no instantiated node.
	ErrUnresolvedJoint = errors.New("unresolved joint")

	// ErrInvalidSceneReference reports an out-of-range child, mesh or skin index in the scene graph.
	ErrInvalidSceneReference = errors.New("invalid scene reference")

	// ErrNoDefaultScene reports a document with no scene to import.
	ErrNoDefaultScene = errors.New("no default scene")
)

// Parser errors
var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errGLBTooSmall        = errors.New("GLB file too small")
)
