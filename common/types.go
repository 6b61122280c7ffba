// package common contains common types that are used throughout this importer. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/cogentcore/webgpu/wgpu"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Transform is a decomposed local transform (translation, rotation, scale).
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32 `yaml:"translation,flow"`

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32 `yaml:"rotation,flow"`

	// Scale is the scale factor along each axis.
	Scale [3]float32 `yaml:"scale,flow"`
}

// IdentityTransform returns a Transform with no translation, no rotation and unit scale.
//
// Returns:
//   - Transform: the identity transform
func IdentityTransform() Transform {
	return Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// SamplerStagingData holds the configuration for a texture sampler as declared by the source document.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// DefaultSamplerStagingData returns the linear/repeat sampler used when a texture declares no sampler.
//
// Returns:
//   - SamplerStagingData: the default sampler configuration
func DefaultSamplerStagingData() SamplerStagingData {
	return SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
}

// DecodeImage decodes encoded image bytes (PNG, JPEG, BMP or WebP) into an RGBA image.
//
// Parameters:
//   - data: the encoded image bytes
//
// Returns:
//   - *image.RGBA: the decoded image in RGBA layout
//   - error: error if the bytes are not a supported image
func DecodeImage(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image has no data")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return clone.AsRGBA(img), nil
}

// EncodePNG encodes an image as PNG bytes.
//
// Parameters:
//   - img: the image to encode
//
// Returns:
//   - []byte: the PNG-encoded bytes
//   - error: error if encoding fails
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	encode := imgio.PNGEncoder()
	if err := encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Handedness is the coordinate convention imported data is converted to.
type Handedness int

const (
	// RightHanded keeps glTF's native convention; no conversion is applied.
	RightHanded Handedness = iota
	// LeftHanded mirrors the Z axis and reverses triangle winding.
	LeftHanded
)

func (h Handedness) String() string {
	if h == LeftHanded {
		return "left"
	}
	return "right"
}

// ParseHandedness converts "left" or "right" into a Handedness.
//
// Parameters:
//   - s: the handedness name
//
// Returns:
//   - Handedness: the parsed value
//   - error: error if s is not a known handedness
func ParseHandedness(s string) (Handedness, error) {
	switch s {
	case "", "right":
		return RightHanded, nil
	case "left":
		return LeftHanded, nil
	}
	return RightHanded, fmt.Errorf("unknown handedness %q", s)
}
