// types.go contains glTF 2.0 data structures for JSON deserialization.
// These types map directly to the glTF 2.0 JSON schema, plus the two material extensions the importer understands.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package gltf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// --- glTF Root Structure ---

// Document represents the root of a glTF JSON document.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-gltf
type Document struct {
	// Asset contains metadata about the glTF asset.
	Asset Asset `json:"asset"`

	// Scene is the index of the default scene.
	Scene *int `json:"scene,omitempty"`

	// Scenes is an array of scenes.
	Scenes []Scene `json:"scenes,omitempty"`

	// Nodes is an array of nodes (transform hierarchy).
	Nodes []Node `json:"nodes,omitempty"`

	// Meshes is an array of meshes.
	Meshes []Mesh `json:"meshes,omitempty"`

	// Accessors define how to interpret buffer data.
	Accessors []Accessor `json:"accessors,omitempty"`

	// BufferViews define portions of buffers.
	BufferViews []BufferView `json:"bufferViews,omitempty"`

	// Buffers are raw binary data containers.
	Buffers []Buffer `json:"buffers,omitempty"`

	// Materials is an array of materials.
	Materials []Material `json:"materials,omitempty"`

	// Textures is an array of textures.
	Textures []Texture `json:"textures,omitempty"`

	// Images is an array of images.
	Images []Image `json:"images,omitempty"`

	// Samplers define texture sampling parameters.
	Samplers []Sampler `json:"samplers,omitempty"`

	// Skins is an array of skins (skeletal animation binding).
	Skins []Skin `json:"skins,omitempty"`

	// Animations is an array of animations.
	Animations []Animation `json:"animations,omitempty"`

	// Cameras is an array of cameras. Cameras are recorded on nodes but not constructed.
	Cameras []Camera `json:"cameras,omitempty"`

	// ExtensionsUsed lists extensions used by this asset.
	ExtensionsUsed []string `json:"extensionsUsed,omitempty"`

	// ExtensionsRequired lists extensions required to load this asset.
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`

	// BaseDir is the directory external URIs resolve against (not part of JSON).
	BaseDir string `json:"-"`

	// GLBChunk holds the BIN chunk of a GLB container (not part of JSON).
	GLBChunk []byte `json:"-"`
}

// UsesExtension reports whether the document declares the named extension in extensionsUsed.
//
// Parameters:
//   - name: the extension name, e.g. "KHR_materials_pbrSpecularGlossiness"
//
// Returns:
//   - bool: true if the extension is declared
func (d *Document) UsesExtension(name string) bool {
	return slices.Contains(d.ExtensionsUsed, name)
}

// --- Asset Metadata ---

// Asset contains metadata about the glTF asset.
type Asset struct {
	// Version is the glTF version (required, must be "2.0").
	Version string `json:"version"`

	// MinVersion is the minimum glTF version required.
	MinVersion string `json:"minVersion,omitempty"`

	// Generator is the tool that generated this asset.
	Generator string `json:"generator,omitempty"`

	// Copyright information.
	Copyright string `json:"copyright,omitempty"`
}

// --- Scene Graph ---

// Scene is a set of root nodes.
type Scene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// Node is a node in the node hierarchy.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-node
type Node struct {
	// Name is an optional name for this node.
	Name string `json:"name,omitempty"`

	// Children are indices of child nodes.
	Children []int `json:"children,omitempty"`

	// Mesh is the index of the mesh in this node.
	Mesh *int `json:"mesh,omitempty"`

	// Skin is the index of the skin for this node.
	Skin *int `json:"skin,omitempty"`

	// Camera is the index of the camera attached to this node.
	Camera *int `json:"camera,omitempty"`

	// Matrix is a 4x4 transformation matrix (column-major).
	Matrix *[16]float32 `json:"matrix,omitempty"`

	// Translation is the node's translation (x, y, z).
	Translation *[3]float32 `json:"translation,omitempty"`

	// Rotation is the node's rotation as a quaternion (x, y, z, w).
	Rotation *[4]float32 `json:"rotation,omitempty"`

	// Scale is the node's scale (x, y, z).
	Scale *[3]float32 `json:"scale,omitempty"`

	// Weights are morph target weights (for blend shapes).
	Weights []float32 `json:"weights,omitempty"`
}

// Camera is a projection description. Only the name and type are retained.
type Camera struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

// --- Mesh Data ---

// Mesh is a set of primitives to be rendered.
type Mesh struct {
	// Name is an optional name for this mesh.
	Name string `json:"name,omitempty"`

	// Primitives defines the geometry to render.
	Primitives []Primitive `json:"primitives"`

	// Weights are default morph target weights.
	Weights []float32 `json:"weights,omitempty"`

	// Extras carries application data; only targetNames is read.
	Extras *MeshExtras `json:"extras,omitempty"`
}

// MeshExtras holds the de-facto standard morph target names.
type MeshExtras struct {
	TargetNames []string `json:"targetNames,omitempty"`
}

// Primitive defines geometry for rendering.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-mesh-primitive
type Primitive struct {
	// Attributes is a map of attribute semantic to accessor index.
	// Standard attributes: POSITION, NORMAL, TANGENT, TEXCOORD_n, COLOR_0, JOINTS_0, WEIGHTS_0
	Attributes map[string]int `json:"attributes"`

	// Indices is the accessor index for the index buffer.
	Indices *int `json:"indices,omitempty"`

	// Material is the material index.
	Material *int `json:"material,omitempty"`

	// Mode is the primitive topology. Only TRIANGLES (4, the default) is imported.
	Mode *int `json:"mode,omitempty"`

	// Targets are morph targets for this primitive.
	Targets []map[string]int `json:"targets,omitempty"`
}

// PrimitiveModeTriangles is the only topology the importer builds.
const PrimitiveModeTriangles = 4

// Attribute semantics
const (
	AttributePosition = "POSITION"
	AttributeNormal   = "NORMAL"
	AttributeTangent  = "TANGENT"
	AttributeTexCoord = "TEXCOORD_" // suffixed with the set index
	AttributeColor    = "COLOR_0"
	AttributeJoints   = "JOINTS_0"
	AttributeWeights  = "WEIGHTS_0"
)

// --- Buffer Data ---

// Accessor defines how to interpret buffer data.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor
type Accessor struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// BufferView is the index of the bufferView. When absent the accessor reads as zeros.
	BufferView *int `json:"bufferView,omitempty"`

	// ByteOffset is the offset within the bufferView.
	ByteOffset int `json:"byteOffset,omitempty"`

	// ComponentType is the data type of components.
	// 5120=BYTE, 5121=UNSIGNED_BYTE, 5122=SHORT, 5123=UNSIGNED_SHORT, 5125=UNSIGNED_INT, 5126=FLOAT
	ComponentType int `json:"componentType"`

	// Normalized indicates if integer data should be normalized.
	Normalized bool `json:"normalized,omitempty"`

	// Count is the number of elements.
	Count int `json:"count"`

	// Type is the element type (SCALAR, VEC2, VEC3, VEC4, MAT2, MAT3, MAT4).
	Type string `json:"type"`

	// Max is the maximum value of each component.
	Max []float32 `json:"max,omitempty"`

	// Min is the minimum value of each component.
	Min []float32 `json:"min,omitempty"`

	// Sparse defines sparse storage of accessor values.
	Sparse *AccessorSparse `json:"sparse,omitempty"`
}

// ComponentType constants
const (
	ComponentTypeByte          = 5120
	ComponentTypeUnsignedByte  = 5121
	ComponentTypeShort         = 5122
	ComponentTypeUnsignedShort = 5123
	ComponentTypeUnsignedInt   = 5125
	ComponentTypeFloat         = 5126
)

// AccessorType constants
const (
	AccessorTypeScalar = "SCALAR"
	AccessorTypeVec2   = "VEC2"
	AccessorTypeVec3   = "VEC3"
	AccessorTypeVec4   = "VEC4"
	AccessorTypeMat2   = "MAT2"
	AccessorTypeMat3   = "MAT3"
	AccessorTypeMat4   = "MAT4"
)

// AccessorSparse defines sparse storage.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor-sparse
type AccessorSparse struct {
	// Count is the number of sparse entries.
	Count int `json:"count"`

	// Indices locates the element indices being replaced.
	Indices AccessorSparseIndices `json:"indices"`

	// Values locates the replacement elements.
	Values AccessorSparseValues `json:"values"`
}

// AccessorSparseIndices points at the sparse index array.
type AccessorSparseIndices struct {
	BufferView    int `json:"bufferView"`
	ByteOffset    int `json:"byteOffset,omitempty"`
	ComponentType int `json:"componentType"`
}

// AccessorSparseValues points at the sparse value array.
type AccessorSparseValues struct {
	BufferView int `json:"bufferView"`
	ByteOffset int `json:"byteOffset,omitempty"`
}

// BufferView represents a subset of a buffer.
type BufferView struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// Buffer is the index of the buffer.
	Buffer int `json:"buffer"`

	// ByteOffset is the offset into the buffer.
	ByteOffset int `json:"byteOffset,omitempty"`

	// ByteLength is the length of the bufferView.
	ByteLength int `json:"byteLength"`

	// ByteStride is the stride for interleaved data (optional).
	ByteStride *int `json:"byteStride,omitempty"`

	// Target is the intended GPU buffer type.
	// 34962=ARRAY_BUFFER, 34963=ELEMENT_ARRAY_BUFFER
	Target *int `json:"target,omitempty"`
}

// Buffer represents binary data. Its payload is resolved by a Source, not stored here.
type Buffer struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// URI is the URI of the buffer data (data: URI or relative file path). Empty for the GLB chunk.
	URI string `json:"uri,omitempty"`

	// ByteLength is the length of the buffer.
	ByteLength int `json:"byteLength"`
}

// --- Materials and Textures ---

// Material defines the material appearance of a primitive.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material
type Material struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// PbrMetallicRoughness is the PBR metallic-roughness model.
	PbrMetallicRoughness *PbrMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`

	// NormalTexture is the normal map.
	NormalTexture *NormalTextureInfo `json:"normalTexture,omitempty"`

	// OcclusionTexture is the occlusion map.
	OcclusionTexture *OcclusionTextureInfo `json:"occlusionTexture,omitempty"`

	// EmissiveTexture is the emissive map.
	EmissiveTexture *TextureInfo `json:"emissiveTexture,omitempty"`

	// EmissiveFactor is the emissive color (RGB).
	EmissiveFactor *[3]float32 `json:"emissiveFactor,omitempty"`

	// AlphaMode is the alpha rendering mode: "OPAQUE" (default), "MASK", "BLEND".
	AlphaMode string `json:"alphaMode,omitempty"`

	// AlphaCutoff is the alpha cutoff for MASK mode (default 0.5).
	AlphaCutoff *float32 `json:"alphaCutoff,omitempty"`

	// DoubleSided indicates if the material is double-sided.
	DoubleSided bool `json:"doubleSided,omitempty"`

	// Extensions carries the recognized material workflow extensions.
	Extensions *MaterialExtensions `json:"extensions,omitempty"`
}

// Alpha mode constants
const (
	AlphaModeOpaque = "OPAQUE"
	AlphaModeMask   = "MASK"
	AlphaModeBlend  = "BLEND"
)

// Material extension names
const (
	ExtensionPbrSpecularGlossiness = "KHR_materials_pbrSpecularGlossiness"
	ExtensionMaterialsCommon       = "KHR_materials_common"
)

// MaterialExtensions holds the material extensions that select an alternative workflow.
type MaterialExtensions struct {
	PbrSpecularGlossiness *PbrSpecularGlossiness `json:"KHR_materials_pbrSpecularGlossiness,omitempty"`
	Common                *MaterialsCommon       `json:"KHR_materials_common,omitempty"`
}

// PbrMetallicRoughness is the metallic-roughness material model.
type PbrMetallicRoughness struct {
	// BaseColorFactor is the base color (RGBA).
	BaseColorFactor *[4]float32 `json:"baseColorFactor,omitempty"`

	// BaseColorTexture is the base color texture.
	BaseColorTexture *TextureInfo `json:"baseColorTexture,omitempty"`

	// MetallicFactor is the metalness (0.0 = dielectric, 1.0 = metal).
	MetallicFactor *float32 `json:"metallicFactor,omitempty"`

	// RoughnessFactor is the roughness (0.0 = smooth, 1.0 = rough).
	RoughnessFactor *float32 `json:"roughnessFactor,omitempty"`

	// MetallicRoughnessTexture contains metallic (B) and roughness (G) channels.
	MetallicRoughnessTexture *TextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

// PbrSpecularGlossiness is the KHR_materials_pbrSpecularGlossiness model.
type PbrSpecularGlossiness struct {
	DiffuseFactor             *[4]float32  `json:"diffuseFactor,omitempty"`
	DiffuseTexture            *TextureInfo `json:"diffuseTexture,omitempty"`
	SpecularFactor            *[3]float32  `json:"specularFactor,omitempty"`
	GlossinessFactor          *float32     `json:"glossinessFactor,omitempty"`
	SpecularGlossinessTexture *TextureInfo `json:"specularGlossinessTexture,omitempty"`
}

// Legacy KHR_materials_common techniques
const (
	TechniqueConstant = "CONSTANT"
	TechniqueBlinn    = "BLINN"
	TechniquePhong    = "PHONG"
	TechniqueLambert  = "LAMBERT"
)

// MaterialsCommon is the legacy KHR_materials_common model.
type MaterialsCommon struct {
	Technique string                `json:"technique"`
	Values    MaterialsCommonValues `json:"values"`
}

// MaterialsCommonValues holds the technique parameters. Color slots accept either a color or a texture index.
type MaterialsCommonValues struct {
	Ambient      *ColorOrTexture `json:"ambient,omitempty"`
	Diffuse      *ColorOrTexture `json:"diffuse,omitempty"`
	Emission     *ColorOrTexture `json:"emission,omitempty"`
	Specular     *ColorOrTexture `json:"specular,omitempty"`
	Shininess    *float32        `json:"shininess,omitempty"`
	Transparency *float32        `json:"transparency,omitempty"`
	LightmapUV   *int            `json:"lightmapTexCoord,omitempty"`
	Lightmap     *int            `json:"lightmap,omitempty"`
}

// ColorOrTexture is a KHR_materials_common value that is either an RGB(A) color array or a texture index.
type ColorOrTexture struct {
	Color   *[4]float32
	Texture *int
}

// UnmarshalJSON decodes a color array (3 or 4 components, alpha defaults to 1) or a texture index.
func (c *ColorOrTexture) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var vals []float32
		if err := json.Unmarshal(data, &vals); err != nil {
			return err
		}
		if len(vals) < 3 || len(vals) > 4 {
			return fmt.Errorf("color must have 3 or 4 components, got %d", len(vals))
		}
		col := [4]float32{vals[0], vals[1], vals[2], 1}
		if len(vals) == 4 {
			col[3] = vals[3]
		}
		c.Color = &col
		return nil
	}
	var idx int
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("expected color array or texture index: %w", err)
	}
	c.Texture = &idx
	return nil
}

// MarshalJSON encodes the color or texture index back to its JSON form.
func (c ColorOrTexture) MarshalJSON() ([]byte, error) {
	if c.Texture != nil {
		return json.Marshal(*c.Texture)
	}
	if c.Color != nil {
		return json.Marshal(c.Color[:])
	}
	return []byte("null"), nil
}

// TextureInfo references a texture.
type TextureInfo struct {
	// Index is the texture index.
	Index int `json:"index"`

	// TexCoord is the UV set to use (default 0).
	TexCoord int `json:"texCoord,omitempty"`
}

// NormalTextureInfo references a normal map.
type NormalTextureInfo struct {
	TextureInfo

	// Scale is the normal scale factor.
	Scale *float32 `json:"scale,omitempty"`
}

// OcclusionTextureInfo references an occlusion map.
type OcclusionTextureInfo struct {
	TextureInfo

	// Strength is the occlusion strength.
	Strength *float32 `json:"strength,omitempty"`
}

// Texture combines an image and a sampler.
type Texture struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// Sampler is the sampler index.
	Sampler *int `json:"sampler,omitempty"`

	// Source is the image index.
	Source *int `json:"source,omitempty"`
}

// Image is a texture image source.
type Image struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// URI is the image URI (data: URI or external file).
	URI string `json:"uri,omitempty"`

	// MimeType is the MIME type when embedded in a bufferView.
	MimeType string `json:"mimeType,omitempty"`

	// BufferView is the index of the bufferView containing the image.
	BufferView *int `json:"bufferView,omitempty"`
}

// Sampler defines texture sampling parameters.
type Sampler struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// MagFilter is the magnification filter. 9728=NEAREST, 9729=LINEAR
	MagFilter *int `json:"magFilter,omitempty"`

	// MinFilter is the minification filter. 9728=NEAREST, 9729=LINEAR, 9984-9987=mipmapped variants
	MinFilter *int `json:"minFilter,omitempty"`

	// WrapS is the U wrapping mode. 33071=CLAMP_TO_EDGE, 33648=MIRRORED_REPEAT, 10497=REPEAT (default)
	WrapS *int `json:"wrapS,omitempty"`

	// WrapT is the V wrapping mode.
	WrapT *int `json:"wrapT,omitempty"`
}

// Sampler filter constants
const (
	FilterNearest              = 9728
	FilterLinear               = 9729
	FilterNearestMipmapNearest = 9984
	FilterLinearMipmapNearest  = 9985
	FilterNearestMipmapLinear  = 9986
	FilterLinearMipmapLinear   = 9987
)

// Sampler wrap constants
const (
	WrapClampToEdge    = 33071
	WrapMirroredRepeat = 33648
	WrapRepeat         = 10497
)

// --- Skeletal Animation ---

// Skin defines how a mesh is deformed by a skeleton.
type Skin struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// InverseBindMatrices is the accessor index for the inverse bind matrices.
	InverseBindMatrices *int `json:"inverseBindMatrices,omitempty"`

	// Skeleton is the node index of the skeleton root (optional).
	Skeleton *int `json:"skeleton,omitempty"`

	// Joints are the node indices of the skeleton joints (bones).
	Joints []int `json:"joints"`
}

// Animation defines keyframe animation.
type Animation struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// Channels connect samplers to target nodes/properties.
	Channels []AnimationChannel `json:"channels"`

	// Samplers define the keyframe data.
	Samplers []AnimationSampler `json:"samplers"`
}

// AnimationChannel connects a sampler to a target.
type AnimationChannel struct {
	// Sampler is the sampler index.
	Sampler int `json:"sampler"`

	// Target specifies what to animate.
	Target AnimationTarget `json:"target"`
}

// AnimationTarget specifies the animated property.
type AnimationTarget struct {
	// Node is the target node index.
	Node *int `json:"node,omitempty"`

	// Path is the animated property: "translation", "rotation", "scale", "weights".
	Path string `json:"path"`
}

// AnimationSampler defines animation keyframe data.
type AnimationSampler struct {
	// Input is the accessor index for keyframe times.
	Input int `json:"input"`

	// Output is the accessor index for keyframe values.
	Output int `json:"output"`

	// Interpolation mode: "LINEAR" (default), "STEP", "CUBICSPLINE".
	Interpolation string `json:"interpolation,omitempty"`
}

// Animation interpolation constants
const (
	InterpolationLinear      = "LINEAR"
	InterpolationStep        = "STEP"
	InterpolationCubicSpline = "CUBICSPLINE"
)

// Animation path constants
const (
	PathTranslation = "translation"
	PathRotation    = "rotation"
	PathScale       = "scale"
	PathWeights     = "weights"
)

// --- GLB Binary Format ---

// glbHeader is the header of a GLB file (12 bytes).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
type glbHeader struct {
	Magic   uint32 // Must be 0x46546C67 ("glTF" in ASCII)
	Version uint32 // Must be 2
	Length  uint32 // Total file length
}

// glbChunkHeader is the header of a GLB chunk (8 bytes).
type glbChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32 // 0x4E4F534A for JSON, 0x004E4942 for BIN
}

// GLB magic number and chunk type constants
const (
	GLBMagic     = 0x46546C67 // "glTF" in little-endian ASCII
	GLBVersion   = 2
	GLBChunkJSON = 0x4E4F534A // "JSON" in little-endian ASCII
	GLBChunkBIN  = 0x004E4942 // "BIN\0" in little-endian ASCII
)
