package material

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
	"github.com/cogentcore/webgpu/wgpu"
)

// AlphaMode is the glTF alpha rendering mode.
type AlphaMode string

const (
	AlphaOpaque AlphaMode = "OPAQUE"
	AlphaMask   AlphaMode = "MASK"
	AlphaBlend  AlphaMode = "BLEND"
)

// Render queue positions. QueueDefault leaves the queue to the shader.
const (
	QueueDefault     = -1
	QueueAlphaTest   = 2450
	QueueTransparent = 3000
)

// Keywords toggled by the builder.
const (
	KeywordAlphaTest        = "_ALPHATEST_ON"
	KeywordAlphaBlend       = "_ALPHABLEND_ON"
	KeywordEmissionMap      = "EMISSION_MAP_ON"
	KeywordOcclusionPacked  = "OCC_METAL_ROUGH_ON"
	KeywordLightmap         = "LIGHTMAP_ON"
	KeywordNormalMap        = "_NORMALMAP"
	KeywordMetallicGlossMap = "_METALLICGLOSSMAP"
	KeywordSpecGlossMap     = "_SPECGLOSSMAP"
	KeywordEmission         = "_EMISSION"
)

// TextureSlot binds a stored texture to a shader property.
type TextureSlot struct {
	// Texture is the handle of the registered texture.
	Texture store.Handle `yaml:"texture"`

	// UVSet is the TEXCOORD set the slot samples with.
	UVSet int `yaml:"uvSet"`
}

// Material is a constructed material: a shader name, its parameter bag and the render state.
type Material struct {
	Name   string
	Shader string
	Index  int

	Workflow    Workflow
	AlphaMode   AlphaMode
	AlphaCutoff float32
	DoubleSided bool

	Blend      wgpu.BlendState
	Cull       wgpu.CullMode
	DepthWrite bool
	Queue      int

	Colors   map[string][4]float32
	Floats   map[string]float32
	Ints     map[string]int
	Textures map[string]TextureSlot
	Keywords []string
	Tags     map[string]string
}

// New creates an opaque, back-face culled material with an empty parameter bag.
//
// Parameters:
//   - name: the material name
//   - shader: the shader the parameters target
//
// Returns:
//   - *Material: the new material
func New(name, shader string) *Material {
	m := &Material{
		Name:     name,
		Shader:   shader,
		Index:    -1,
		Colors:   make(map[string][4]float32),
		Floats:   make(map[string]float32),
		Ints:     make(map[string]int),
		Textures: make(map[string]TextureSlot),
		Tags:     make(map[string]string),
	}
	m.SetAlphaMode(AlphaOpaque, 0)
	m.SetDoubleSided(false)
	return m
}

func (m *Material) SetColor(name string, c [4]float32) { m.Colors[name] = c }
func (m *Material) SetFloat(name string, v float32)    { m.Floats[name] = v }
func (m *Material) SetInt(name string, v int)          { m.Ints[name] = v }
func (m *Material) SetTag(name, value string)          { m.Tags[name] = value }

// SetTexture binds a texture handle and its UV set to a property. Zero handles are ignored.
func (m *Material) SetTexture(name string, h store.Handle, uvSet int) {
	if h.IsZero() {
		return
	}
	m.Textures[name] = TextureSlot{Texture: h, UVSet: uvSet}
}

// EnableKeyword adds a shader keyword once.
func (m *Material) EnableKeyword(k string) {
	if !slices.Contains(m.Keywords, k) {
		m.Keywords = append(m.Keywords, k)
	}
}

// DisableKeyword removes a shader keyword.
func (m *Material) DisableKeyword(k string) {
	m.Keywords = slices.DeleteFunc(m.Keywords, func(s string) bool { return s == k })
}

// HasKeyword reports whether a shader keyword is enabled.
func (m *Material) HasKeyword(k string) bool {
	return slices.Contains(m.Keywords, k)
}

// SetAlphaMode configures blending, depth write, queue and keywords for an alpha mode.
// MASK cuts out below cutoff, BLEND blends by source alpha without depth writes, anything else is opaque.
//
// Parameters:
//   - mode: the alpha mode
//   - cutoff: the MASK threshold
func (m *Material) SetAlphaMode(mode AlphaMode, cutoff float32) {
	m.DisableKeyword(KeywordAlphaTest)
	m.DisableKeyword(KeywordAlphaBlend)
	delete(m.Floats, "_Cutoff")

	switch mode {
	case AlphaMask:
		m.AlphaMode = AlphaMask
		m.AlphaCutoff = cutoff
		m.Blend = blendState(wgpu.BlendFactorOne, wgpu.BlendFactorZero)
		m.DepthWrite = true
		m.Queue = QueueAlphaTest
		m.EnableKeyword(KeywordAlphaTest)
		m.SetFloat("_Cutoff", cutoff)
		m.SetTag("RenderType", "TransparentCutout")
	case AlphaBlend:
		m.AlphaMode = AlphaBlend
		m.AlphaCutoff = 0
		m.Blend = blendState(wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOneMinusSrcAlpha)
		m.DepthWrite = false
		m.Queue = QueueTransparent
		m.EnableKeyword(KeywordAlphaBlend)
		m.SetTag("RenderType", "Transparent")
	default:
		m.AlphaMode = AlphaOpaque
		m.AlphaCutoff = 0
		m.Blend = blendState(wgpu.BlendFactorOne, wgpu.BlendFactorZero)
		m.DepthWrite = true
		m.Queue = QueueDefault
		m.SetTag("RenderType", "Opaque")
	}
}

// SetDoubleSided disables culling for double-sided materials and culls back faces otherwise.
func (m *Material) SetDoubleSided(doubleSided bool) {
	m.DoubleSided = doubleSided
	if doubleSided {
		m.Cull = wgpu.CullModeNone
	} else {
		m.Cull = wgpu.CullModeBack
	}
}

func blendState(src, dst wgpu.BlendFactor) wgpu.BlendState {
	component := wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: src,
		DstFactor: dst,
	}
	return wgpu.BlendState{Color: component, Alpha: component}
}

// materialDocument is the serialized form of a Material.
type materialDocument struct {
	Name        string                 `yaml:"name"`
	Shader      string                 `yaml:"shader"`
	Workflow    string                 `yaml:"workflow"`
	AlphaMode   AlphaMode              `yaml:"alphaMode"`
	AlphaCutoff float32                `yaml:"alphaCutoff,omitempty"`
	DoubleSided bool                   `yaml:"doubleSided"`
	SrcBlend    string                 `yaml:"srcBlend"`
	DstBlend    string                 `yaml:"dstBlend"`
	Cull        string                 `yaml:"cull"`
	DepthWrite  bool                   `yaml:"depthWrite"`
	Queue       int                    `yaml:"queue"`
	Colors      map[string][4]float32  `yaml:"colors,omitempty"`
	Floats      map[string]float32     `yaml:"floats,omitempty"`
	Ints        map[string]int         `yaml:"ints,omitempty"`
	Textures    map[string]TextureSlot `yaml:"textures,omitempty"`
	Keywords    []string               `yaml:"keywords,omitempty"`
	Tags        map[string]string      `yaml:"tags,omitempty"`
}

// MarshalYAML writes the material with its render state spelled out by name.
func (m *Material) MarshalYAML() (any, error) {
	return materialDocument{
		Name:        m.Name,
		Shader:      m.Shader,
		Workflow:    m.Workflow.String(),
		AlphaMode:   m.AlphaMode,
		AlphaCutoff: m.AlphaCutoff,
		DoubleSided: m.DoubleSided,
		SrcBlend:    m.Blend.Color.SrcFactor.String(),
		DstBlend:    m.Blend.Color.DstFactor.String(),
		Cull:        m.Cull.String(),
		DepthWrite:  m.DepthWrite,
		Queue:       m.Queue,
		Colors:      m.Colors,
		Floats:      m.Floats,
		Ints:        m.Ints,
		Textures:    m.Textures,
		Keywords:    m.Keywords,
		Tags:        m.Tags,
	}, nil
}
