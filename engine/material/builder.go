package material

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
)

// DefaultAlphaCutoff is the MASK threshold used when a material declares none.
const DefaultAlphaCutoff float32 = 0.5

// DefaultName names the material shared by primitives without a material index.
const DefaultName = "Default"

// materialBuilder is the implementation of the Builder interface.
type materialBuilder struct {
	strategy Strategy
	textures TextureSource
	logger   *slog.Logger
	shaders  map[Workflow]string

	defaultMaterial *Material
}

// Builder converts glTF material definitions into constructed materials.
type Builder interface {
	// Build constructs the material at index. Unknown shaders fall back to FallbackShader with a warning
	// and textures that fail to resolve are skipped with a warning.
	//
	// Parameters:
	//   - doc: the parsed document
	//   - index: the material index
	//
	// Returns:
	//   - *Material: the constructed material
	//   - error: error if the index is out of range
	Build(doc *gltf.Document, index int) (*Material, error)

	// Default returns the material shared by primitives that reference none. It is built on first use.
	//
	// Returns:
	//   - *Material: the default material
	Default() *Material

	// Strategy returns the strategy the builder was configured with.
	//
	// Returns:
	//   - Strategy: the active strategy
	Strategy() Strategy
}

var _ Builder = &materialBuilder{}

// MaterialBuilderOption is a functional option for configuring a material Builder.
type MaterialBuilderOption func(*materialBuilder)

// WithStrategy sets the shader strategy. Defaults to NativeStrategy.
//
// Parameters:
//   - s: the strategy
//
// Returns:
//   - MaterialBuilderOption: option function to set the strategy
func WithStrategy(s Strategy) MaterialBuilderOption {
	return func(b *materialBuilder) {
		b.strategy = s
	}
}

// WithLogger sets the logger for skipped textures and shader fallbacks.
//
// Parameters:
//   - logger: the structured logger
//
// Returns:
//   - MaterialBuilderOption: option function to set the logger
func WithLogger(logger *slog.Logger) MaterialBuilderOption {
	return func(b *materialBuilder) {
		b.logger = logger
	}
}

// WithShader overrides the shader the strategy picks for a workflow.
// An empty name marks the workflow as having no shader, which triggers the fallback.
//
// Parameters:
//   - w: the workflow
//   - shader: the shader name
//
// Returns:
//   - MaterialBuilderOption: option function to override the shader
func WithShader(w Workflow, shader string) MaterialBuilderOption {
	return func(b *materialBuilder) {
		b.shaders[w] = shader
	}
}

// NewBuilder creates a material Builder that registers textures through textures.
//
// Parameters:
//   - textures: the source every texture slot is resolved through
//   - options: variadic list of MaterialBuilderOption to configure the builder
//
// Returns:
//   - Builder: the new builder
func NewBuilder(textures TextureSource, options ...MaterialBuilderOption) Builder {
	b := &materialBuilder{
		strategy: NativeStrategy(),
		textures: textures,
		logger:   slog.Default(),
		shaders:  make(map[Workflow]string),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *materialBuilder) Strategy() Strategy {
	return b.strategy
}

func (b *materialBuilder) Build(doc *gltf.Document, index int) (*Material, error) {
	if !common.InRange(index, len(doc.Materials)) {
		return nil, fmt.Errorf("material %d out of range", index)
	}
	def := &doc.Materials[index]
	name := common.Coalesce(def.Name, fmt.Sprintf("material_%d", index))

	m := b.build(doc, def, name)
	m.Index = index
	return m, nil
}

func (b *materialBuilder) Default() *Material {
	if b.defaultMaterial == nil {
		b.defaultMaterial = b.build(&gltf.Document{}, &gltf.Material{}, DefaultName)
	}
	return b.defaultMaterial
}

func (b *materialBuilder) build(doc *gltf.Document, def *gltf.Material, name string) *Material {
	w := DetectWorkflow(doc, def)

	shader, ok := b.shaders[w]
	if !ok {
		shader, ok = b.strategy.Shader(w)
	}
	if !ok || shader == "" {
		b.logger.Warn("no shader for material workflow, using fallback",
			"material", name, "workflow", w.String(), "strategy", b.strategy.Name(), "shader", FallbackShader)
		shader = FallbackShader
	}

	m := New(name, shader)
	m.Workflow = w

	switch AlphaMode(def.AlphaMode) {
	case AlphaMask:
		m.SetAlphaMode(AlphaMask, floatOr(def.AlphaCutoff, DefaultAlphaCutoff))
	case AlphaBlend:
		m.SetAlphaMode(AlphaBlend, 0)
	default:
		m.SetAlphaMode(AlphaOpaque, 0)
	}
	m.SetDoubleSided(def.DoubleSided)

	b.strategy.Apply(m, def, w, &loggingSource{src: b.textures, logger: b.logger, material: name})
	return m
}

// DetectWorkflow picks the shading model of a material: specular-glossiness when the extension block
// is present, a KHR_materials_common technique when the document uses that extension, metallic-roughness
// otherwise.
//
// Parameters:
//   - doc: the parsed document
//   - def: the material definition
//
// Returns:
//   - Workflow: the detected workflow
func DetectWorkflow(doc *gltf.Document, def *gltf.Material) Workflow {
	ext := def.Extensions
	if ext == nil {
		return WorkflowMetallicRoughness
	}
	if ext.PbrSpecularGlossiness != nil {
		return WorkflowSpecularGlossiness
	}
	if ext.Common != nil && doc.UsesExtension(gltf.ExtensionMaterialsCommon) {
		switch ext.Common.Technique {
		case gltf.TechniqueConstant:
			return WorkflowConstant
		case gltf.TechniqueBlinn:
			return WorkflowBlinn
		case gltf.TechniquePhong:
			return WorkflowPhong
		case gltf.TechniqueLambert:
			return WorkflowLambert
		}
	}
	return WorkflowMetallicRoughness
}

// loggingSource reports texture failures and hands back zero handles, which Material.SetTexture ignores.
type loggingSource struct {
	src      TextureSource
	logger   *slog.Logger
	material string
}

var _ TextureSource = &loggingSource{}

func (s *loggingSource) Texture(index int) (store.Handle, error) {
	if s.src == nil {
		return store.Handle{}, fmt.Errorf("no texture source")
	}
	h, err := s.src.Texture(index)
	if err != nil {
		s.logger.Warn("skipping material texture", "material", s.material, "texture", index, "error", err)
	}
	return h, err
}

func (s *loggingSource) Split(index int, withOcclusion bool) (store.Handle, store.Handle, error) {
	if s.src == nil {
		return store.Handle{}, store.Handle{}, fmt.Errorf("no texture source")
	}
	metal, occlusion, err := s.src.Split(index, withOcclusion)
	if err != nil {
		s.logger.Warn("skipping metallic-roughness split", "material", s.material, "texture", index, "error", err)
	}
	return metal, occlusion, err
}
