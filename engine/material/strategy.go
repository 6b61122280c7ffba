package material

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
)

// Workflow is the shading model a glTF material is authored for.
type Workflow int

const (
	WorkflowMetallicRoughness Workflow = iota
	WorkflowSpecularGlossiness
	WorkflowConstant
	WorkflowBlinn
	WorkflowPhong
	WorkflowLambert
)

func (w Workflow) String() string {
	switch w {
	case WorkflowMetallicRoughness:
		return "metallic-roughness"
	case WorkflowSpecularGlossiness:
		return "specular-glossiness"
	case WorkflowConstant:
		return "constant"
	case WorkflowBlinn:
		return "blinn"
	case WorkflowPhong:
		return "phong"
	case WorkflowLambert:
		return "lambert"
	default:
		return "unknown"
	}
}

// FallbackShader is used when a strategy has no shader for a workflow.
const FallbackShader = "Standard"

// TextureSource registers textures on demand. Implementations return the same handle for repeated
// requests of the same texture index.
type TextureSource interface {
	// Texture returns the registered texture for a document texture index.
	//
	// Parameters:
	//   - index: the texture index
	//
	// Returns:
	//   - store.Handle: the texture handle
	//   - error: error if the texture cannot be registered
	Texture(index int) (store.Handle, error)

	// Split returns the metal/smoothness texture derived from a packed metallic-roughness texture,
	// and the occlusion texture derived from its red channel when withOcclusion is set.
	//
	// Parameters:
	//   - index: the metallic-roughness texture index
	//   - withOcclusion: whether the occlusion output is needed
	//
	// Returns:
	//   - store.Handle: the metal texture handle
	//   - store.Handle: the occlusion texture handle, zero when not requested
	//   - error: error if the source image cannot be decoded or the outputs cannot be stored
	Split(index int, withOcclusion bool) (store.Handle, store.Handle, error)
}

// Strategy maps glTF material definitions onto a family of shaders.
type Strategy interface {
	// Name identifies the strategy in configuration and logs.
	Name() string

	// Shader returns the shader for a workflow, or false when the strategy has none.
	Shader(w Workflow) (string, bool)

	// Apply writes the workflow-specific parameters of def onto m.
	// Textures that fail to resolve are left unset by the TextureSource.
	Apply(m *Material, def *gltf.Material, w Workflow, textures TextureSource)
}

// Strategy names accepted by StrategyByName.
const (
	StrategyNative   = "native"
	StrategyStandard = "standard"
)

// StrategyByName returns the strategy registered under name.
//
// Parameters:
//   - name: StrategyNative or StrategyStandard
//
// Returns:
//   - Strategy: the strategy
//   - bool: false when the name is unknown
func StrategyByName(name string) (Strategy, bool) {
	switch name {
	case StrategyNative:
		return NativeStrategy(), true
	case StrategyStandard:
		return StandardStrategy(), true
	}
	return nil, false
}

// --- Native ---

type nativeStrategy struct{}

var _ Strategy = nativeStrategy{}

// NativeStrategy targets the importer's own glTF shaders, with parameters named after glTF properties.
func NativeStrategy() Strategy {
	return nativeStrategy{}
}

func (nativeStrategy) Name() string { return StrategyNative }

func (nativeStrategy) Shader(w Workflow) (string, bool) {
	switch w {
	case WorkflowMetallicRoughness:
		return "GLTF/PbrMetallicRoughness", true
	case WorkflowSpecularGlossiness:
		return "GLTF/PbrSpecularGlossiness", true
	case WorkflowConstant:
		return "GLTF/Constant", true
	}
	return "", false
}

func (nativeStrategy) Apply(m *Material, def *gltf.Material, w Workflow, textures TextureSource) {
	var mrTexture *gltf.TextureInfo

	switch w {
	case WorkflowSpecularGlossiness:
		sg := def.Extensions.PbrSpecularGlossiness
		m.SetColor("_Color", vec4Or(sg.DiffuseFactor, white))
		setTexture(m, "_MainTex", sg.DiffuseTexture, textures)
		m.SetColor("_SpecularFactor", rgb1(vec3Or(sg.SpecularFactor, [3]float32{1, 1, 1})))
		m.SetFloat("_GlossinessFactor", floatOr(sg.GlossinessFactor, 1))
		setTexture(m, "_SpecularGlossinessMap", sg.SpecularGlossinessTexture, textures)
	case WorkflowConstant, WorkflowBlinn, WorkflowPhong, WorkflowLambert:
		applyCommon(m, def.Extensions.Common, textures)
	default:
		pbr := def.PbrMetallicRoughness
		if pbr == nil {
			pbr = &gltf.PbrMetallicRoughness{}
		}
		m.SetColor("_Color", vec4Or(pbr.BaseColorFactor, white))
		setTexture(m, "_MainTex", pbr.BaseColorTexture, textures)
		m.SetFloat("_MetallicFactor", floatOr(pbr.MetallicFactor, 1))
		m.SetFloat("_RoughnessFactor", floatOr(pbr.RoughnessFactor, 1))
		setTexture(m, "_MetallicRoughnessMap", pbr.MetallicRoughnessTexture, textures)
		mrTexture = pbr.MetallicRoughnessTexture
	}

	applyNormal(m, def, textures)
	if occ := def.OcclusionTexture; occ != nil {
		m.SetFloat("_OcclusionStrength", floatOr(occ.Strength, 1))
		if mrTexture != nil && mrTexture.Index == occ.Index {
			m.EnableKeyword(KeywordOcclusionPacked)
		} else {
			setTexture(m, "_OcclusionMap", &occ.TextureInfo, textures)
		}
	}
	applyEmission(m, def, textures)
}

// --- Standard ---

type standardStrategy struct{}

var _ Strategy = standardStrategy{}

// StandardStrategy targets the host's standard shaders. Roughness becomes glossiness and packed
// metallic-roughness textures are replaced by their split outputs.
func StandardStrategy() Strategy {
	return standardStrategy{}
}

func (standardStrategy) Name() string { return StrategyStandard }

func (standardStrategy) Shader(w Workflow) (string, bool) {
	switch w {
	case WorkflowMetallicRoughness:
		return "Standard", true
	case WorkflowSpecularGlossiness:
		return "Standard (Specular setup)", true
	}
	return "", false
}

func (standardStrategy) Apply(m *Material, def *gltf.Material, w Workflow, textures TextureSource) {
	switch m.AlphaMode {
	case AlphaMask:
		m.SetFloat("_Mode", 1)
	case AlphaBlend:
		m.SetFloat("_Mode", 3)
	default:
		m.SetFloat("_Mode", 0)
	}

	applyNormal(m, def, textures)
	if _, ok := m.Textures["_BumpMap"]; ok {
		m.EnableKeyword(KeywordNormalMap)
	}
	applyEmission(m, def, textures)
	if _, ok := m.Textures["_EmissionMap"]; ok {
		m.EnableKeyword(KeywordEmission)
	}

	occ := def.OcclusionTexture
	switch w {
	case WorkflowSpecularGlossiness:
		sg := def.Extensions.PbrSpecularGlossiness
		gloss := floatOr(sg.GlossinessFactor, 1)
		m.SetColor("_Color", vec4Or(sg.DiffuseFactor, white))
		setTexture(m, "_MainTex", sg.DiffuseTexture, textures)
		if sg.SpecularGlossinessTexture != nil {
			setTexture(m, "_SpecGlossMap", sg.SpecularGlossinessTexture, textures)
			m.SetFloat("_GlossMapScale", gloss)
			if _, ok := m.Textures["_SpecGlossMap"]; ok {
				m.EnableKeyword(KeywordSpecGlossMap)
			}
		}
		m.SetFloat("_Glossiness", gloss)
		m.SetColor("_SpecColor", rgb1(vec3Or(sg.SpecularFactor, [3]float32{1, 1, 1})))
		if occ != nil {
			m.SetFloat("_OcclusionStrength", floatOr(occ.Strength, 1))
			setTexture(m, "_OcclusionMap", &occ.TextureInfo, textures)
		}
	case WorkflowConstant, WorkflowBlinn, WorkflowPhong, WorkflowLambert:
		applyCommon(m, def.Extensions.Common, textures)
		if occ != nil {
			m.SetFloat("_OcclusionStrength", floatOr(occ.Strength, 1))
			setTexture(m, "_OcclusionMap", &occ.TextureInfo, textures)
		}
	default:
		pbr := def.PbrMetallicRoughness
		if pbr == nil {
			pbr = &gltf.PbrMetallicRoughness{}
		}
		m.SetColor("_Color", vec4Or(pbr.BaseColorFactor, white))
		setTexture(m, "_MainTex", pbr.BaseColorTexture, textures)
		m.SetFloat("_Metallic", floatOr(pbr.MetallicFactor, 1))
		m.SetFloat("_Glossiness", 1-floatOr(pbr.RoughnessFactor, 1))

		if mr := pbr.MetallicRoughnessTexture; mr != nil {
			metal, occlusion, err := textures.Split(mr.Index, occ != nil)
			if err == nil {
				m.SetTexture("_MetallicGlossMap", metal, mr.TexCoord)
				m.EnableKeyword(KeywordMetallicGlossMap)
				if occ != nil {
					m.SetFloat("_OcclusionStrength", floatOr(occ.Strength, 1))
					if occ.Index == mr.Index {
						m.SetTexture("_OcclusionMap", occlusion, occ.TexCoord)
					} else {
						setTexture(m, "_OcclusionMap", &occ.TextureInfo, textures)
					}
				}
				return
			}
		}
		if occ != nil {
			m.SetFloat("_OcclusionStrength", floatOr(occ.Strength, 1))
			setTexture(m, "_OcclusionMap", &occ.TextureInfo, textures)
		}
	}
}

// --- Shared parameter helpers ---

var white = [4]float32{1, 1, 1, 1}

func applyNormal(m *Material, def *gltf.Material, textures TextureSource) {
	if n := def.NormalTexture; n != nil {
		setTexture(m, "_BumpMap", &n.TextureInfo, textures)
		m.SetFloat("_BumpScale", floatOr(n.Scale, 1))
	}
}

func applyEmission(m *Material, def *gltf.Material, textures TextureSource) {
	if e := def.EmissiveTexture; e != nil {
		m.EnableKeyword(KeywordEmissionMap)
		setTexture(m, "_EmissionMap", e, textures)
		m.SetInt("_EmissionUV", e.TexCoord)
	}
	m.SetColor("_EmissionColor", rgb1(vec3Or(def.EmissiveFactor, [3]float32{})))
}

// applyCommon maps KHR_materials_common values, each either a color or a texture.
func applyCommon(m *Material, c *gltf.MaterialsCommon, textures TextureSource) {
	if c == nil {
		return
	}
	v := c.Values
	setColorOrTexture(m, "_Color", "_MainTex", v.Diffuse, textures)
	setColorOrTexture(m, "_AmbientFactor", "_AmbientMap", v.Ambient, textures)
	setColorOrTexture(m, "_EmissionColor", "_EmissionMap", v.Emission, textures)
	setColorOrTexture(m, "_SpecColor", "_SpecMap", v.Specular, textures)
	if v.Shininess != nil {
		m.SetFloat("_Shininess", *v.Shininess)
	}
	if v.Transparency != nil {
		m.SetFloat("_Transparency", *v.Transparency)
	}
	if v.Lightmap != nil {
		uv := 0
		if v.LightmapUV != nil {
			uv = *v.LightmapUV
		}
		m.EnableKeyword(KeywordLightmap)
		setTexture(m, "_LightMap", &gltf.TextureInfo{Index: *v.Lightmap, TexCoord: uv}, textures)
		m.SetInt("_LightUV", uv)
	}
}

func setColorOrTexture(m *Material, colorName, textureName string, v *gltf.ColorOrTexture, textures TextureSource) {
	switch {
	case v == nil:
	case v.Texture != nil:
		setTexture(m, textureName, &gltf.TextureInfo{Index: *v.Texture}, textures)
	case v.Color != nil:
		m.SetColor(colorName, *v.Color)
	}
}

func setTexture(m *Material, name string, info *gltf.TextureInfo, textures TextureSource) {
	if info == nil {
		return
	}
	h, err := textures.Texture(info.Index)
	if err != nil {
		return
	}
	m.SetTexture(name, h, info.TexCoord)
}

func floatOr(v *float32, def float32) float32 {
	if v == nil {
		return def
	}
	return *v
}

func vec3Or(v *[3]float32, def [3]float32) [3]float32 {
	if v == nil {
		return def
	}
	return *v
}

func vec4Or(v *[4]float32, def [4]float32) [4]float32 {
	if v == nil {
		return def
	}
	return *v
}

func rgb1(c [3]float32) [4]float32 {
	return [4]float32{c[0], c[1], c[2], 1}
}
