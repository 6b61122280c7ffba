package material

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fakeTextures hands out one handle per texture index and records split requests.
type fakeTextures struct {
	handles map[int]store.Handle
	splits  map[int]bool
	fail    map[int]bool
}

func newFakeTextures() *fakeTextures {
	return &fakeTextures{handles: map[int]store.Handle{}, splits: map[int]bool{}, fail: map[int]bool{}}
}

func (f *fakeTextures) Texture(index int) (store.Handle, error) {
	if f.fail[index] {
		return store.Handle{}, errors.New("broken image")
	}
	if h, ok := f.handles[index]; ok {
		return h, nil
	}
	h := store.Handle{ID: uuid.New(), Kind: store.KindTexture}
	f.handles[index] = h
	return h, nil
}

func (f *fakeTextures) Split(index int, withOcclusion bool) (store.Handle, store.Handle, error) {
	f.splits[index] = withOcclusion
	metal := store.Handle{ID: uuid.New(), Kind: store.KindTexture, Name: "metal"}
	var occ store.Handle
	if withOcclusion {
		occ = store.Handle{ID: uuid.New(), Kind: store.KindTexture, Name: "occlusion"}
	}
	return metal, occ, nil
}

func ptr[T any](v T) *T { return &v }

func docWith(materials ...gltf.Material) *gltf.Document {
	return &gltf.Document{Asset: gltf.Asset{Version: "2.0"}, Materials: materials}
}

func TestAlphaModes(t *testing.T) {
	tests := []struct {
		name       string
		def        gltf.Material
		keyword    string
		src, dst   wgpu.BlendFactor
		depthWrite bool
		queue      int
		cutoff     float32
	}{
		{"opaque", gltf.Material{}, "", wgpu.BlendFactorOne, wgpu.BlendFactorZero, true, QueueDefault, 0},
		{"mask default cutoff", gltf.Material{AlphaMode: gltf.AlphaModeMask}, KeywordAlphaTest, wgpu.BlendFactorOne, wgpu.BlendFactorZero, true, QueueAlphaTest, 0.5},
		{"mask explicit cutoff", gltf.Material{AlphaMode: gltf.AlphaModeMask, AlphaCutoff: ptr[float32](0.3)}, KeywordAlphaTest, wgpu.BlendFactorOne, wgpu.BlendFactorZero, true, QueueAlphaTest, 0.3},
		{"blend", gltf.Material{AlphaMode: gltf.AlphaModeBlend}, KeywordAlphaBlend, wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOneMinusSrcAlpha, false, QueueTransparent, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(newFakeTextures())
			m, err := b.Build(docWith(tt.def), 0)
			require.NoError(t, err)

			assert.Equal(t, tt.src, m.Blend.Color.SrcFactor)
			assert.Equal(t, tt.dst, m.Blend.Color.DstFactor)
			assert.Equal(t, tt.depthWrite, m.DepthWrite)
			assert.Equal(t, tt.queue, m.Queue)
			assert.InDelta(t, tt.cutoff, m.AlphaCutoff, 1e-6)
			if tt.keyword == "" {
				assert.False(t, m.HasKeyword(KeywordAlphaTest))
				assert.False(t, m.HasKeyword(KeywordAlphaBlend))
			} else {
				assert.True(t, m.HasKeyword(tt.keyword))
			}
		})
	}
}

func TestDoubleSided(t *testing.T) {
	b := NewBuilder(newFakeTextures())
	doc := docWith(gltf.Material{DoubleSided: true}, gltf.Material{})

	m0, err := b.Build(doc, 0)
	require.NoError(t, err)
	m1, err := b.Build(doc, 1)
	require.NoError(t, err)

	assert.Equal(t, wgpu.CullModeNone, m0.Cull)
	assert.Equal(t, wgpu.CullModeBack, m1.Cull)
}

func TestNativeMetallicRoughness(t *testing.T) {
	textures := newFakeTextures()
	doc := docWith(gltf.Material{
		Name: "Body",
		PbrMetallicRoughness: &gltf.PbrMetallicRoughness{
			BaseColorFactor:          &[4]float32{0.5, 0.5, 0.5, 1},
			BaseColorTexture:         &gltf.TextureInfo{Index: 0},
			MetallicFactor:           ptr[float32](0.25),
			MetallicRoughnessTexture: &gltf.TextureInfo{Index: 1},
		},
		OcclusionTexture: &gltf.OcclusionTextureInfo{TextureInfo: gltf.TextureInfo{Index: 1}, Strength: ptr[float32](0.8)},
		NormalTexture:    &gltf.NormalTextureInfo{TextureInfo: gltf.TextureInfo{Index: 2, TexCoord: 1}},
		EmissiveTexture:  &gltf.TextureInfo{Index: 3},
		EmissiveFactor:   &[3]float32{1, 0.5, 0},
	})

	m, err := NewBuilder(textures).Build(doc, 0)
	require.NoError(t, err)

	assert.Equal(t, "Body", m.Name)
	assert.Equal(t, "GLTF/PbrMetallicRoughness", m.Shader)
	assert.Equal(t, [4]float32{0.5, 0.5, 0.5, 1}, m.Colors["_Color"])
	assert.Equal(t, float32(0.25), m.Floats["_MetallicFactor"])
	assert.Equal(t, float32(1), m.Floats["_RoughnessFactor"])
	assert.Equal(t, textures.handles[0], m.Textures["_MainTex"].Texture)
	assert.Equal(t, textures.handles[1], m.Textures["_MetallicRoughnessMap"].Texture)

	assert.True(t, m.HasKeyword(KeywordOcclusionPacked))
	assert.NotContains(t, m.Textures, "_OcclusionMap")
	assert.Equal(t, float32(0.8), m.Floats["_OcclusionStrength"])

	assert.Equal(t, 1, m.Textures["_BumpMap"].UVSet)
	assert.Equal(t, float32(1), m.Floats["_BumpScale"])
	assert.True(t, m.HasKeyword(KeywordEmissionMap))
	assert.Equal(t, [4]float32{1, 0.5, 0, 1}, m.Colors["_EmissionColor"])
	assert.Empty(t, textures.splits)
}

func TestNativeSeparateOcclusion(t *testing.T) {
	textures := newFakeTextures()
	doc := docWith(gltf.Material{
		PbrMetallicRoughness: &gltf.PbrMetallicRoughness{MetallicRoughnessTexture: &gltf.TextureInfo{Index: 0}},
		OcclusionTexture:     &gltf.OcclusionTextureInfo{TextureInfo: gltf.TextureInfo{Index: 1}},
	})

	m, err := NewBuilder(textures).Build(doc, 0)
	require.NoError(t, err)
	assert.False(t, m.HasKeyword(KeywordOcclusionPacked))
	assert.Equal(t, textures.handles[1], m.Textures["_OcclusionMap"].Texture)
}

func TestStandardMetallicRoughnessUsesSplit(t *testing.T) {
	textures := newFakeTextures()
	doc := docWith(gltf.Material{
		AlphaMode: gltf.AlphaModeMask,
		PbrMetallicRoughness: &gltf.PbrMetallicRoughness{
			RoughnessFactor:          ptr[float32](0.25),
			MetallicRoughnessTexture: &gltf.TextureInfo{Index: 4},
		},
		OcclusionTexture: &gltf.OcclusionTextureInfo{TextureInfo: gltf.TextureInfo{Index: 4}},
	})

	m, err := NewBuilder(textures, WithStrategy(StandardStrategy())).Build(doc, 0)
	require.NoError(t, err)

	assert.Equal(t, "Standard", m.Shader)
	assert.InDelta(t, 0.75, m.Floats["_Glossiness"], 1e-6)
	assert.Equal(t, float32(1), m.Floats["_Mode"])
	assert.Equal(t, map[int]bool{4: true}, textures.splits)
	assert.Equal(t, "metal", m.Textures["_MetallicGlossMap"].Texture.Name)
	assert.Equal(t, "occlusion", m.Textures["_OcclusionMap"].Texture.Name)
	assert.True(t, m.HasKeyword(KeywordMetallicGlossMap))
}

func TestSpecularGlossiness(t *testing.T) {
	doc := docWith(gltf.Material{Extensions: &gltf.MaterialExtensions{
		PbrSpecularGlossiness: &gltf.PbrSpecularGlossiness{
			DiffuseFactor:    &[4]float32{1, 0, 0, 1},
			SpecularFactor:   &[3]float32{0.2, 0.2, 0.2},
			GlossinessFactor: ptr[float32](0.6),
		},
	}})

	native, err := NewBuilder(newFakeTextures()).Build(doc, 0)
	require.NoError(t, err)
	assert.Equal(t, WorkflowSpecularGlossiness, native.Workflow)
	assert.Equal(t, "GLTF/PbrSpecularGlossiness", native.Shader)
	assert.Equal(t, float32(0.6), native.Floats["_GlossinessFactor"])

	standard, err := NewBuilder(newFakeTextures(), WithStrategy(StandardStrategy())).Build(doc, 0)
	require.NoError(t, err)
	assert.Equal(t, "Standard (Specular setup)", standard.Shader)
	assert.Equal(t, [4]float32{0.2, 0.2, 0.2, 1}, standard.Colors["_SpecColor"])
	assert.Equal(t, [4]float32{1, 0, 0, 1}, standard.Colors["_Color"])
}

func TestUnknownShaderFallsBackWithWarning(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	doc := docWith(gltf.Material{Extensions: &gltf.MaterialExtensions{
		Common: &gltf.MaterialsCommon{
			Technique: gltf.TechniqueBlinn,
			Values: gltf.MaterialsCommonValues{
				Diffuse:   &gltf.ColorOrTexture{Color: &[4]float32{0, 1, 0, 1}},
				Shininess: ptr[float32](12),
			},
		},
	}})
	doc.ExtensionsUsed = []string{gltf.ExtensionMaterialsCommon}

	m, err := NewBuilder(newFakeTextures(), WithLogger(logger)).Build(doc, 0)
	require.NoError(t, err)
	assert.Equal(t, WorkflowBlinn, m.Workflow)
	assert.Equal(t, FallbackShader, m.Shader)
	assert.Equal(t, [4]float32{0, 1, 0, 1}, m.Colors["_Color"])
	assert.Equal(t, float32(12), m.Floats["_Shininess"])
	assert.Contains(t, logs.String(), "fallback")
	assert.Contains(t, logs.String(), "blinn")
}

func TestShaderOverride(t *testing.T) {
	b := NewBuilder(newFakeTextures(), WithShader(WorkflowMetallicRoughness, "Custom/Lit"))
	m, err := b.Build(docWith(gltf.Material{}), 0)
	require.NoError(t, err)
	assert.Equal(t, "Custom/Lit", m.Shader)
}

func TestFailingTextureIsSkipped(t *testing.T) {
	var logs bytes.Buffer
	textures := newFakeTextures()
	textures.fail[0] = true

	doc := docWith(gltf.Material{PbrMetallicRoughness: &gltf.PbrMetallicRoughness{BaseColorTexture: &gltf.TextureInfo{Index: 0}}})
	m, err := NewBuilder(textures, WithLogger(slog.New(slog.NewTextHandler(&logs, nil)))).Build(doc, 0)
	require.NoError(t, err)
	assert.NotContains(t, m.Textures, "_MainTex")
	assert.Contains(t, logs.String(), "skipping material texture")
}

func TestDefaultMaterialIsShared(t *testing.T) {
	b := NewBuilder(newFakeTextures())
	assert.Same(t, b.Default(), b.Default())
	assert.Equal(t, DefaultName, b.Default().Name)
	assert.Equal(t, white, b.Default().Colors["_Color"])
}

func TestBuildOutOfRange(t *testing.T) {
	_, err := NewBuilder(newFakeTextures()).Build(docWith(), 3)
	assert.Error(t, err)
}

func TestMaterialYAML(t *testing.T) {
	m := New("Glass", "Standard")
	m.SetAlphaMode(AlphaBlend, 0)
	m.SetDoubleSided(true)

	out, err := yaml.Marshal(m)
	require.NoError(t, err)

	var doc materialDocument
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "Glass", doc.Name)
	assert.Equal(t, AlphaBlend, doc.AlphaMode)
	assert.Equal(t, wgpu.BlendFactorSrcAlpha.String(), doc.SrcBlend)
	assert.Equal(t, wgpu.CullModeNone.String(), doc.Cull)
	assert.False(t, doc.DepthWrite)
	assert.Equal(t, QueueTransparent, doc.Queue)
}

func TestSplitMidgrayRoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.RGBA{128, 128, 128, 255})
		}
	}

	metal, occlusion := SplitMetallicRoughness(src, true)
	require.NotNil(t, occlusion)
	const tolerance = 1.0 / 255

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			mc := metal.NRGBAAt(x, y)
			assert.InDelta(t, 0.5, float64(mc.R)/255, tolerance)
			assert.InDelta(t, 0.5, float64(mc.G)/255, tolerance)
			assert.InDelta(t, 0.5, float64(mc.B)/255, tolerance)
			assert.InDelta(t, 0.5, float64(mc.A)/255, tolerance)

			oc := occlusion.NRGBAAt(x, y)
			assert.InDelta(t, 0.5, float64(oc.R)/255, tolerance)
			assert.Equal(t, uint8(255), oc.A)
		}
	}
}

func TestSplitChannels(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.Set(0, 0, color.RGBA{10, 200, 90, 255})

	metal, occlusion := SplitMetallicRoughness(src, false)
	assert.Nil(t, occlusion)
	assert.Equal(t, color.NRGBA{90, 90, 90, 55}, metal.NRGBAAt(0, 0))
}
