package importer_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf/gltftest"
	"github.com/Carmen-Shannon/oxy-gltf/engine/importer"
	"github.com/Carmen-Shannon/oxy-gltf/engine/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newStore(t *testing.T) (store.Store, hackpadfs.FS) {
	t.Helper()
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	s, err := store.NewFileStore(store.WithFS(fsys), store.WithRoot("out/Model"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, fsys
}

func countFiles(t *testing.T, fsys hackpadfs.FS) int {
	t.Helper()
	n := 0
	err := fs.WalkDir(fsys, ".", func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := range 2 {
		for x := range 2 {
			img.Set(x, y, color.NRGBA{R: 200, G: 128, B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func triangle(b *gltftest.Builder, material *int) gltf.Primitive {
	pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	uv := b.AddVec2([][2]float32{{0, 0}, {1, 0}, {0, 1}})
	idx := b.AddIndices([]uint32{0, 1, 2})
	return gltf.Primitive{
		Attributes: map[string]int{gltf.AttributePosition: pos, gltf.AttributeTexCoord + "0": uv},
		Indices:    &idx,
		Material:   material,
	}
}

// fixture is a textured triangle under "Root", an untextured triangle under "Leaf" and a clip sliding "Leaf".
func fixture(t *testing.T) *gltftest.Builder {
	t.Helper()
	b := gltftest.New()
	img := b.AddImage(pngBytes(t), "image/png")
	albedo := b.AddTexture(img)
	metalRough := b.AddTexture(img)
	body := b.AddMaterial(gltf.Material{
		Name: "Body",
		PbrMetallicRoughness: &gltf.PbrMetallicRoughness{
			BaseColorTexture:         &gltf.TextureInfo{Index: albedo},
			MetallicRoughnessTexture: &gltf.TextureInfo{Index: metalRough},
		},
	})

	tri := b.AddMesh("Tri", triangle(b, &body))
	plain := b.AddMesh("Plain", triangle(b, nil))

	leaf := b.AddNode(gltf.Node{Name: "Leaf", Mesh: &plain, Translation: &[3]float32{0, 2, 0}})
	root := b.AddNode(gltf.Node{Name: "Root", Mesh: &tri, Children: []int{leaf}})

	in := b.AddScalars([]float32{0, 1})
	out := b.AddVec3([][3]float32{{0, 2, 0}, {1, 2, 0}})
	b.AddAnimation(gltf.Animation{
		Name:     "Slide",
		Channels: []gltf.AnimationChannel{{Sampler: 0, Target: gltf.AnimationTarget{Node: &leaf, Path: gltf.PathTranslation}}},
		Samplers: []gltf.AnimationSampler{{Input: in, Output: out}},
	})
	b.AddScene(root)
	return b
}

func TestImportCompletes(t *testing.T) {
	s, fsys := newStore(t)
	var kinds []scheduler.StageKind
	im := importer.NewImporter(
		importer.WithStore(s),
		importer.WithStrategy(material.StandardStrategy()),
		importer.WithProgress(func(kind scheduler.StageKind, current, total int) {
			if len(kinds) == 0 || kinds[len(kinds)-1] != kind {
				kinds = append(kinds, kind)
			}
			assert.LessOrEqual(t, current, total)
		}),
	)
	require.NoError(t, im.StartDocument(fixture(t).Document(), "Model"))

	status, err := im.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, importer.StatusCompleted, status)
	assert.Equal(t, []scheduler.StageKind{
		importer.StageBuffers, importer.StageImages, importer.StageTextures, importer.StageMaterials,
		importer.StageMeshes, importer.StageScene, importer.StageAnimations, importer.StageSkins, importer.StagePrefab,
	}, kinds)

	m := im.Result()
	require.NotNil(t, m)
	assert.Equal(t, "Model", m.Name())
	assert.Equal(t, "Model", m.Root().Name)
	require.Len(t, m.Meshes(), 2)
	assert.Equal(t, "Tri", m.Meshes()[0].Name)
	assert.Equal(t, "Plain", m.Meshes()[1].Name)

	require.Len(t, m.Materials(), 2)
	assert.Equal(t, "Body", m.Materials()[0].Name)
	assert.Equal(t, material.DefaultName, m.Materials()[1].Name)
	assert.Equal(t, []string{"Model"}, m.AnimationNames())

	// completed imports keep every artifact
	assert.NotEmpty(t, m.Artifacts())
	assert.Equal(t, len(m.Artifacts()), countFiles(t, fsys))
	assert.Equal(t, "out/Model/Model.prefab.yaml", m.Prefab().Path)
	assert.Empty(t, s.Artifacts(), "journal is committed")
	assert.NoError(t, im.Teardown())
	assert.Equal(t, len(m.Artifacts()), countFiles(t, fsys))

	var prefab struct {
		Name string `yaml:"name"`
		Root struct {
			Name     string `yaml:"name"`
			Children []struct {
				Name     string `yaml:"name"`
				Children []struct {
					Name     string `yaml:"name"`
					Renderer struct {
						Kind      string         `yaml:"kind"`
						Meshes    []store.Handle `yaml:"meshes"`
						Materials []store.Handle `yaml:"materials"`
					} `yaml:"renderer"`
				} `yaml:"children"`
			} `yaml:"children"`
		} `yaml:"root"`
		Animations []struct {
			Name string `yaml:"name"`
		} `yaml:"animations"`
	}
	data, err := hackpadfs.ReadFile(fsys, m.Prefab().Path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &prefab))
	assert.Equal(t, "Model", prefab.Name)
	require.Len(t, prefab.Root.Children, 1)
	assert.Equal(t, "Root", prefab.Root.Children[0].Name)
	require.Len(t, prefab.Root.Children[0].Children, 1)
	leaf := prefab.Root.Children[0].Children[0]
	assert.Equal(t, "Leaf", leaf.Name)
	assert.Equal(t, "static", leaf.Renderer.Kind)
	require.Len(t, leaf.Renderer.Meshes, 1)
	assert.Equal(t, "Plain", leaf.Renderer.Meshes[0].Name)
	require.Len(t, leaf.Renderer.Materials, 1)
	assert.Equal(t, material.DefaultName, leaf.Renderer.Materials[0].Name)
	require.Len(t, prefab.Animations, 1)
}

func TestCancelLeavesNoArtifacts(t *testing.T) {
	s, fsys := newStore(t)
	var im importer.Importer
	im = importer.NewImporter(
		importer.WithStore(s),
		importer.WithProgress(func(kind scheduler.StageKind, _, _ int) {
			if kind == importer.StageMeshes {
				im.Cancel()
			}
		}),
	)
	require.NoError(t, im.StartDocument(fixture(t).Document(), "Model"))

	var status importer.Status
	var err error
	for status = importer.StatusRunning; status == importer.StatusRunning; {
		status, err = im.Tick()
	}
	require.NoError(t, err)
	assert.Equal(t, importer.StatusInterrupted, status)
	assert.Nil(t, im.Result())
	assert.Zero(t, countFiles(t, fsys))
	assert.Empty(t, s.Artifacts())

	// terminal status is sticky
	status, err = im.Tick()
	assert.NoError(t, err)
	assert.Equal(t, importer.StatusInterrupted, status)
}

func TestCancelBeforeStart(t *testing.T) {
	s, fsys := newStore(t)
	im := importer.NewImporter(importer.WithStore(s))
	im.Cancel()
	require.NoError(t, im.StartDocument(fixture(t).Document(), "Model"))

	status, err := im.Tick()
	require.NoError(t, err)
	assert.Equal(t, importer.StatusInterrupted, status)
	assert.Zero(t, countFiles(t, fsys))
}

func TestContextCancel(t *testing.T) {
	s, fsys := newStore(t)
	im := importer.NewImporter(importer.WithStore(s))
	require.NoError(t, im.StartDocument(fixture(t).Document(), "Model"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	status, err := im.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, importer.StatusInterrupted, status)
	assert.Zero(t, countFiles(t, fsys))
}

func TestFatalErrorTearsDown(t *testing.T) {
	s, fsys := newStore(t)
	b := fixture(t)
	normals := b.AddVec3([][3]float32{{0, 0, 1}})
	broken := b.AddMesh("Broken", gltf.Primitive{Attributes: map[string]int{gltf.AttributeNormal: normals}})
	b.AddNode(gltf.Node{Name: "Orphan", Mesh: &broken})

	im := importer.NewImporter(importer.WithStore(s))
	require.NoError(t, im.StartDocument(b.Document(), "Model"))

	status, err := im.Run(context.Background())
	assert.Equal(t, importer.StatusFailed, status)
	assert.ErrorIs(t, err, gltf.ErrMissingRequiredAttribute)
	assert.ErrorContains(t, err, "stage meshes")
	assert.Nil(t, im.Result())
	assert.Zero(t, countFiles(t, fsys))
}

func TestUnresolvableBufferIsFatal(t *testing.T) {
	s, fsys := newStore(t)
	doc := fixture(t).Document()
	doc.GLBChunk = nil

	im := importer.NewImporter(importer.WithStore(s))
	require.NoError(t, im.StartDocument(doc, "Model"))
	status, err := im.Run(context.Background())
	assert.Equal(t, importer.StatusFailed, status)
	assert.ErrorIs(t, err, gltf.ErrUnresolvableBuffer)
	assert.Zero(t, countFiles(t, fsys))
}

func TestUnsupportedModeIsSkipped(t *testing.T) {
	s, _ := newStore(t)
	b := fixture(t)
	lines := triangle(b, nil)
	lines.Mode = gltftest.Ptr(1)
	wire := b.AddMesh("Wire", lines)
	doc := b.Document()
	doc.Nodes[0].Mesh = &wire

	im := importer.NewImporter(importer.WithStore(s))
	require.NoError(t, im.StartDocument(doc, "Model"))
	status, err := im.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, importer.StatusCompleted, status)

	for _, m := range im.Result().Meshes() {
		assert.NotEqual(t, "Wire", m.Name)
	}
}

func TestUnavailableImageIsSkipped(t *testing.T) {
	s, _ := newStore(t)
	b := fixture(t)
	doc := b.Document()
	doc.Images[0].BufferView = nil

	im := importer.NewImporter(importer.WithStore(s), importer.WithStrategy(material.StandardStrategy()))
	require.NoError(t, im.StartDocument(doc, "Model"))
	status, err := im.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, importer.StatusCompleted, status)
	assert.NotContains(t, im.Result().Materials()[0].Textures, "_MainTex")
}

func TestDuplicateMeshNamesAreUnique(t *testing.T) {
	s, _ := newStore(t)
	b := gltftest.New()
	first := b.AddMesh("Tri", triangle(b, nil))
	second := b.AddMesh("Tri", triangle(b, nil))
	a := b.AddNode(gltf.Node{Name: "A", Mesh: &first})
	c := b.AddNode(gltf.Node{Name: "B", Mesh: &second})
	b.AddScene(a, c)

	im := importer.NewImporter(importer.WithStore(s))
	require.NoError(t, im.StartDocument(b.Document(), "Model"))
	_, err := im.Run(context.Background())
	require.NoError(t, err)

	meshes := im.Result().Meshes()
	require.Len(t, meshes, 2)
	assert.Equal(t, "Tri", meshes[0].Name)
	assert.Equal(t, "Tri_1", meshes[1].Name)
}

func TestSkinnedImport(t *testing.T) {
	s, fsys := newStore(t)
	b := gltftest.New()
	prim := triangle(b, nil)
	prim.Attributes[gltf.AttributeJoints] = b.AddJoints([][4]uint8{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}})
	prim.Attributes[gltf.AttributeWeights] = b.AddVec4([][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}})
	body := b.AddMesh("Body", prim)

	hip := b.AddNode(gltf.Node{Name: "Hip"})
	ibm := common.IdentityMatrix()
	ibm[12], ibm[13], ibm[14] = 5, 6, 7
	skin := b.AddSkin(gltf.Skin{Joints: []int{hip}, InverseBindMatrices: gltftest.Ptr(b.AddMat4([][16]float32{ibm}))})
	character := b.AddNode(gltf.Node{Name: "Character", Mesh: &body, Skin: &skin})
	armature := b.AddNode(gltf.Node{Name: "Armature", Children: []int{hip, character}})
	b.AddScene(armature)

	im := importer.NewImporter(importer.WithStore(s))
	require.NoError(t, im.StartDocument(b.Document(), "Model"))
	status, err := im.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, importer.StatusCompleted, status)

	m := im.Result()
	assert.True(t, m.Skinned())
	require.Len(t, m.Skins(), 1)

	var component *scene.Component
	scene.Walk(m.Root(), func(n *scene.Node) {
		if n.Component != nil && n.Component.Kind == scene.ComponentSkinned {
			component = n.Component
		}
	})
	require.NotNil(t, component)
	require.Len(t, component.Bones, 1)
	assert.Equal(t, "Hip", component.Bones[0].Name)
	assert.Equal(t, "Hip", component.RootBone.Name)

	data, err := hackpadfs.ReadFile(fsys, m.Prefab().Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rootBone: Armature/Hip")

	assert.Equal(t, [][16]float32{ibm}, savedBindPoses(t, fsys, "out/Model/Meshes/Body.mesh.yaml"))
}

func savedBindPoses(t *testing.T, fsys hackpadfs.FS, p string) [][16]float32 {
	t.Helper()
	data, err := hackpadfs.ReadFile(fsys, p)
	require.NoError(t, err)
	var saved struct {
		BindPoses [][16]float32 `yaml:"bindPoses"`
	}
	require.NoError(t, yaml.Unmarshal(data, &saved))
	return saved.BindPoses
}

func TestMeshSharedBySkinsIsSavedPerSkin(t *testing.T) {
	s, fsys := newStore(t)
	b := gltftest.New()
	prim := triangle(b, nil)
	prim.Attributes[gltf.AttributeJoints] = b.AddJoints([][4]uint8{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}})
	prim.Attributes[gltf.AttributeWeights] = b.AddVec4([][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}})
	body := b.AddMesh("Body", prim)

	ibm := func(x float32) [16]float32 {
		m := common.IdentityMatrix()
		m[12] = x
		return m
	}
	left := b.AddNode(gltf.Node{Name: "Left"})
	right := b.AddNode(gltf.Node{Name: "Right"})
	first := b.AddSkin(gltf.Skin{Joints: []int{left}, InverseBindMatrices: gltftest.Ptr(b.AddMat4([][16]float32{ibm(1)}))})
	second := b.AddSkin(gltf.Skin{Joints: []int{right}, InverseBindMatrices: gltftest.Ptr(b.AddMat4([][16]float32{ibm(2)}))})
	a := b.AddNode(gltf.Node{Name: "A", Mesh: &body, Skin: &first})
	c := b.AddNode(gltf.Node{Name: "B", Mesh: &body, Skin: &second})
	b.AddScene(left, right, a, c)

	im := importer.NewImporter(importer.WithStore(s))
	require.NoError(t, im.StartDocument(b.Document(), "Model"))
	status, err := im.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, importer.StatusCompleted, status)

	meshes := im.Result().Meshes()
	require.Len(t, meshes, 2)
	assert.Equal(t, "Body", meshes[0].Name)
	assert.Equal(t, "Body_1", meshes[1].Name)
	assert.Equal(t, [][16]float32{ibm(1)}, savedBindPoses(t, fsys, "out/Model/Meshes/Body.mesh.yaml"))
	assert.Equal(t, [][16]float32{ibm(2)}, savedBindPoses(t, fsys, "out/Model/Meshes/Body_1.mesh.yaml"))

	var prefab struct {
		Root struct {
			Children []struct {
				Renderer *struct {
					Meshes []store.Handle `yaml:"meshes"`
				} `yaml:"renderer"`
			} `yaml:"children"`
		} `yaml:"root"`
	}
	data, err := hackpadfs.ReadFile(fsys, im.Result().Prefab().Path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &prefab))
	require.Len(t, prefab.Root.Children, 4)
	assert.Equal(t, "out/Model/Meshes/Body.mesh.yaml", prefab.Root.Children[2].Renderer.Meshes[0].Path)
	assert.Equal(t, "out/Model/Meshes/Body_1.mesh.yaml", prefab.Root.Children[3].Renderer.Meshes[0].Path)
}

func TestUnresolvedJointIsFatal(t *testing.T) {
	s, fsys := newStore(t)
	b := gltftest.New()
	prim := triangle(b, nil)
	prim.Attributes[gltf.AttributeJoints] = b.AddJoints([][4]uint8{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}})
	prim.Attributes[gltf.AttributeWeights] = b.AddVec4([][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}})
	body := b.AddMesh("Body", prim)

	hidden := b.AddNode(gltf.Node{Name: "Hidden"})
	skin := b.AddSkin(gltf.Skin{Joints: []int{hidden}})
	character := b.AddNode(gltf.Node{Name: "Character", Mesh: &body, Skin: &skin})
	b.AddScene(character)

	im := importer.NewImporter(importer.WithStore(s))
	require.NoError(t, im.StartDocument(b.Document(), "Model"))
	status, err := im.Run(context.Background())
	assert.Equal(t, importer.StatusFailed, status)
	assert.ErrorIs(t, err, gltf.ErrUnresolvedJoint)
	assert.Zero(t, countFiles(t, fsys))
}

func TestStartFromFile(t *testing.T) {
	src, err := mem.NewFS()
	require.NoError(t, err)
	require.NoError(t, hackpadfs.MkdirAll(src, "models", 0o755))
	require.NoError(t, hackpadfs.WriteFullFile(src, "models/Crate.glb", fixture(t).GLB(), 0o644))

	s, _ := newStore(t)
	im := importer.NewImporter(importer.WithFS(src), importer.WithStore(s))
	require.NoError(t, im.Start("models/Crate.glb"))
	status, err := im.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, importer.StatusCompleted, status)
	assert.Equal(t, "Crate", im.Result().Name())
	assert.Equal(t, "models/Crate.glb", im.Result().Path())
}

func TestStartErrors(t *testing.T) {
	im := importer.NewImporter()
	status, err := im.Tick()
	assert.Equal(t, importer.StatusIdle, status)
	assert.ErrorIs(t, err, importer.ErrNotStarted)

	err = im.StartDocument(gltftest.New().Document(), "Empty")
	assert.ErrorIs(t, err, gltf.ErrNoDefaultScene)
	assert.Equal(t, importer.StatusFailed, im.Status())

	src, err := mem.NewFS()
	require.NoError(t, err)
	err = importer.NewImporter(importer.WithFS(src)).Start("missing.gltf")
	assert.Error(t, err)
}
