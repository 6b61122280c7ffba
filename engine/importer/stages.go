package importer

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/mesh"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
)

// stages returns the pipeline in execution order.
func (im *importer) stages() []scheduler.Stage {
	doc := im.doc
	return []scheduler.Stage{
		scheduler.NewStage(StageBuffers, len(doc.Buffers), im.loadBuffer),
		scheduler.NewStage(StageImages, len(doc.Images), im.loadImage),
		scheduler.NewStage(StageTextures, len(doc.Textures), im.loadTexture),
		scheduler.NewStage(StageMaterials, len(doc.Materials), im.buildMaterial),
		scheduler.NewStage(StageMeshes, len(im.primitives), im.buildPrimitive),
		scheduler.NewFuncStage(StageScene, im.walker.Step, func() (int, int) {
			return im.walker.Created(), im.walker.Total()
		}),
		scheduler.NewStage(StageAnimations, len(doc.Animations), im.convertAnimation),
		scheduler.NewStage(StageSkins, len(doc.Skins), im.bindSkin),
		scheduler.NewStage(StagePrefab, 1, im.savePrefab),
	}
}

func (im *importer) loadBuffer(i int) error {
	data, err := im.source.Buffer(im.doc, i)
	if err != nil {
		return err
	}
	im.cache.Buffers.Set(i, data)
	return nil
}

func (im *importer) loadImage(i int) error {
	img, err := im.source.Image(im.doc, i, im.cache.BufferLookup())
	if err != nil {
		im.logger.Warn("skipping unavailable image", "image", i, "error", err)
		return nil
	}

	h, err := im.store.RegisterImage(i, imageName(im.doc.Images[i].Name, im.doc.Images[i].URI, i), img.Data)
	if err != nil {
		return fmt.Errorf("failed to register image %d: %w", i, err)
	}
	im.cache.Images.Set(i, h)
	return nil
}

// imageName is the cleaned image name, else the base of its file URI, else image_<i>.
func imageName(name, uri string, i int) string {
	var fromURI string
	if uri != "" && !strings.HasPrefix(uri, "data:") {
		base := path.Base(uri)
		fromURI = common.CleanName(strings.TrimSuffix(base, path.Ext(base)))
	}
	return common.Coalesce(common.CleanName(name), fromURI, fmt.Sprintf("image_%d", i))
}

func (im *importer) loadTexture(i int) error {
	_, err := im.textures().Texture(i)
	if errors.Is(err, errImageUnavailable) {
		im.logger.Warn("skipping texture", "texture", i, "error", err)
		return nil
	}
	return err
}

func (im *importer) buildMaterial(i int) error {
	m, err := im.materials.Build(im.doc, i)
	if err != nil {
		return err
	}
	h, err := im.store.SaveMaterial(i, m.Name, m)
	if err != nil {
		return fmt.Errorf("failed to save material %d: %w", i, err)
	}
	im.cache.Materials.Set(i, m)
	im.cache.MaterialHandles.Set(i, h)
	return nil
}

// defaultMaterial saves the default material on first use.
func (im *importer) defaultMaterial() error {
	if im.cache.DefaultMaterial != nil {
		return nil
	}
	m := im.materials.Default()
	h, err := im.store.SaveMaterial(-1, m.Name, m)
	if err != nil {
		return fmt.Errorf("failed to save default material: %w", err)
	}
	im.cache.DefaultMaterial = m
	im.cache.DefaultHandle = h
	return nil
}

// materialHandle returns the handle of a material index, falling back to the default material.
func (im *importer) materialHandle(index int) store.Handle {
	if h, ok := im.cache.MaterialHandles.Get(index); ok {
		return h
	}
	return im.cache.DefaultHandle
}

func (im *importer) buildPrimitive(i int) error {
	ref := im.primitives[i]
	parts, ok := im.cache.Meshes.Get(ref.mesh)
	if !ok {
		parts = make([][]*mesh.Mesh, len(im.doc.Meshes[ref.mesh].Primitives))
		im.cache.Meshes.Set(ref.mesh, parts)
	}

	prim, err := mesh.ResolvePrimitive(im.doc, ref.mesh, ref.prim, im.cache.BufferLookup())
	if err != nil {
		return err
	}
	built, err := im.meshes.Build(prim)
	if errors.Is(err, mesh.ErrUnsupportedMode) {
		im.logger.Warn("skipping primitive", "mesh", ref.mesh, "primitive", ref.prim, "error", err)
		return nil
	}
	if err != nil {
		return err
	}

	if !im.cache.MaterialHandles.Has(prim.Material) {
		if prim.Material >= 0 {
			im.logger.Warn("primitive material unavailable, using default", "mesh", prim.Name, "material", prim.Material)
		}
		if err := im.defaultMaterial(); err != nil {
			return err
		}
	}

	for _, m := range built {
		m.Name = im.uniqueMeshName(m.Name)
		if m.IsSkinned() {
			// saved once its skin has written the bind poses
			continue
		}
		if err := im.saveMesh(m); err != nil {
			return err
		}
	}
	parts[ref.prim] = built
	return nil
}

func (im *importer) saveMesh(m *mesh.Mesh) error {
	h, err := im.store.SaveMesh(m.Name, m)
	if err != nil {
		return fmt.Errorf("failed to save mesh %q: %w", m.Name, err)
	}
	im.cache.MeshHandles[m] = h
	return nil
}

// saveSkinnedMeshes persists the meshes held back until the skins were bound, followed by the parts
// the binder cloned for a second skin.
func (im *importer) saveSkinnedMeshes() error {
	var pending []*mesh.Mesh
	known := make(map[*mesh.Mesh]struct{})
	im.cache.Meshes.Each(func(_ int, prims [][]*mesh.Mesh) {
		for _, parts := range prims {
			for _, m := range parts {
				known[m] = struct{}{}
				if _, saved := im.cache.MeshHandles[m]; !saved {
					pending = append(pending, m)
				}
			}
		}
	})
	scene.Walk(im.walker.Root(), func(n *scene.Node) {
		if n.Component == nil {
			return
		}
		for _, m := range n.Component.Parts {
			if _, ok := known[m]; ok {
				continue
			}
			known[m] = struct{}{}
			m.Name = im.uniqueMeshName(m.Name)
			im.clones = append(im.clones, m)
			pending = append(pending, m)
		}
	})

	for _, m := range pending {
		if err := im.saveMesh(m); err != nil {
			return err
		}
	}
	return nil
}

// uniqueMeshName suffixes repeated mesh names with _<n>.
func (im *importer) uniqueMeshName(name string) string {
	candidate := name
	for n := 1; ; n++ {
		if _, taken := im.meshNames[candidate]; !taken {
			im.meshNames[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", name, n)
	}
}

func (im *importer) convertAnimation(i int) error {
	_, err := im.converter.Convert(i)
	return err
}

func (im *importer) bindSkin(i int) error {
	skin, err := skeleton.Decode(im.doc, i, im.cache.BufferLookup())
	if err != nil {
		return err
	}
	im.cache.Skins.Set(i, skin)

	if !skinUsed(im.walker.Root(), i) {
		im.logger.Debug("skin not referenced by the scene", "skin", i)
		return nil
	}
	_, err = im.binder.Bind(skin, im.cache.Nodes, im.walker.Root())
	return err
}

// skinUsed reports whether any skinned component under root references the skin.
func skinUsed(root *scene.Node, skin int) bool {
	used := false
	scene.Walk(root, func(n *scene.Node) {
		if c := n.Component; c != nil && c.Kind == scene.ComponentSkinned && c.Skin == skin {
			used = true
		}
	})
	return used
}

func (im *importer) savePrefab(int) error {
	if err := im.saveSkinnedMeshes(); err != nil {
		return err
	}
	doc := im.prefabDocument()
	h, err := im.store.SavePrefab(common.Coalesce(im.destination, im.modelName), doc)
	if err != nil {
		return fmt.Errorf("failed to save prefab: %w", err)
	}
	im.prefab = h
	return nil
}
