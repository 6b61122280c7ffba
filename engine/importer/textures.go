package importer

import (
	"errors"
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/cache"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
)

// errImageUnavailable marks textures whose image was skipped or never declared.
var errImageUnavailable = errors.New("texture image unavailable")

// textureSource registers textures and split metallic-roughness images on demand, once per index.
type textureSource struct {
	im *importer
}

var _ material.TextureSource = &textureSource{}

func (im *importer) textures() *textureSource {
	return &textureSource{im: im}
}

func (s *textureSource) Texture(index int) (store.Handle, error) {
	c := s.im.cache
	if h, ok := c.Textures.Get(index); ok {
		return h, nil
	}

	imageIndex, img, err := s.image(index)
	if err != nil {
		return store.Handle{}, err
	}
	name := common.Coalesce(common.CleanName(s.im.doc.Textures[index].Name), img.Name, fmt.Sprintf("texture_%d", imageIndex))
	h, err := s.im.store.RegisterTexture(index, name, img, gltf.SamplerStagingData(s.im.doc, index))
	if err != nil {
		return store.Handle{}, fmt.Errorf("failed to register texture %d: %w", index, err)
	}
	c.Textures.Set(index, h)
	return h, nil
}

func (s *textureSource) Split(index int, withOcclusion bool) (store.Handle, store.Handle, error) {
	c := s.im.cache
	if sp, ok := c.Splits.Get(index); ok && (!withOcclusion || !sp.Occlusion.IsZero()) {
		return sp.Metal, sp.Occlusion, nil
	}

	imageIndex, img, err := s.image(index)
	if err != nil {
		return store.Handle{}, store.Handle{}, err
	}
	data, err := s.im.source.Image(s.im.doc, imageIndex, c.BufferLookup())
	if err != nil {
		return store.Handle{}, store.Handle{}, fmt.Errorf("texture %d: %w: %w", index, errImageUnavailable, err)
	}
	decoded, err := common.DecodeImage(data.Data)
	if err != nil {
		return store.Handle{}, store.Handle{}, fmt.Errorf("texture %d: failed to decode image: %w", index, err)
	}

	metal, occlusion := material.SplitMetallicRoughness(decoded, withOcclusion)
	sampler := gltf.SamplerStagingData(s.im.doc, index)

	base := s.splitName(index, img.Name)
	var sp cache.Split
	if sp.Metal, err = s.register(base+material.MetalSuffix, metal, sampler); err != nil {
		return store.Handle{}, store.Handle{}, err
	}
	if occlusion != nil {
		if sp.Occlusion, err = s.register(base+material.OcclusionSuffix, occlusion, sampler); err != nil {
			return store.Handle{}, store.Handle{}, err
		}
	}
	c.Splits.Set(index, sp)
	return sp.Metal, sp.Occlusion, nil
}

// splitName returns the base name of a texture's split outputs: the image name, suffixed with _<n> when
// another texture already claimed it.
func (s *textureSource) splitName(index int, imageName string) string {
	im := s.im
	if name, ok := im.splitNames[index]; ok {
		return name
	}
	name := imageName
	for n := 1; ; n++ {
		if _, taken := im.splitTaken[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d", imageName, n)
	}
	im.splitTaken[name] = struct{}{}
	im.splitNames[index] = name
	return name
}

// image returns the registered image of a texture.
func (s *textureSource) image(index int) (int, store.Handle, error) {
	doc := s.im.doc
	if !common.InRange(index, len(doc.Textures)) {
		return -1, store.Handle{}, fmt.Errorf("texture %d out of range: %w", index, errImageUnavailable)
	}
	src := doc.Textures[index].Source
	if src == nil {
		return -1, store.Handle{}, fmt.Errorf("texture %d has no source: %w", index, errImageUnavailable)
	}
	h, ok := s.im.cache.Images.Get(*src)
	if !ok {
		return *src, store.Handle{}, fmt.Errorf("texture %d image %d: %w", index, *src, errImageUnavailable)
	}
	return *src, h, nil
}

// register stores a generated image and its texture descriptor, keyed by name.
func (s *textureSource) register(name string, img image.Image, sampler common.SamplerStagingData) (store.Handle, error) {
	data, err := common.EncodePNG(img)
	if err != nil {
		return store.Handle{}, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	imgHandle, err := s.im.store.RegisterImage(-1, name, data)
	if err != nil {
		return store.Handle{}, fmt.Errorf("failed to register image %s: %w", name, err)
	}
	h, err := s.im.store.RegisterTexture(-1, name, imgHandle, sampler)
	if err != nil {
		return store.Handle{}, fmt.Errorf("failed to register texture %s: %w", name, err)
	}
	return h, nil
}
