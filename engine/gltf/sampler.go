package gltf

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// SamplerStagingData converts the sampler a texture references into staging data.
// A texture without a sampler, or with an out-of-range one, gets the default linear/repeat sampler.
//
// Parameters:
//   - doc: the parsed document
//   - texture: the texture index
//
// Returns:
//   - common.SamplerStagingData: the converted sampler configuration
func SamplerStagingData(doc *Document, texture int) common.SamplerStagingData {
	if !common.InRange(texture, len(doc.Textures)) {
		return common.DefaultSamplerStagingData()
	}
	ref := doc.Textures[texture].Sampler
	if ref == nil || !common.InRange(*ref, len(doc.Samplers)) {
		return common.DefaultSamplerStagingData()
	}
	return doc.Samplers[*ref].StagingData()
}

// StagingData converts a glTF sampler into staging data. Unset fields keep the glTF defaults
// of linear filtering and repeat wrapping.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
//
// Returns:
//   - common.SamplerStagingData: the converted sampler configuration
func (s Sampler) StagingData() common.SamplerStagingData {
	result := common.DefaultSamplerStagingData()

	if s.MagFilter != nil {
		switch *s.MagFilter {
		case FilterNearest:
			result.MagFilter = wgpu.FilterModeNearest
		case FilterLinear:
			result.MagFilter = wgpu.FilterModeLinear
		}
	}

	if s.MinFilter != nil {
		switch *s.MinFilter {
		case FilterNearest, FilterNearestMipmapNearest, FilterNearestMipmapLinear:
			result.MinFilter = wgpu.FilterModeNearest
		case FilterLinear, FilterLinearMipmapNearest, FilterLinearMipmapLinear:
			result.MinFilter = wgpu.FilterModeLinear
		}
		switch *s.MinFilter {
		case FilterNearestMipmapNearest, FilterLinearMipmapNearest, FilterNearest, FilterLinear:
			result.MipmapFilter = wgpu.MipmapFilterModeNearest
		case FilterNearestMipmapLinear, FilterLinearMipmapLinear:
			result.MipmapFilter = wgpu.MipmapFilterModeLinear
		}
	}

	if s.WrapS != nil {
		result.AddressModeU = wrapToAddressMode(*s.WrapS)
	}
	if s.WrapT != nil {
		result.AddressModeV = wrapToAddressMode(*s.WrapT)
	}
	return result
}

func wrapToAddressMode(wrap int) wgpu.AddressMode {
	switch wrap {
	case WrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case WrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
