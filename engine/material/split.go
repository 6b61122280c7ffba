package material

import (
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/parallel"
)

// Name suffixes of the images produced by SplitMetallicRoughness.
const (
	MetalSuffix     = "_metal"
	OcclusionSuffix = "_occlusion"
)

// SplitMetallicRoughness separates a packed glTF occlusion/roughness/metallic texture into the layout
// standard shaders sample: metal = (B, B, B, 1-G) with smoothness in alpha, occlusion = (R, R, R, 1).
// The occlusion image is nil when withOcclusion is false.
//
// Parameters:
//   - src: the packed metallic-roughness image
//   - withOcclusion: whether to produce the occlusion image
//
// Returns:
//   - *image.NRGBA: the metal/smoothness image
//   - *image.NRGBA: the occlusion image, or nil
func SplitMetallicRoughness(src image.Image, withOcclusion bool) (*image.NRGBA, *image.NRGBA) {
	in := clone.AsShallowRGBA(src)
	bounds := in.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	metal := image.NewNRGBA(image.Rect(0, 0, w, h))
	var occlusion *image.NRGBA
	if withOcclusion {
		occlusion = image.NewNRGBA(image.Rect(0, 0, w, h))
	}

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				si := in.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				r, g, b := in.Pix[si], in.Pix[si+1], in.Pix[si+2]

				di := metal.PixOffset(x, y)
				metal.Pix[di] = b
				metal.Pix[di+1] = b
				metal.Pix[di+2] = b
				metal.Pix[di+3] = 255 - g

				if occlusion != nil {
					occlusion.Pix[di] = r
					occlusion.Pix[di+1] = r
					occlusion.Pix[di+2] = r
					occlusion.Pix[di+3] = 255
				}
			}
		}
	})
	return metal, occlusion
}
