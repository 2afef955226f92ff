package shader

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ImageSampler backs a Sampler (see frontend.go's Sampler func type) with a
// real image.Image per texture unit, resampled to a sampler's declared
// backing size via golang.org/x/image/draw the way a driver replay or test
// fixture's source image rarely matches the sampler's declared dimensions
// exactly. This is the concrete MemoryController-adjacent collaborator the
// bare Sampler func abstracts away from the emulator kernel (spec §1: the
// real texture-fetch backend is an external collaborator).
type ImageSampler struct {
	bound map[int]*boundTexture
}

type boundTexture struct {
	img  *image.RGBA
	w, h int
}

// NewImageSampler returns an ImageSampler with no samplers bound.
func NewImageSampler() *ImageSampler {
	return &ImageSampler{bound: make(map[int]*boundTexture)}
}

// Bind resamples src to (w,h) using scaler (draw.NearestNeighbor or
// draw.BiLinear, typically) and associates the result with sampler index
// idx, the slot TEX/TXB/TXP/TXL/LDA address via their SAMP operand.
func (s *ImageSampler) Bind(idx int, src image.Image, w, h int, scaler draw.Scaler) {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	s.bound[idx] = &boundTexture{img: dst, w: w, h: h}
}

// Sample implements the Sampler func type: a nearest-texel fetch at
// normalized coordinates in [0,1]. Bilinear/anisotropic filtering is real
// texture-unit hardware and stays out of scope (spec §1); this only resolves
// the coordinate-to-texel addressing the emulator's TEX family needs to
// produce a deterministic per-sample color for the texture queue to deliver.
func (s *ImageSampler) Sample(sampler int, coords [4]float32) [4]float32 {
	tex, ok := s.bound[sampler]
	if !ok {
		return [4]float32{}
	}
	x := int(coords[0] * float32(tex.w))
	y := int(coords[1] * float32(tex.h))
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x >= tex.w {
		x = tex.w - 1
	}
	if y >= tex.h {
		y = tex.h - 1
	}
	c := color.NRGBAModel.Convert(tex.img.At(x, y)).(color.NRGBA)
	return [4]float32{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
	}
}

// AsSampler adapts s to the Sampler func type NewFrontEnd expects.
func (s *ImageSampler) AsSampler() Sampler { return s.Sample }
