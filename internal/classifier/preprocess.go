package classifier

import (
	"image"

	"golang.org/x/image/draw"
)

// InputSize is the square edge both ensemble networks expect.
const InputSize = 224

// ImageNet channel statistics used by the DenseNet preprocessing mode.
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Tensor is a single HxWxC image in network input layout.
type Tensor [][][3]float32

// Preprocess resizes img to InputSize x InputSize RGB with bilinear
// sampling and normalizes each channel with ImageNet statistics.
// Grayscale inputs are replicated across the three channels.
func Preprocess(img image.Image) Tensor {
	dst := image.NewNRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	out := make(Tensor, InputSize)
	for y := 0; y < InputSize; y++ {
		row := make([][3]float32, InputSize)
		pix := dst.Pix[y*dst.Stride:]
		for x := 0; x < InputSize; x++ {
			p := pix[x*4 : x*4+3]
			for c := 0; c < 3; c++ {
				row[x][c] = (float32(p[c])/255 - imagenetMean[c]) / imagenetStd[c]
			}
		}
		out[y] = row
	}
	return out
}
