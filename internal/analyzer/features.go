package analyzer

import (
	"fmt"
	"image"
	"sync"

	"gonum.org/v1/gonum/stat"

	"go-medical-analyzer/pkg/models"
)

// contrastEpsilon keeps the contrast ratio finite for all-black images.
const contrastEpsilon = 1e-6

// featureExtractor computes mean, standard deviation and contrast over every
// channel value of an image. Rows are split into horizontal strips that are
// read on a shared worker pool; each strip writes to a fixed offset so the
// sample order, and therefore the result, never depends on scheduling.
type featureExtractor struct {
	samplePool sync.Pool
	pool       *WorkerPool
}

// NewFeatureExtractor creates a feature extractor with one worker per CPU.
func NewFeatureExtractor() FeatureExtractor {
	return NewFeatureExtractorWithPool(NewWorkerPool(0))
}

// NewFeatureExtractorWithPool creates a feature extractor that reads strips
// on pool. The pool is started on first use and owned by the caller.
func NewFeatureExtractorWithPool(pool *WorkerPool) FeatureExtractor {
	return &featureExtractor{
		samplePool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0, 224*224*3)
			},
		},
		pool: pool,
	}
}

func (fe *featureExtractor) Extract(req *models.AnalysisRequest) (models.FeatureVector, error) {
	if req == nil || req.Image == nil {
		return models.FeatureVector{}, fmt.Errorf("extract features: no image")
	}
	img := req.Image
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return models.FeatureVector{}, fmt.Errorf("extract features: empty image %dx%d", width, height)
	}

	channels := req.Channels
	if channels != 1 {
		channels = 3
	}
	total := width * height * channels

	samples := fe.samplePool.Get().([]float64)
	if cap(samples) < total {
		samples = make([]float64, total)
	}
	samples = samples[:total]
	defer fe.samplePool.Put(samples[:0])

	numStrips := min(fe.pool.Workers(), height)
	rowsPerStrip := (height + numStrips - 1) / numStrips

	strips := make([]func(), 0, numStrips)
	for startRow := 0; startRow < height; startRow += rowsPerStrip {
		startRow := startRow
		endRow := min(startRow+rowsPerStrip, height)
		strips = append(strips, func() {
			offset := startRow * width * channels
			for y := bounds.Min.Y + startRow; y < bounds.Min.Y+endRow; y++ {
				offset = readRow(img, y, bounds, channels, samples, offset)
			}
		})
	}
	if err := fe.pool.Run(strips...); err != nil {
		return models.FeatureVector{}, fmt.Errorf("extract features: %w", err)
	}

	mean, std := stat.PopMeanStdDev(samples, nil)
	return models.FeatureVector{
		Mean:     mean,
		Std:      std,
		Contrast: std / (mean + contrastEpsilon),
		Width:    width,
		Height:   height,
	}, nil
}

// readRow writes one row of 0-255 channel values starting at offset and
// returns the next offset.
func readRow(img image.Image, y int, bounds image.Rectangle, channels int, dst []float64, offset int) int {
	switch src := img.(type) {
	case *image.Gray:
		if channels == 1 {
			row := src.Pix[src.PixOffset(bounds.Min.X, y):]
			for x := 0; x < bounds.Dx(); x++ {
				dst[offset] = float64(row[x])
				offset++
			}
			return offset
		}
	case *image.NRGBA:
		row := src.Pix[src.PixOffset(bounds.Min.X, y):]
		for x := 0; x < bounds.Dx(); x++ {
			p := row[x*4 : x*4+3]
			if channels == 1 {
				dst[offset] = float64(p[0])
				offset++
				continue
			}
			dst[offset], dst[offset+1], dst[offset+2] = float64(p[0]), float64(p[1]), float64(p[2])
			offset += 3
		}
		return offset
	}

	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		r, g, b, _ := img.At(x, y).RGBA()
		if channels == 1 {
			dst[offset] = float64(r >> 8)
			offset++
			continue
		}
		dst[offset], dst[offset+1], dst[offset+2] = float64(r>>8), float64(g>>8), float64(b>>8)
		offset += 3
	}
	return offset
}
