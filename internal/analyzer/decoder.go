package analyzer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"
	"time"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	apperrors "go-medical-analyzer/internal/errors"
	"go-medical-analyzer/pkg/models"
	"go-medical-analyzer/pkg/validation"
)

const (
	mediaPNG   = "image/png"
	mediaJPEG  = "image/jpeg"
	mediaDICOM = "application/dicom"
)

// NormalizeExtension lowercases an extension and strips a leading dot.
func NormalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// MediaTypeFor maps a supported extension to its media type.
func MediaTypeFor(ext string) (string, bool) {
	switch NormalizeExtension(ext) {
	case "png":
		return mediaPNG, true
	case "jpg", "jpeg":
		return mediaJPEG, true
	case "dicom", "dcm":
		return mediaDICOM, true
	}
	return "", false
}

type imageDecoder struct {
	dims *validation.DimensionValidator
}

// NewDecoder creates a decoder for PNG, JPEG and DICOM uploads.
func NewDecoder() Decoder {
	return NewDecoderWithLimits(validation.DefaultDimensionLimits())
}

// NewDecoderWithLimits creates a decoder that rejects images outside limits.
func NewDecoderWithLimits(limits validation.DimensionLimits) Decoder {
	return &imageDecoder{dims: validation.NewDimensionValidatorWithLimits(limits)}
}

// Decode rejects empty or undecodable input with a malformed-input error.
func (d *imageDecoder) Decode(data []byte, ext string) (*models.AnalysisRequest, error) {
	if len(data) == 0 {
		return nil, apperrors.NewMalformedInputError("image is empty", nil)
	}
	mediaType, ok := MediaTypeFor(ext)
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported file extension %q", ext), nil)
	}

	var (
		img         image.Image
		remote      = data
		remoteMedia = mediaType
		err         error
	)
	switch mediaType {
	case mediaDICOM:
		img, err = decodeDICOM(data, d.dims)
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			return nil, err
		}
		if err == nil {
			remote, err = encodePNG(img)
			remoteMedia = mediaPNG
		}
	default:
		// Check the declared size before allocating the pixel buffer.
		cfg, _, cfgErr := image.DecodeConfig(bytes.NewReader(data))
		if cfgErr != nil {
			return nil, apperrors.NewMalformedInputError("image could not be decoded", cfgErr)
		}
		if err := d.dims.Validate(cfg.Width, cfg.Height); err != nil {
			return nil, err
		}
		var format string
		img, format, err = image.Decode(bytes.NewReader(data))
		if err == nil && format == "png" {
			remoteMedia = mediaPNG
		} else if err == nil {
			remoteMedia = mediaJPEG
		}
	}
	if err != nil {
		return nil, apperrors.NewMalformedInputError("image could not be decoded", err)
	}

	bounds := img.Bounds()
	if err := d.dims.Validate(bounds.Dx(), bounds.Dy()); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	return &models.AnalysisRequest{
		Image:       img,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Channels:    channelDepth(img),
		Extension:   NormalizeExtension(ext),
		MediaType:   mediaType,
		Digest:      hex.EncodeToString(sum[:]),
		Raw:         data,
		RemoteBytes: remote,
		RemoteMedia: remoteMedia,
		ReceivedAt:  time.Now().UTC(),
	}, nil
}

func channelDepth(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	}
	return 3
}

// decodeDICOM returns the first frame of the PixelData element. 16-bit
// grayscale frames are windowed to 8 bits using their own min and max. The
// Rows and Columns tags are checked against dims before the frame is
// converted to an image.
func decodeDICOM(data []byte, dims *validation.DimensionValidator) (image.Image, error) {
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		return nil, fmt.Errorf("parse dicom: %w", err)
	}
	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("dicom has no pixel data: %w", err)
	}
	if el.Value.ValueType() != dicom.PixelData {
		return nil, fmt.Errorf("dicom pixel data element has unexpected value type")
	}
	info := dicom.MustGetPixelDataInfo(el.Value)
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("dicom pixel data has no frames")
	}
	if err := checkDICOMDimensions(&ds, dims); err != nil {
		return nil, err
	}
	img, err := info.Frames[0].GetImage()
	if err != nil {
		return nil, fmt.Errorf("dicom frame to image: %w", err)
	}
	if g16, ok := img.(*image.Gray16); ok {
		return windowGray16(g16), nil
	}
	return img, nil
}

func checkDICOMDimensions(ds *dicom.Dataset, dims *validation.DimensionValidator) error {
	rows, err := dicomInt(ds, tag.Rows)
	if err != nil {
		return err
	}
	cols, err := dicomInt(ds, tag.Columns)
	if err != nil {
		return err
	}
	return dims.Validate(cols, rows)
}

func dicomInt(ds *dicom.Dataset, t tag.Tag) (int, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, fmt.Errorf("dicom tag %s: %w", t, err)
	}
	if el.Value.ValueType() != dicom.Ints {
		return 0, fmt.Errorf("dicom tag %s is not an integer", t)
	}
	v := el.Value.GetValue().([]int)
	if len(v) == 0 {
		return 0, fmt.Errorf("dicom tag %s is empty", t)
	}
	return v[0], nil
}

func windowGray16(src *image.Gray16) *image.Gray {
	b := src.Bounds()
	lo, hi := uint16(0xffff), uint16(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := src.Gray16At(x, y).Y
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	dst := image.NewGray(b)
	span := float64(hi) - float64(lo)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if span == 0 {
				continue
			}
			v := (float64(src.Gray16At(x, y).Y) - float64(lo)) / span * 255
			dst.Pix[dst.PixOffset(x, y)] = uint8(v + 0.5)
		}
	}
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
