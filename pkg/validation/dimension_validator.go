package validation

import (
	"fmt"

	apperrors "go-medical-analyzer/internal/errors"
)

// DimensionLimits bounds the pixel grid of an accepted image.
type DimensionLimits struct {
	MinWidth       int
	MinHeight      int
	MaxWidth       int
	MaxHeight      int
	MaxTotalPixels int
}

// DefaultDimensionLimits accepts anything up to a 16384px side and 100 megapixels.
func DefaultDimensionLimits() DimensionLimits {
	return DimensionLimits{
		MinWidth:       1,
		MinHeight:      1,
		MaxWidth:       16384,
		MaxHeight:      16384,
		MaxTotalPixels: 100_000_000,
	}
}

// DimensionValidator checks decoded (or header-declared) image sizes before
// pixel buffers are allocated.
type DimensionValidator struct {
	limits DimensionLimits
}

// NewDimensionValidator creates a validator with default limits
func NewDimensionValidator() *DimensionValidator {
	return NewDimensionValidatorWithLimits(DefaultDimensionLimits())
}

// NewDimensionValidatorWithLimits creates a validator with custom limits.
// Zero maxima disable the corresponding check; minima below 1 are raised to 1.
func NewDimensionValidatorWithLimits(limits DimensionLimits) *DimensionValidator {
	if limits.MinWidth < 1 {
		limits.MinWidth = 1
	}
	if limits.MinHeight < 1 {
		limits.MinHeight = 1
	}
	return &DimensionValidator{limits: limits}
}

// Limits returns the configured limits
func (dv *DimensionValidator) Limits() DimensionLimits {
	return dv.limits
}

// Validate returns a malformed-input error for an empty grid and a
// validation error for one outside the configured limits.
func (dv *DimensionValidator) Validate(width, height int) error {
	if width <= 0 || height <= 0 {
		return apperrors.NewMalformedInputError("image has no pixels", nil)
	}

	l := dv.limits
	switch {
	case width < l.MinWidth || height < l.MinHeight:
		return apperrors.NewValidationError(
			fmt.Sprintf("image is too small: %dx%d (minimum %dx%d)", width, height, l.MinWidth, l.MinHeight), nil)
	case l.MaxWidth > 0 && width > l.MaxWidth:
		return apperrors.NewValidationError(
			fmt.Sprintf("image is too wide: %d pixels (maximum %d)", width, l.MaxWidth), nil)
	case l.MaxHeight > 0 && height > l.MaxHeight:
		return apperrors.NewValidationError(
			fmt.Sprintf("image is too tall: %d pixels (maximum %d)", height, l.MaxHeight), nil)
	case l.MaxTotalPixels > 0 && int64(width)*int64(height) > int64(l.MaxTotalPixels):
		return apperrors.NewValidationError(
			fmt.Sprintf("image has too many pixels: %dx%d (maximum %d)", width, height, l.MaxTotalPixels), nil)
	}
	return nil
}
