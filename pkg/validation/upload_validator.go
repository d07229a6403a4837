package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	apperrors "go-medical-analyzer/internal/errors"
)

// DefaultExtensions are the upload formats the decoder understands
var DefaultExtensions = []string{"png", "jpg", "jpeg", "dicom", "dcm"}

// UploadValidator handles upload validation logic
type UploadValidator struct {
	allowedExtensions []string
	maxSize           int64
}

// NewUploadValidator creates a new upload validator with default settings
func NewUploadValidator(maxSize int64) *UploadValidator {
	return NewUploadValidatorWithOptions(DefaultExtensions, maxSize)
}

// NewUploadValidatorWithOptions creates an upload validator with custom options.
// A non-positive maxSize disables the size check.
func NewUploadValidatorWithOptions(extensions []string, maxSize int64) *UploadValidator {
	return &UploadValidator{
		allowedExtensions: extensions,
		maxSize:           maxSize,
	}
}

// ExtensionOf returns the normalized extension of a filename
func ExtensionOf(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSpace(filename))), ".")
}

// ValidateFilename checks that the file has an allowed extension and
// returns that extension
func (v *UploadValidator) ValidateFilename(filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", apperrors.NewValidationError("No file selected", nil)
	}
	ext := ExtensionOf(filename)
	if err := v.ValidateExtension(ext); err != nil {
		return "", err
	}
	return ext, nil
}

// ValidateExtension checks an extension with or without a leading dot
func (v *UploadValidator) ValidateExtension(ext string) error {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		return apperrors.NewValidationError("File type not allowed", nil).
			WithDetails("file has no extension")
	}
	if !v.isExtensionAllowed(ext) {
		return apperrors.NewValidationError("File type not allowed", nil).
			WithDetails(fmt.Sprintf("allowed: %s", strings.Join(v.allowedExtensions, ", ")))
	}
	return nil
}

// ValidateSize checks the upload against the configured limit. Empty
// uploads pass; the decoder reports them as malformed.
func (v *UploadValidator) ValidateSize(size int64) error {
	if v.maxSize > 0 && size > v.maxSize {
		return apperrors.NewValidationError("File too large", nil).
			WithDetails(fmt.Sprintf("limit is %d bytes", v.maxSize))
	}
	return nil
}

// isExtensionAllowed checks if the extension is in the allowed list
func (v *UploadValidator) isExtensionAllowed(ext string) bool {
	for _, allowed := range v.allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
