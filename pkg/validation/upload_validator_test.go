package validation

import (
	"testing"

	apperrors "go-medical-analyzer/internal/errors"
)

func TestNewUploadValidator(t *testing.T) {
	validator := NewUploadValidator(1024)
	if validator == nil {
		t.Fatal("Expected non-nil upload validator")
	}
	if len(validator.allowedExtensions) != len(DefaultExtensions) {
		t.Errorf("Expected %d extensions, got %d", len(DefaultExtensions), len(validator.allowedExtensions))
	}
}

func TestValidateFilename_Valid(t *testing.T) {
	validator := NewUploadValidator(0)

	tests := []struct {
		filename string
		expected string
	}{
		{"chest.png", "png"},
		{"CHEST.JPG", "jpg"},
		{"scan.final.jpeg", "jpeg"},
		{"ct.dcm", "dcm"},
		{"mri.dicom", "dicom"},
	}

	for _, tt := range tests {
		ext, err := validator.ValidateFilename(tt.filename)
		if err != nil {
			t.Errorf("Expected %s to pass validation, got error: %v", tt.filename, err)
			continue
		}
		if ext != tt.expected {
			t.Errorf("Expected extension %s for %s, got %s", tt.expected, tt.filename, ext)
		}
	}
}

func TestValidateFilename_Invalid(t *testing.T) {
	validator := NewUploadValidator(0)

	for _, filename := range []string{"", "   ", "notes.txt", "image.gif", "noextension", "archive.png.zip"} {
		_, err := validator.ValidateFilename(filename)
		if err == nil {
			t.Errorf("Expected %q to fail validation", filename)
			continue
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			t.Errorf("Expected validation error for %q, got %v", filename, err)
		}
	}
}

func TestValidateExtension_CustomList(t *testing.T) {
	validator := NewUploadValidatorWithOptions([]string{"png"}, 0)

	if err := validator.ValidateExtension(".PNG"); err != nil {
		t.Errorf("Expected .PNG to be allowed: %v", err)
	}
	if err := validator.ValidateExtension("jpg"); err == nil {
		t.Error("Expected jpg to be rejected")
	}
}

func TestValidateSize(t *testing.T) {
	validator := NewUploadValidator(100)

	tests := []struct {
		size    int64
		wantErr bool
	}{
		{0, false},
		{100, false},
		{101, true},
	}
	for _, tt := range tests {
		err := validator.ValidateSize(tt.size)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSize(%d) error = %v, wantErr %v", tt.size, err, tt.wantErr)
		}
	}

	if err := NewUploadValidator(0).ValidateSize(1 << 40); err != nil {
		t.Errorf("Expected no limit when maxSize is 0, got %v", err)
	}
}
