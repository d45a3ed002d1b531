package dto

import (
	"encoding/base64"
	"strings"
	"testing"

	"idgate.io/infrastructure/validator"
)

func sampleBase64Image() string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("pixeldata", 20)))
}

func TestVerifyIdentityDTOValidation(t *testing.T) {
	valid := sampleBase64Image()

	tests := []struct {
		name    string
		payload VerifyIdentityDTO
		wantOK  bool
	}{
		{
			name:    "both images present",
			payload: VerifyIdentityDTO{DocumentImage: valid, SelfieImage: valid},
			wantOK:  true,
		},
		{
			name: "data URL prefix accepted",
			payload: VerifyIdentityDTO{
				DocumentImage: "data:image/png;base64," + valid,
				SelfieImage:   valid,
			},
			wantOK: true,
		},
		{
			name: "optional dates in supported layouts",
			payload: VerifyIdentityDTO{
				DocumentImage: valid,
				SelfieImage:   valid,
				BirthDate:     "19900115",
				ExpiryDate:    "2030-01-15",
			},
			wantOK: true,
		},
		{
			name:    "missing selfie",
			payload: VerifyIdentityDTO{DocumentImage: valid},
			wantOK:  false,
		},
		{
			name:    "not base64",
			payload: VerifyIdentityDTO{DocumentImage: strings.Repeat("???", 50), SelfieImage: valid},
			wantOK:  false,
		},
		{
			name:    "payload too short to be an image",
			payload: VerifyIdentityDTO{DocumentImage: "aGVsbG8=", SelfieImage: valid},
			wantOK:  false,
		},
		{
			name: "unsupported date layout",
			payload: VerifyIdentityDTO{
				DocumentImage: valid,
				SelfieImage:   valid,
				BirthDate:     "15 Jan 1990",
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validator.ValidatorInstance.ValidateStruct(tt.payload)
			if tt.wantOK && errs != nil {
				t.Errorf("expected valid payload, got %v", *errs)
			}
			if !tt.wantOK && errs == nil {
				t.Error("expected validation errors, got none")
			}
		})
	}
}

func TestExtractMRZDTOValidation(t *testing.T) {
	if errs := validator.ValidatorInstance.ValidateStruct(ExtractMRZDTO{DocumentImage: sampleBase64Image()}); errs != nil {
		t.Errorf("expected valid payload, got %v", *errs)
	}
	if errs := validator.ValidatorInstance.ValidateStruct(ExtractMRZDTO{}); errs == nil {
		t.Error("expected validation errors for missing image")
	}
}
