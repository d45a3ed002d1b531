package vision

import (
	"image/color"
	"testing"
	"time"

	"idgate.io/infrastructure/vision/types"
)

func testAuthenticator() *DocumentAuthenticator {
	auth := NewDocumentAuthenticator(50.0, 0.7)
	auth.now = func() time.Time {
		return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	}
	return auth
}

func TestCheckAuthenticityUniformNoiseIsNotTampered(t *testing.T) {
	// uniform pixels leave identical (zero) blur residuals in every grid
	// cell, the most consistent noise profile possible
	img := solidMat(640, 480, color.RGBA{R: 150, G: 150, B: 150})
	defer img.Close()

	result := testAuthenticator().CheckAuthenticity(img, nil)

	if result.Checks.Tampering.IsTampered {
		t.Errorf("uniform image flagged tampered (uniformity %f)", result.Checks.Tampering.Uniformity)
	}
	if !result.IsAuthentic {
		t.Errorf("expected authentic, score %f", result.AuthenticityScore)
	}
	if result.ChecksPassed != "1/1" {
		t.Errorf("checks_passed = %s, want 1/1", result.ChecksPassed)
	}
	if result.AuthenticityScore != 100 {
		t.Errorf("score = %f, want 100", result.AuthenticityScore)
	}
}

func TestCheckAuthenticityOptionalChecksOnlyRunWithFields(t *testing.T) {
	img := solidMat(640, 480, color.RGBA{R: 150, G: 150, B: 150})
	defer img.Close()

	result := testAuthenticator().CheckAuthenticity(img, nil)
	if result.Checks.DataConsistency != nil || result.Checks.ExpiryValidation != nil {
		t.Error("date checks must not run without structured fields")
	}

	result = testAuthenticator().CheckAuthenticity(img, &types.DocumentFields{
		BirthDate:  "19900115",
		ExpiryDate: "20300115",
	})
	if result.Checks.DataConsistency == nil || result.Checks.ExpiryValidation == nil {
		t.Fatal("date checks must run when fields are supplied")
	}
	if result.ChecksPassed != "3/3" {
		t.Errorf("checks_passed = %s, want 3/3", result.ChecksPassed)
	}
	if result.AuthenticityScore != 100 {
		t.Errorf("score = %f, want 100", result.AuthenticityScore)
	}
}

func TestCheckDataConsistency(t *testing.T) {
	auth := testAuthenticator()
	tests := []struct {
		name      string
		birthDate string
		wantPass  bool
		wantIssue string
	}{
		{"plausible adult", "19900115", true, ""},
		{"date in future", "20270101", false, "Date of birth is in future"},
		{"under sixteen", "20150101", false, "Person under 16"},
		{"over one twenty", "19000101", false, "Person over 120"},
		{"garbage date", "notadate", false, "Invalid DOB format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := auth.checkDataConsistency(&types.DocumentFields{BirthDate: tt.birthDate})
			if check.Passed != tt.wantPass {
				t.Errorf("passed = %v, want %v (issues %v)", check.Passed, tt.wantPass, check.Issues)
			}
			if tt.wantIssue != "" {
				if len(check.Issues) != 1 || check.Issues[0] != tt.wantIssue {
					t.Errorf("issues = %v, want [%s]", check.Issues, tt.wantIssue)
				}
			}
		})
	}
}

func TestValidateExpiryDate(t *testing.T) {
	// fixed current date: 2026-03-01
	auth := testAuthenticator()
	tests := []struct {
		name       string
		expiry     string
		wantStatus string
		wantValid  bool
	}{
		{"valid for years", "20300115", "valid", true},
		{"valid alternate layout", "2030-01-15", "valid", true},
		{"expiring inside thirty days", "20260320", "expiring_soon", true},
		{"expired", "20250101", "expired", false},
		{"unparseable", "31-31-31x", "invalid_format", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := auth.validateExpiryDate(tt.expiry)
			if check.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", check.Status, tt.wantStatus)
			}
			if check.IsValid != tt.wantValid || check.Passed != tt.wantValid {
				t.Errorf("valid/passed = %v/%v, want %v", check.IsValid, check.Passed, tt.wantValid)
			}
		})
	}
}

func TestCheckAuthenticityScoreAveragesExecutedChecks(t *testing.T) {
	img := solidMat(640, 480, color.RGBA{R: 150, G: 150, B: 150})
	defer img.Close()

	// tamper passes, expiry fails: 1 of 2
	result := testAuthenticator().CheckAuthenticity(img, &types.DocumentFields{ExpiryDate: "20200101"})
	if result.ChecksPassed != "1/2" {
		t.Errorf("checks_passed = %s, want 1/2", result.ChecksPassed)
	}
	if result.AuthenticityScore != 50 {
		t.Errorf("score = %f, want 50", result.AuthenticityScore)
	}
	if !result.IsAuthentic {
		t.Error("score 50 meets the default minimum of 50")
	}
}

func TestParseDocumentDateLayouts(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"19900115", "1990-01-15"},
		{"15011990", "1990-01-15"},
		{"1990-01-15", "1990-01-15"},
	}
	for _, tt := range tests {
		parsed, err := parseDocumentDate(tt.in)
		if err != nil {
			t.Errorf("parseDocumentDate(%s): %v", tt.in, err)
			continue
		}
		if got := parsed.Format("2006-01-02"); got != tt.want {
			t.Errorf("parseDocumentDate(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
	if _, err := parseDocumentDate("not a date"); err == nil {
		t.Error("expected an error for unparseable input")
	}
}
