package vision

import (
	"fmt"
	"image"
	"math"
	"time"

	"idgate.io/infrastructure/vision/types"
	"gocv.io/x/gocv"
)

// date layouts structured document fields arrive in
var documentDateLayouts = []string{"20060102", "02012006", "2006-01-02"}

// DocumentAuthenticator looks for signs of tampering in the document image
// and, when structured fields are available, cross-checks their
// plausibility.
type DocumentAuthenticator struct {
	minScore      float64
	uniformityMin float64
	now           func() time.Time
}

// NewDocumentAuthenticator creates an authenticator; documents scoring
// under minScore are reported as not authentic.
func NewDocumentAuthenticator(minScore float64, uniformityMin float64) *DocumentAuthenticator {
	return &DocumentAuthenticator{
		minScore:      minScore,
		uniformityMin: uniformityMin,
		now:           time.Now,
	}
}

// CheckAuthenticity runs the tamper grid and, when fields is non-nil, the
// date-of-birth and expiry checks. The score averages only the checks that
// actually executed; zero executed checks default to the neutral 50.
func (da *DocumentAuthenticator) CheckAuthenticity(img gocv.Mat, fields *types.DocumentFields) *types.AuthenticityResult {
	checks := types.AuthenticityChecks{
		Tampering: da.detectTampering(img),
	}

	passed := 0
	total := 1
	if checks.Tampering.Passed {
		passed++
	}

	if fields != nil {
		if fields.BirthDate != "" {
			consistency := da.checkDataConsistency(fields)
			checks.DataConsistency = &consistency
			total++
			if consistency.Passed {
				passed++
			}
		}
		if fields.ExpiryDate != "" {
			expiry := da.validateExpiryDate(fields.ExpiryDate)
			checks.ExpiryValidation = &expiry
			total++
			if expiry.Passed {
				passed++
			}
		}
	}

	score := 50.0
	if total > 0 {
		score = float64(passed) / float64(total) * 100
	}

	return &types.AuthenticityResult{
		IsAuthentic:       score >= da.minScore,
		AuthenticityScore: score,
		ChecksPassed:      fmt.Sprintf("%d/%d", passed, total),
		Checks:            checks,
	}
}

// detectTampering partitions the grayscale document into a 4x4 grid and
// estimates per-cell noise as the residual against a Gaussian blur.
// Tampered regions show inconsistent noise/compression across cells, which
// surfaces as low uniformity. Policy on internal fault: fail closed.
func (da *DocumentAuthenticator) detectTampering(img gocv.Mat) (check types.TamperCheck) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("tamper check fault: %v", r)
			check = types.TamperCheck{IsTampered: true, Passed: false, Error: &msg}
		}
	}()

	gray := Grayscale(img)
	defer gray.Close()

	const gridSize = 4
	cellHeight := gray.Rows() / gridSize
	cellWidth := gray.Cols() / gridSize
	if cellHeight == 0 || cellWidth == 0 {
		msg := "image too small for tamper grid"
		return types.TamperCheck{IsTampered: true, Passed: false, Error: &msg}
	}

	noiseLevels := make([]float64, 0, gridSize*gridSize)
	for i := 0; i < gridSize; i++ {
		for j := 0; j < gridSize; j++ {
			cellRect := image.Rect(j*cellWidth, i*cellHeight, (j+1)*cellWidth, (i+1)*cellHeight)
			cell := gray.Region(cellRect)

			blurred := gocv.NewMat()
			gocv.GaussianBlur(cell, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

			noise := gocv.NewMat()
			gocv.AbsDiff(cell, blurred, &noise)

			mean := MatMean(noise)
			noiseLevels = append(noiseLevels, math.Sqrt(MatVariance(noise, mean)))

			noise.Close()
			blurred.Close()
			cell.Close()
		}
	}

	mean, std := MeanStd(noiseLevels)
	uniformity := 1.0 - math.Min(std/(mean+1e-6), 1.0)
	isTampered := uniformity < da.uniformityMin

	return types.TamperCheck{
		IsTampered: isTampered,
		Uniformity: uniformity,
		Passed:     !isTampered,
	}
}

// checkDataConsistency validates date-of-birth plausibility: not in the
// future, at least 16 years old, at most 120.
func (da *DocumentAuthenticator) checkDataConsistency(fields *types.DocumentFields) types.ConsistencyCheck {
	issues := []string{}

	dob, err := parseDocumentDate(fields.BirthDate)
	if err != nil {
		issues = append(issues, "Invalid DOB format")
	} else {
		age := da.now().Sub(dob).Hours() / 24 / 365.25
		if age < 0 {
			issues = append(issues, "Date of birth is in future")
		} else if age < 16 {
			issues = append(issues, "Person under 16")
		} else if age > 120 {
			issues = append(issues, "Person over 120")
		}
	}

	consistent := len(issues) == 0
	return types.ConsistencyCheck{
		IsConsistent: consistent,
		Issues:       issues,
		Passed:       consistent,
	}
}

// validateExpiryDate classifies the document expiry as expired,
// expiring-soon or valid against the current date.
func (da *DocumentAuthenticator) validateExpiryDate(expiry string) types.ExpiryCheck {
	expiryDate, err := parseDocumentDate(expiry)
	if err != nil {
		return types.ExpiryCheck{IsValid: false, Status: "invalid_format", Passed: false}
	}

	today := da.now()
	daysUntilExpiry := int(expiryDate.Sub(today).Hours() / 24)

	var status string
	var isValid bool
	switch {
	case expiryDate.Before(today):
		status = "expired"
		isValid = false
	case daysUntilExpiry < 30:
		status = "expiring_soon"
		isValid = true
	default:
		status = "valid"
		isValid = true
	}

	return types.ExpiryCheck{
		IsValid:         isValid,
		Status:          status,
		DaysUntilExpiry: daysUntilExpiry,
		Passed:          isValid,
	}
}

func parseDocumentDate(value string) (time.Time, error) {
	for _, layout := range documentDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", value)
}
