package vision

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"testing"

	"gocv.io/x/gocv"
)

func testLivenessConfig() LivenessConfig {
	return LivenessConfig{
		BlurThreshold:        80.0,
		ReflectionMinPercent: 20.0,
		MicroTextureMin:      0.15,
		PrintAttackEnergyMax: 8e9,
		DepthCueMin:          0.3,
		FaceSizeMin:          80,
		FaceSizeMax:          800,
		ScoreThreshold:       0.65,
		HighBand:             0.80,
	}
}

func TestLivenessNoDetectableFaceIsHardFailure(t *testing.T) {
	// flat image with a detector that has no cascade loaded
	evaluator := NewLivenessEvaluator(testLivenessConfig(), NewFaceDetector("missing.xml"))

	img := solidMat(640, 480, color.RGBA{R: 120, G: 120, B: 120})
	defer img.Close()

	result := evaluator.Check(img, nil)

	if result.IsLive {
		t.Error("liveness cannot hold without a detectable face")
	}
	if result.LivenessScore != 0 {
		t.Errorf("liveness_score = %f, want 0", result.LivenessScore)
	}
	if result.ChecksPassed != "0/6" {
		t.Errorf("checks_passed = %s, want 0/6", result.ChecksPassed)
	}
	if result.Confidence != "low" {
		t.Errorf("confidence = %s, want low", result.Confidence)
	}
	if result.Error == nil {
		t.Error("hard failure must carry the error text")
	}
}

func TestLivenessScoreIsExactPassRatio(t *testing.T) {
	evaluator := NewLivenessEvaluator(testLivenessConfig(), NewFaceDetector("missing.xml"))

	// a flat gray selfie with an explicitly supplied face region: no blur
	// variance, no reflections, no texture, no gradients
	img := solidMat(640, 480, color.RGBA{R: 120, G: 120, B: 120})
	defer img.Close()

	region := image.Rect(200, 100, 400, 340)
	result := evaluator.Check(img, &region)

	parts := strings.Split(result.ChecksPassed, "/")
	if len(parts) != 2 || parts[1] != "6" {
		t.Fatalf("checks_passed = %q, want k/6", result.ChecksPassed)
	}
	passed, err := strconv.Atoi(parts[0])
	if err != nil {
		t.Fatalf("unparseable checks_passed %q", result.ChecksPassed)
	}
	want := float64(passed) / 6.0
	if diff := result.LivenessScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("liveness_score = %f, want %d/6 = %f", result.LivenessScore, passed, want)
	}

	if result.Checks.Blur.Passed {
		t.Error("a perfectly flat image has zero Laplacian variance and must fail blur")
	}
	if result.Checks.Reflection.Passed {
		t.Error("no near-white pixels means the reflection check must fail")
	}
	if result.Checks.MicroTexture.Passed {
		t.Error("a uniform face crop has zero texture entropy and must fail")
	}
	if result.Checks.DepthCues.Passed {
		t.Error("zero gradient variance must fail the depth-cue check")
	}
	if !result.Checks.FaceProportions.Passed {
		t.Error("a 200x240 face is inside the 80..800 size band")
	}
	if result.IsLive {
		t.Error("a flat image must not pass liveness")
	}
}

func TestLivenessConfidenceBands(t *testing.T) {
	evaluator := NewLivenessEvaluator(testLivenessConfig(), nil)
	tests := []struct {
		score float64
		want  string
	}{
		{1.0, "high"},
		{0.83, "high"},
		{0.66, "medium"},
		{0.65, "medium"},
		{0.5, "low"},
		{0.0, "low"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("score %.2f", tt.score), func(t *testing.T) {
			if got := evaluator.confidenceBand(tt.score); got != tt.want {
				t.Errorf("confidenceBand(%f) = %s, want %s", tt.score, got, tt.want)
			}
		})
	}
}

func TestCheckFaceProportionsBounds(t *testing.T) {
	evaluator := NewLivenessEvaluator(testLivenessConfig(), nil)
	tests := []struct {
		name string
		face image.Rectangle
		want bool
	}{
		{"inside band", image.Rect(0, 0, 200, 240), true},
		{"too small", image.Rect(0, 0, 40, 40), false},
		{"too large", image.Rect(0, 0, 900, 900), false},
		{"width ok height too small", image.Rect(0, 0, 200, 40), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evaluator.checkFaceProportions(tt.face); got.Passed != tt.want {
				t.Errorf("passed = %v, want %v", got.Passed, tt.want)
			}
		})
	}
}

func TestLBPEntropyScoreUniformInput(t *testing.T) {
	flat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 0, 0, 0), 64, 64, gocv.MatTypeCV8U)
	defer flat.Close()

	if score := lbpEntropyScore(flat); score > 0.05 {
		t.Errorf("uniform crop entropy = %f, want near 0", score)
	}
}

func TestLBPEntropyScoreDeterministic(t *testing.T) {
	img := gradientMat(64, 64)
	defer img.Close()
	gray := Grayscale(img)
	defer gray.Close()

	first := lbpEntropyScore(gray)
	second := lbpEntropyScore(gray)
	if first != second {
		t.Errorf("entropy not deterministic: %f vs %f", first, second)
	}
}
