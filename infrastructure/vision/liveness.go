package vision

import (
	"fmt"
	"image"
	"math"

	"idgate.io/infrastructure/vision/types"
	"gocv.io/x/gocv"
)

// LivenessConfig holds the thresholds of the six liveness sub-checks.
type LivenessConfig struct {
	BlurThreshold        float64
	ReflectionMinPercent float64
	MicroTextureMin      float64
	PrintAttackEnergyMax float64
	DepthCueMin          float64
	FaceSizeMin          int
	FaceSizeMax          int
	ScoreThreshold       float64
	HighBand             float64
}

// LivenessEvaluator scores whether a selfie was captured from a live
// subject. Each sub-check fails closed on an internal fault: a broken
// sub-check counts against liveness, it is never skipped.
type LivenessEvaluator struct {
	config   LivenessConfig
	detector *FaceDetector
}

// NewLivenessEvaluator creates an evaluator backed by detector for face
// location when the caller does not supply a region.
func NewLivenessEvaluator(config LivenessConfig, detector *FaceDetector) *LivenessEvaluator {
	return &LivenessEvaluator{config: config, detector: detector}
}

// Check runs the six liveness sub-checks against img. When faceRegion is
// nil the largest detected face is used; no detectable face is a hard
// failure because liveness cannot be assessed without one.
func (le *LivenessEvaluator) Check(img gocv.Mat, faceRegion *image.Rectangle) *types.LivenessResult {
	if faceRegion == nil {
		face, found, err := le.detector.DetectLargest(img)
		if err != nil {
			msg := err.Error()
			return &types.LivenessResult{
				IsLive:        false,
				LivenessScore: 0.0,
				ChecksPassed:  "0/6",
				Confidence:    "low",
				Error:         &msg,
			}
		}
		if !found {
			msg := "No face detected"
			return &types.LivenessResult{
				IsLive:        false,
				LivenessScore: 0.0,
				ChecksPassed:  "0/6",
				Confidence:    "low",
				Error:         &msg,
			}
		}
		faceRegion = &face
	}

	face := ClampRect(*faceRegion, img)
	checks := types.LivenessChecks{
		Blur:            le.checkBlur(img),
		Reflection:      le.detectSpecularReflections(img, face),
		MicroTexture:    le.analyzeMicroTexture(img, face),
		PrintAttack:     le.detectPrintAttack(img),
		DepthCues:       le.estimateDepthCues(img),
		FaceProportions: le.checkFaceProportions(face),
	}

	passed := 0
	for _, check := range []types.LivenessCheck{
		checks.Blur, checks.Reflection, checks.MicroTexture,
		checks.PrintAttack, checks.DepthCues, checks.FaceProportions,
	} {
		if check.Passed {
			passed++
		}
	}

	livenessScore := float64(passed) / 6.0
	return &types.LivenessResult{
		IsLive:        livenessScore >= le.config.ScoreThreshold,
		LivenessScore: livenessScore,
		ChecksPassed:  fmt.Sprintf("%d/6", passed),
		Confidence:    le.confidenceBand(livenessScore),
		Checks:        checks,
	}
}

func (le *LivenessEvaluator) confidenceBand(score float64) string {
	switch {
	case score > le.config.HighBand:
		return "high"
	case score >= le.config.ScoreThreshold:
		return "medium"
	default:
		return "low"
	}
}

// checkBlur measures focus as the Laplacian variance of the grayscale
// image; a flat photo-of-a-photo scores low.
func (le *LivenessEvaluator) checkBlur(img gocv.Mat) (check types.LivenessCheck) {
	defer func() {
		if r := recover(); r != nil {
			check = failedCheck(fmt.Sprintf("blur check fault: %v", r))
		}
	}()

	gray := Grayscale(img)
	defer gray.Close()

	blurScore := LaplacianVariance(gray)
	return types.LivenessCheck{
		Passed: blurScore > le.config.BlurThreshold,
		Score:  blurScore,
	}
}

// detectSpecularReflections thresholds near-white pixels in the upper 40%
// of the face box where living eyes reflect light.
func (le *LivenessEvaluator) detectSpecularReflections(img gocv.Mat, face image.Rectangle) (check types.LivenessCheck) {
	defer func() {
		if r := recover(); r != nil {
			check = failedCheck(fmt.Sprintf("reflection check fault: %v", r))
		}
	}()

	eyeBand := image.Rect(face.Min.X, face.Min.Y, face.Max.X, face.Min.Y+int(float64(face.Dy())*0.4))
	eyeBand = ClampRect(eyeBand, img)
	if eyeBand.Empty() {
		return failedCheck("degenerate eye region")
	}

	region := img.Region(eyeBand)
	defer region.Close()
	gray := Grayscale(region)
	defer gray.Close()

	brightSpots := gocv.NewMat()
	defer brightSpots.Close()
	gocv.Threshold(gray, &brightSpots, 200, 255, gocv.ThresholdBinary)

	totalPixels := gray.Rows() * gray.Cols()
	reflectionScore := float64(gocv.CountNonZero(brightSpots)) / float64(totalPixels) * 100

	return types.LivenessCheck{
		Passed: reflectionScore > le.config.ReflectionMinPercent,
		Score:  reflectionScore,
	}
}

// analyzeMicroTexture computes the Shannon entropy of an 8-neighbor local
// binary pattern histogram over the face; skin carries richer micro-texture
// than print or paper.
func (le *LivenessEvaluator) analyzeMicroTexture(img gocv.Mat, face image.Rectangle) (check types.LivenessCheck) {
	defer func() {
		if r := recover(); r != nil {
			check = failedCheck(fmt.Sprintf("micro texture fault: %v", r))
		}
	}()

	if face.Empty() {
		return failedCheck("degenerate face region")
	}
	region := img.Region(face)
	defer region.Close()
	gray := Grayscale(region)
	defer gray.Close()

	score := lbpEntropyScore(gray)
	return types.LivenessCheck{
		Passed: score > le.config.MicroTextureMin,
		Score:  score,
	}
}

// detectPrintAttack sums the spectral energy in the centered half-band of
// the shifted 2-D DFT magnitude; print artifacts leave characteristic
// periodic energy there.
func (le *LivenessEvaluator) detectPrintAttack(img gocv.Mat) (check types.LivenessCheck) {
	defer func() {
		if r := recover(); r != nil {
			check = failedCheck(fmt.Sprintf("print attack check fault: %v", r))
		}
	}()

	gray := Grayscale(img)
	defer gray.Close()

	floatImg := gocv.NewMat()
	defer floatImg.Close()
	gray.ConvertTo(&floatImg, gocv.MatTypeCV32F)

	dft := gocv.NewMat()
	defer dft.Close()
	gocv.DFT(floatImg, &dft, gocv.DftComplexOutput)

	planes := gocv.Split(dft)
	defer func() {
		for _, plane := range planes {
			plane.Close()
		}
	}()
	if len(planes) < 2 {
		return failedCheck("unexpected DFT output")
	}

	magnitude := gocv.NewMat()
	defer magnitude.Close()
	gocv.Magnitude(planes[0], planes[1], &magnitude)

	rows := magnitude.Rows()
	cols := magnitude.Cols()
	energy := 0.0
	// index mapping stands in for an explicit fftshift
	for i := rows / 4; i < 3*rows/4; i++ {
		si := (i + rows/2) % rows
		for j := cols / 4; j < 3*cols/4; j++ {
			sj := (j + cols/2) % cols
			energy += float64(magnitude.GetFloatAt(si, sj))
		}
	}

	return types.LivenessCheck{
		Passed: energy < le.config.PrintAttackEnergyMax,
		Score:  energy,
	}
}

// estimateDepthCues uses the coefficient of variation of the Sobel gradient
// magnitude; a flat 2-D replay shows less gradient variance than a 3-D face
// under directional lighting.
func (le *LivenessEvaluator) estimateDepthCues(img gocv.Mat) (check types.LivenessCheck) {
	defer func() {
		if r := recover(); r != nil {
			check = failedCheck(fmt.Sprintf("depth cue check fault: %v", r))
		}
	}()

	gray := Grayscale(img)
	defer gray.Close()

	sobelX := gocv.NewMat()
	defer sobelX.Close()
	sobelY := gocv.NewMat()
	defer sobelY.Close()
	gocv.Sobel(gray, &sobelX, gocv.MatTypeCV32F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &sobelY, gocv.MatTypeCV32F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	magnitude := gocv.NewMat()
	defer magnitude.Close()
	gocv.Magnitude(sobelX, sobelY, &magnitude)

	mean := MatMean(magnitude)
	std := math.Sqrt(MatVariance(magnitude, mean))

	depthScore := std / (mean + 1e-6)
	depthScore = math.Min(depthScore/2.0, 1.0)

	return types.LivenessCheck{
		Passed: depthScore > le.config.DepthCueMin,
		Score:  depthScore,
	}
}

// checkFaceProportions guards against degenerate detections by bounding the
// face box size.
func (le *LivenessEvaluator) checkFaceProportions(face image.Rectangle) (check types.LivenessCheck) {
	defer func() {
		if r := recover(); r != nil {
			check = failedCheck(fmt.Sprintf("face proportion check fault: %v", r))
		}
	}()

	width := face.Dx()
	height := face.Dy()
	sizeValid := width > le.config.FaceSizeMin && width < le.config.FaceSizeMax &&
		height > le.config.FaceSizeMin && height < le.config.FaceSizeMax

	return types.LivenessCheck{
		Passed: sizeValid,
		Score:  float64(width * height),
	}
}

// lbpEntropyScore computes a 256-bin 8-neighbor LBP histogram and returns
// its Shannon entropy normalized by the theoretical maximum of 8 bits.
func lbpEntropyScore(gray gocv.Mat) float64 {
	rows := gray.Rows()
	cols := gray.Cols()
	if rows < 3 || cols < 3 {
		return 0
	}

	histogram := make([]int, 256)
	totalPatterns := 0

	neighbors := []struct{ dy, dx int }{
		{-1, -1}, {-1, 0}, {-1, 1},
		{0, 1}, {1, 1}, {1, 0},
		{1, -1}, {0, -1},
	}

	for i := 1; i < rows-1; i++ {
		for j := 1; j < cols-1; j++ {
			center := gray.GetUCharAt(i, j)

			var pattern uint8
			for bit, neighbor := range neighbors {
				if gray.GetUCharAt(i+neighbor.dy, j+neighbor.dx) >= center {
					pattern |= 1 << uint(bit)
				}
			}

			histogram[pattern]++
			totalPatterns++
		}
	}

	if totalPatterns == 0 {
		return 0
	}

	entropy := 0.0
	for _, count := range histogram {
		if count > 0 {
			probability := float64(count) / float64(totalPatterns)
			entropy -= probability * math.Log2(probability)
		}
	}

	return math.Min(entropy/8.0, 1.0)
}

func failedCheck(reason string) types.LivenessCheck {
	return types.LivenessCheck{Passed: false, Error: &reason}
}
