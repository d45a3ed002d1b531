package vision

import (
	"fmt"
	"image"

	"idgate.io/infrastructure/vision/types"
	"gocv.io/x/gocv"
)

// canonical comparison size for all similarity estimators
var similaritySize = image.Pt(256, 256)

// estimator weights, summing to 1.0
const (
	ssimWeight      = 0.40
	histogramWeight = 0.25
	pixelWeight     = 0.20
	hashWeight      = 0.15
)

// SimilarityDetector is the duplicate-image gate: it scores how alike two
// submitted images are to catch the same file being reused for document and
// selfie. Policy on internal fault: fail open. A broken similarity check
// must never itself manufacture a rejection.
type SimilarityDetector struct {
	threshold float64
}

// NewSimilarityDetector creates a detector; images scoring at or above
// threshold are reported as duplicates.
func NewSimilarityDetector(threshold float64) *SimilarityDetector {
	return &SimilarityDetector{threshold: threshold}
}

// AreImagesTooSimilar combines four similarity estimators with fixed
// weights: SSIM 0.40, color-histogram correlation 0.25, mean pixel
// difference 0.20, perceptual hash 0.15.
func (sd *SimilarityDetector) AreImagesTooSimilar(image1, image2 gocv.Mat) (result *types.SimilarityResult) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("similarity check fault: %v", r)
			result = &types.SimilarityResult{
				IsDuplicate:     false,
				SimilarityScore: 0,
				Method:          "multi-method",
				Passed:          true,
				ThresholdUsed:   sd.threshold,
				Error:           &msg,
			}
		}
	}()

	if image1.Empty() || image2.Empty() {
		msg := "empty image supplied to similarity check"
		return &types.SimilarityResult{
			IsDuplicate:   false,
			Method:        "multi-method",
			Passed:        true,
			ThresholdUsed: sd.threshold,
			Error:         &msg,
		}
	}

	resized1 := ResizeTo(image1, similaritySize)
	defer resized1.Close()
	resized2 := ResizeTo(image2, similaritySize)
	defer resized2.Close()

	gray1 := Grayscale(resized1)
	defer gray1.Close()
	gray2 := Grayscale(resized2)
	defer gray2.Close()

	ssimScore := grayscaleSSIM(gray1, gray2)
	histScore := colorHistogramCorrelation(resized1, resized2)
	pixelSimilarity := pixelDifferenceSimilarity(gray1, gray2)
	hashSimilarity := differenceHashSimilarity(gray1, gray2)

	combined := ssimScore*ssimWeight + histScore*histogramWeight + pixelSimilarity*pixelWeight + hashSimilarity*hashWeight
	isDuplicate := combined >= sd.threshold

	return &types.SimilarityResult{
		IsDuplicate:     isDuplicate,
		SimilarityScore: combined,
		Details: types.SimilarityBreakdown{
			SSIM:            ssimScore,
			Histogram:       histScore,
			PixelSimilarity: pixelSimilarity,
			HashSimilarity:  hashSimilarity,
		},
		Method:        "multi-method",
		Passed:        !isDuplicate,
		ThresholdUsed: sd.threshold,
	}
}

// CheckImageUniqueness compares every unordered pair in a batch and reports
// the pairs exceeding the duplicate threshold.
func (sd *SimilarityDetector) CheckImageUniqueness(images []gocv.Mat) *types.UniquenessResult {
	if len(images) < 2 {
		return &types.UniquenessResult{AllUnique: true, DuplicatesFound: []types.DuplicatePair{}}
	}

	duplicates := []types.DuplicatePair{}
	for i := 0; i < len(images); i++ {
		for j := i + 1; j < len(images); j++ {
			result := sd.AreImagesTooSimilar(images[i], images[j])
			if result.IsDuplicate {
				duplicates = append(duplicates, types.DuplicatePair{
					First:      i,
					Second:     j,
					Similarity: result.SimilarityScore,
				})
			}
		}
	}

	return &types.UniquenessResult{
		AllUnique:        len(duplicates) == 0,
		DuplicatesFound:  duplicates,
		TotalComparisons: len(images) * (len(images) - 1) / 2,
	}
}

// grayscaleSSIM is a global structural similarity index over two grayscale
// images of identical size. Identical inputs score exactly 1.
func grayscaleSSIM(gray1, gray2 gocv.Mat) float64 {
	float1 := gocv.NewMat()
	defer float1.Close()
	float2 := gocv.NewMat()
	defer float2.Close()
	gray1.ConvertTo(&float1, gocv.MatTypeCV32F)
	gray2.ConvertTo(&float2, gocv.MatTypeCV32F)

	mean1 := MatMean(float1)
	mean2 := MatMean(float2)
	var1 := MatVariance(float1, mean1)
	var2 := MatVariance(float2, mean2)
	cov := MatCovariance(float1, float2, mean1, mean2)

	// stabilizers for an 8-bit dynamic range
	c1 := (0.01 * 255) * (0.01 * 255)
	c2 := (0.03 * 255) * (0.03 * 255)

	numerator := (2*mean1*mean2 + c1) * (2*cov + c2)
	denominator := (mean1*mean1 + mean2*mean2 + c1) * (var1 + var2 + c2)
	if denominator == 0 {
		return 0
	}

	ssim := numerator / denominator
	if ssim < 0 {
		ssim = 0
	}
	if ssim > 1 {
		ssim = 1
	}
	return ssim
}

// colorHistogramCorrelation correlates 8x8x8 3-D color histograms.
func colorHistogramCorrelation(img1, img2 gocv.Mat) float64 {
	hist1 := gocv.NewMat()
	defer hist1.Close()
	hist2 := gocv.NewMat()
	defer hist2.Close()

	channels := []int{0, 1, 2}
	sizes := []int{8, 8, 8}
	ranges := []float64{0, 256, 0, 256, 0, 256}

	gocv.CalcHist([]gocv.Mat{img1}, channels, gocv.NewMat(), &hist1, sizes, ranges, false)
	gocv.CalcHist([]gocv.Mat{img2}, channels, gocv.NewMat(), &hist2, sizes, ranges, false)

	gocv.Normalize(hist1, &hist1, 0, 1, gocv.NormMinMax)
	gocv.Normalize(hist2, &hist2, 0, 1, gocv.NormMinMax)

	correlation := float64(gocv.CompareHist(hist1, hist2, gocv.HistCmpCorrel))
	if correlation < 0 {
		correlation = 0
	}
	if correlation > 1 {
		correlation = 1
	}
	return correlation
}

// pixelDifferenceSimilarity maps the mean absolute pixel difference into a
// [0,1] similarity.
func pixelDifferenceSimilarity(gray1, gray2 gocv.Mat) float64 {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray1, gray2, &diff)
	return 1.0 - MatMean(diff)/255.0
}

// differenceHashSimilarity compares 64-bit dHashes by Hamming similarity.
func differenceHashSimilarity(gray1, gray2 gocv.Mat) float64 {
	hash1 := differenceHash(gray1)
	hash2 := differenceHash(gray2)

	matching := 0
	for i := range hash1 {
		if hash1[i] == hash2[i] {
			matching++
		}
	}
	return float64(matching) / float64(len(hash1))
}

// differenceHash computes the classic dHash: resize to 9x8, compare each
// pixel against its right neighbor.
func differenceHash(gray gocv.Mat) []bool {
	const hashSize = 8

	resized := ResizeTo(gray, image.Pt(hashSize+1, hashSize))
	defer resized.Close()

	bits := make([]bool, 0, hashSize*hashSize)
	for i := 0; i < hashSize; i++ {
		for j := 0; j < hashSize; j++ {
			bits = append(bits, resized.GetUCharAt(i, j+1) > resized.GetUCharAt(i, j))
		}
	}
	return bits
}
