package vision

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func solidMat(width, height int, c color.RGBA) gocv.Mat {
	mat := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0),
		height, width, gocv.MatTypeCV8UC3,
	)
	return mat
}

// gradientMat builds an image with enough structure that similarity metrics
// have signal to work with.
func gradientMat(width, height int) gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			mat.SetUCharAt(y, x*3, uint8((x*255)/width))
			mat.SetUCharAt(y, x*3+1, uint8((y*255)/height))
			mat.SetUCharAt(y, x*3+2, uint8(((x+y)*255)/(width+height)))
		}
	}
	return mat
}

func TestAreImagesTooSimilarIdenticalImage(t *testing.T) {
	img := gradientMat(320, 240)
	defer img.Close()

	detector := NewSimilarityDetector(0.95)
	result := detector.AreImagesTooSimilar(img, img)

	if !result.IsDuplicate {
		t.Error("an image compared against itself must be a duplicate")
	}
	if result.SimilarityScore < 0.99 {
		t.Errorf("self-similarity = %f, want near 1.0", result.SimilarityScore)
	}
	if result.Passed {
		t.Error("a duplicate pair must not pass the gate")
	}
	if result.ThresholdUsed != 0.95 {
		t.Errorf("threshold_used = %f, want 0.95", result.ThresholdUsed)
	}
}

func TestAreImagesTooSimilarDistinctImages(t *testing.T) {
	doc := gradientMat(320, 240)
	defer doc.Close()
	selfie := solidMat(320, 240, color.RGBA{R: 10, G: 200, B: 30})
	defer selfie.Close()

	detector := NewSimilarityDetector(0.95)
	result := detector.AreImagesTooSimilar(doc, selfie)

	if result.IsDuplicate {
		t.Errorf("structurally different images flagged duplicate (score %f)", result.SimilarityScore)
	}
	if !result.Passed {
		t.Error("distinct images must pass the gate")
	}
}

func TestAreImagesTooSimilarBreakdownPopulated(t *testing.T) {
	img := gradientMat(320, 240)
	defer img.Close()

	result := NewSimilarityDetector(0.95).AreImagesTooSimilar(img, img)

	if result.Details.SSIM < 0.99 {
		t.Errorf("self SSIM = %f, want near 1.0", result.Details.SSIM)
	}
	if result.Details.HashSimilarity != 1.0 {
		t.Errorf("self hash similarity = %f, want exactly 1.0", result.Details.HashSimilarity)
	}
	if result.Details.PixelSimilarity != 1.0 {
		t.Errorf("self pixel similarity = %f, want exactly 1.0", result.Details.PixelSimilarity)
	}
}

func TestCheckImageUniqueness(t *testing.T) {
	first := gradientMat(320, 240)
	defer first.Close()
	duplicate := gradientMat(320, 240)
	defer duplicate.Close()
	distinct := solidMat(320, 240, color.RGBA{R: 240, G: 20, B: 20})
	defer distinct.Close()

	detector := NewSimilarityDetector(0.95)
	result := detector.CheckImageUniqueness([]gocv.Mat{first, duplicate, distinct})

	if result.AllUnique {
		t.Error("batch containing a duplicate pair reported all unique")
	}
	if result.TotalComparisons != 3 {
		t.Errorf("total_comparisons = %d, want 3", result.TotalComparisons)
	}
	if len(result.DuplicatesFound) != 1 {
		t.Fatalf("duplicates_found = %d, want 1", len(result.DuplicatesFound))
	}
	pair := result.DuplicatesFound[0]
	if pair.First != 0 || pair.Second != 1 {
		t.Errorf("duplicate pair = (%d,%d), want (0,1)", pair.First, pair.Second)
	}
}

func TestDifferenceHashDeterministic(t *testing.T) {
	img := gradientMat(320, 240)
	defer img.Close()
	gray := Grayscale(img)
	defer gray.Close()

	first := differenceHash(gray)
	second := differenceHash(gray)
	if len(first) != len(second) {
		t.Fatalf("hash lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("difference hash must be deterministic for the same input")
		}
	}
}

func TestVerifySimilarityWeightsSumToOne(t *testing.T) {
	sum := ssimWeight + histogramWeight + pixelWeight + hashWeight
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("similarity weights sum to %f, want 1.0", sum)
	}
}

func TestProportionsOnlyFlatImageIsNotDocument(t *testing.T) {
	// landscape aspect triggers only the proportions signal (0.10), which is
	// below the structure threshold on its own
	flat := solidMat(600, 400, color.RGBA{R: 60, G: 60, B: 60})
	defer flat.Close()

	classifier := NewStructureClassifier(0.25, 0.60, NewFaceDetector("missing.xml"))
	result := classifier.DetectDocumentStructure(flat)

	if result.HasDocument {
		t.Errorf("flat image classified as document (confidence %f)", result.Confidence)
	}
	if result.FeaturesDetected.CardEdges.Detected {
		t.Error("flat image has no card edges")
	}
	if result.FeaturesDetected.TextRegions.HasTextRegions {
		t.Error("flat image has no text regions")
	}
}
