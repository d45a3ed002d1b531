package vision

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func unloadedMatcher() *FaceMatcher {
	return NewFaceMatcher(FaceMatcherConfig{
		ModelPath: "missing.onnx",
		InputSize: image.Pt(112, 112),
		Tolerance: 0.5,
	}, NewFaceDetector("missing.xml"))
}

func TestMatchFacesDegradedDetectorNeverFaults(t *testing.T) {
	matcher := unloadedMatcher()

	doc := solidMat(640, 480, color.RGBA{R: 100, G: 100, B: 100})
	defer doc.Close()
	selfie := solidMat(640, 480, color.RGBA{R: 90, G: 90, B: 90})
	defer selfie.Close()

	result := matcher.MatchFaces(doc, selfie)

	if result.Matched {
		t.Error("no detectable face must never match")
	}
	if result.Confidence != 0 {
		t.Errorf("confidence = %f, want 0", result.Confidence)
	}
	if result.Error == nil {
		t.Error("degraded match must carry an explicit error")
	}
	if result.ThresholdUsed != 0.5 {
		t.Errorf("threshold_used = %f, want 0.5", result.ThresholdUsed)
	}
}

func TestEmbeddingDistance(t *testing.T) {
	identical := []float32{0.6, 0.8, 0}
	if d := embeddingDistance(identical, identical); d > 1e-6 {
		t.Errorf("distance between identical embeddings = %f, want 0", d)
	}

	orthogonal := []float32{0, 0, 1}
	if d := embeddingDistance(identical, orthogonal); math.Abs(d-1) > 1e-6 {
		t.Errorf("distance between orthogonal embeddings = %f, want 1", d)
	}
}

func TestQualityForMatching(t *testing.T) {
	flat := solidMat(640, 480, color.RGBA{R: 127, G: 127, B: 127})
	defer flat.Close()

	metrics := QualityForMatching(flat)

	if metrics.Sharpness != 0 {
		t.Errorf("flat image sharpness = %f, want 0", metrics.Sharpness)
	}
	if math.Abs(metrics.Brightness-127) > 1 {
		t.Errorf("brightness = %f, want about 127", metrics.Brightness)
	}
	if metrics.Resolution != 640*480 {
		t.Errorf("resolution = %d, want %d", metrics.Resolution, 640*480)
	}
	if metrics.QualityScore < 0 || metrics.QualityScore > 100 {
		t.Errorf("quality score %f out of range", metrics.QualityScore)
	}
}

func TestDeepfakeDetectWithoutModelIsNeutral(t *testing.T) {
	classifier := NewDeepfakeClassifier(DeepfakeConfig{
		ModelPath: "missing.onnx",
		InputSize: image.Pt(224, 224),
	})

	img := solidMat(640, 480, color.RGBA{R: 100, G: 100, B: 100})
	defer img.Close()

	result := classifier.Detect(img)

	if !result.IsReal {
		t.Error("neutral default must not report fake")
	}
	if result.Confidence != 0.5 {
		t.Errorf("confidence = %f, want 0.5", result.Confidence)
	}
	if result.ModelAvailable {
		t.Error("model_available must be false without a model")
	}
	if classifier.IsHealthy() {
		t.Error("classifier without a model must report unhealthy")
	}
}

func TestFaceDetectorWithoutCascade(t *testing.T) {
	detector := NewFaceDetector("missing.xml")
	defer detector.Close()

	if detector.IsHealthy() {
		t.Error("detector without a cascade must report unhealthy")
	}

	img := solidMat(640, 480, color.RGBA{R: 100, G: 100, B: 100})
	defer img.Close()

	if _, _, err := detector.DetectLargest(img); err == nil {
		t.Error("detection without a cascade must error")
	}
}
