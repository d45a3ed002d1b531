package vision

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"idgate.io/infrastructure/logger"
	"idgate.io/infrastructure/vision/types"
	"gocv.io/x/gocv"
)

// FaceMatcher computes a similarity distance between the largest face in a
// document image and the largest face in a selfie, using an SFace embedding
// network. Matched means distance at or under the configured tolerance.
type FaceMatcher struct {
	net          gocv.Net
	inputSize    image.Point
	tolerance    float64
	detector     *FaceDetector
	modelsLoaded bool
	mutex        sync.Mutex
}

// FaceMatcherConfig holds configuration for the embedding model.
type FaceMatcherConfig struct {
	ModelPath string
	InputSize image.Point
	Tolerance float64
}

// NewFaceMatcher creates a FaceMatcher backed by detector for face location.
// A matcher whose model failed to load stays usable and reports every match
// attempt as a defaulted non-match.
func NewFaceMatcher(config FaceMatcherConfig, detector *FaceDetector) *FaceMatcher {
	matcher := &FaceMatcher{
		inputSize: config.InputSize,
		tolerance: config.Tolerance,
		detector:  detector,
	}

	if err := matcher.loadModel(config); err != nil {
		logger.Error("failed to load face embedding model", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return matcher
	}

	matcher.modelsLoaded = true
	logger.Info("face matcher initialized successfully", logger.LoggerOptions{
		Key: "config",
		Data: map[string]interface{}{
			"model_path": config.ModelPath,
			"input_size": fmt.Sprintf("%dx%d", config.InputSize.X, config.InputSize.Y),
			"tolerance":  config.Tolerance,
		},
	})
	return matcher
}

func (fm *FaceMatcher) loadModel(config FaceMatcherConfig) error {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", config.ModelPath)
	}

	fm.net = gocv.ReadNet(config.ModelPath, "")
	if fm.net.Empty() {
		return fmt.Errorf("failed to load face embedding model from %s", config.ModelPath)
	}

	fm.net.SetPreferableBackend(gocv.NetBackendDefault)
	fm.net.SetPreferableTarget(gocv.NetTargetCPU)
	return nil
}

// IsHealthy reports whether the embedding model loaded.
func (fm *FaceMatcher) IsHealthy() bool {
	return fm.modelsLoaded
}

// MatchFaces locates the largest face in each image, embeds both and turns
// the embedding distance into a match verdict. A missing face in either
// image is reported as a non-match with an explicit error, never as a fault.
func (fm *FaceMatcher) MatchFaces(docImage, selfieImage gocv.Mat) *types.FaceMatchResult {
	docFace, docFound, docErr := fm.detector.DetectLargest(docImage)
	selfieFace, selfieFound, selfieErr := fm.detector.DetectLargest(selfieImage)

	if docErr != nil || selfieErr != nil {
		err := docErr
		if err == nil {
			err = selfieErr
		}
		return &types.FaceMatchResult{
			Matched:       false,
			Confidence:    0,
			Strategy:      "sface_embedding",
			ThresholdUsed: fm.tolerance,
			Error:         errString(err),
		}
	}
	if !docFound || !selfieFound {
		return &types.FaceMatchResult{
			Matched:       false,
			Confidence:    0,
			Strategy:      "sface_embedding",
			ThresholdUsed: fm.tolerance,
			Error:         strPtr("Face not detected in one or both images"),
		}
	}

	docEmbedding, err := fm.extractEmbedding(docImage, docFace)
	if err != nil {
		return &types.FaceMatchResult{
			Matched:       false,
			Confidence:    0,
			Strategy:      "sface_embedding",
			ThresholdUsed: fm.tolerance,
			Error:         errString(err),
		}
	}
	selfieEmbedding, err := fm.extractEmbedding(selfieImage, selfieFace)
	if err != nil {
		return &types.FaceMatchResult{
			Matched:       false,
			Confidence:    0,
			Strategy:      "sface_embedding",
			ThresholdUsed: fm.tolerance,
			Error:         errString(err),
		}
	}

	distance := embeddingDistance(docEmbedding, selfieEmbedding)
	confidence := (1 - distance) * 100
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	docQuality := QualityForMatching(docImage)
	selfieQuality := QualityForMatching(selfieImage)

	return &types.FaceMatchResult{
		Matched:       distance <= fm.tolerance,
		Confidence:    confidence,
		Distance:      distance,
		Strategy:      "sface_embedding",
		ThresholdUsed: fm.tolerance,
		DocQuality:    docQuality,
		SelfieQuality: selfieQuality,
	}
}

// extractEmbedding runs the face crop through the embedding network and
// returns the L2-normalized feature vector.
func (fm *FaceMatcher) extractEmbedding(img gocv.Mat, face image.Rectangle) ([]float32, error) {
	if !fm.modelsLoaded {
		return nil, fmt.Errorf("face embedding model not loaded")
	}

	region := ClampRect(face, img)
	if region.Empty() {
		return nil, fmt.Errorf("degenerate face region")
	}
	crop := img.Region(region)
	defer crop.Close()

	resized := ResizeTo(crop, fm.inputSize)
	defer resized.Close()

	// SFace expects [1, 3, 112, 112] normalized around 127.5
	blob := gocv.BlobFromImage(
		resized,
		1.0/127.5,
		fm.inputSize,
		gocv.NewScalar(127.5, 127.5, 127.5, 0),
		true,
		false,
	)
	defer blob.Close()

	fm.mutex.Lock()
	defer fm.mutex.Unlock()

	fm.net.SetInput(blob, "")
	output := fm.net.Forward("")
	defer output.Close()

	embeddingSize := output.Cols()
	if embeddingSize <= 0 {
		embeddingSize = 128
	}
	embedding := make([]float32, embeddingSize)
	for i := 0; i < embeddingSize; i++ {
		embedding[i] = output.GetFloatAt(0, i)
	}

	norm := float32(0)
	for _, v := range embedding {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm == 0 {
		return nil, fmt.Errorf("zero embedding vector")
	}
	for i := range embedding {
		embedding[i] /= norm
	}
	return embedding, nil
}

// embeddingDistance is the cosine distance between two normalized vectors.
func embeddingDistance(a, b []float32) float64 {
	size := len(a)
	if len(b) < size {
		size = len(b)
	}
	dot := float64(0)
	for i := 0; i < size; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	distance := 1 - dot
	if distance < 0 {
		distance = 0
	}
	return distance
}

// QualityForMatching scores an image's fitness for face matching from
// sharpness, brightness, contrast and resolution.
func QualityForMatching(img gocv.Mat) *types.QualityMetrics {
	gray := Grayscale(img)
	defer gray.Close()

	sharpness := LaplacianVariance(gray)
	brightness := MatMean(gray)
	contrast := math.Sqrt(MatVariance(gray, brightness))
	resolution := img.Rows() * img.Cols()

	sharpnessScore := math.Min(sharpness/500.0, 1.0) * 100
	brightnessScore := (1 - math.Abs(brightness-127)/127) * 100
	contrastScore := math.Min(contrast/64.0, 1.0) * 100
	resolutionScore := math.Min(float64(resolution)/(640*480), 1.0) * 100

	overall := (sharpnessScore + brightnessScore + contrastScore + resolutionScore) / 4

	return &types.QualityMetrics{
		Sharpness:     sharpness,
		Brightness:    brightness,
		Contrast:      contrast,
		Resolution:    resolution,
		QualityScore:  overall,
		IsGoodQuality: overall >= 60.0,
	}
}

func strPtr(text string) *string {
	return &text
}

func errString(err error) *string {
	msg := err.Error()
	return &msg
}

// Close releases the embedding network.
func (fm *FaceMatcher) Close() {
	fm.mutex.Lock()
	defer fm.mutex.Unlock()
	if fm.modelsLoaded {
		fm.net.Close()
		fm.modelsLoaded = false
	}
}
