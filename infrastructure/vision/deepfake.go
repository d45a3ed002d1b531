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

// DeepfakeClassifier runs a two-class (real/fake) ONNX image classifier over
// the selfie. When the model is unavailable every detection degrades to a
// neutral default so verification keeps working with reduced confidence.
type DeepfakeClassifier struct {
	net          gocv.Net
	inputSize    image.Point
	labels       []string
	modelsLoaded bool
	mutex        sync.Mutex
}

// DeepfakeConfig holds configuration for the classifier model.
type DeepfakeConfig struct {
	ModelPath string
	InputSize image.Point
}

// NewDeepfakeClassifier loads the classifier model, degrading gracefully
// when the file is missing or unreadable.
func NewDeepfakeClassifier(config DeepfakeConfig) *DeepfakeClassifier {
	classifier := &DeepfakeClassifier{
		inputSize: config.InputSize,
		labels:    []string{"Fake", "Real"},
	}

	if err := classifier.loadModel(config); err != nil {
		logger.Error("failed to load deepfake model", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return classifier
	}

	classifier.modelsLoaded = true
	logger.Info("deepfake classifier initialized successfully", logger.LoggerOptions{
		Key:  "model_path",
		Data: config.ModelPath,
	})
	return classifier
}

func (dc *DeepfakeClassifier) loadModel(config DeepfakeConfig) error {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", config.ModelPath)
	}

	dc.net = gocv.ReadNet(config.ModelPath, "")
	if dc.net.Empty() {
		return fmt.Errorf("failed to load deepfake model from %s", config.ModelPath)
	}

	dc.net.SetPreferableBackend(gocv.NetBackendDefault)
	dc.net.SetPreferableTarget(gocv.NetTargetCPU)
	return nil
}

// IsHealthy reports whether the classifier model loaded.
func (dc *DeepfakeClassifier) IsHealthy() bool {
	return dc.modelsLoaded
}

// Detect classifies img as real or synthetically generated.
func (dc *DeepfakeClassifier) Detect(img gocv.Mat) *types.DeepfakeResult {
	if !dc.modelsLoaded {
		return &types.DeepfakeResult{
			IsReal:         true,
			Confidence:     0.5,
			Label:          "unknown",
			ModelAvailable: false,
		}
	}
	if img.Empty() {
		return &types.DeepfakeResult{
			IsReal:         true,
			Confidence:     0.5,
			Label:          "unknown",
			ModelAvailable: false,
			Error:          strPtr("empty image"),
		}
	}

	resized := ResizeTo(img, dc.inputSize)
	defer resized.Close()

	blob := gocv.BlobFromImage(
		resized,
		1.0/255.0,
		dc.inputSize,
		gocv.NewScalar(0, 0, 0, 0),
		true,
		false,
	)
	defer blob.Close()

	dc.mutex.Lock()
	output := func() gocv.Mat {
		dc.net.SetInput(blob, "")
		return dc.net.Forward("")
	}()
	dc.mutex.Unlock()
	defer output.Close()

	logits := make([]float64, output.Cols())
	for i := range logits {
		logits[i] = float64(output.GetFloatAt(0, i))
	}
	if len(logits) < 2 {
		return &types.DeepfakeResult{
			IsReal:         true,
			Confidence:     0.5,
			ModelAvailable: false,
			Error:          strPtr("unexpected classifier output shape"),
		}
	}

	probs := softmax(logits)
	predicted := 0
	for i, p := range probs {
		if p > probs[predicted] {
			predicted = i
		}
	}

	label := dc.labels[predicted%len(dc.labels)]
	return &types.DeepfakeResult{
		IsReal:         label == "Real",
		Confidence:     probs[predicted],
		Label:          label,
		ModelAvailable: true,
	}
}

func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}
	sum := 0.0
	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Close releases the classifier network.
func (dc *DeepfakeClassifier) Close() {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()
	if dc.modelsLoaded {
		dc.net.Close()
		dc.modelsLoaded = false
	}
}
