package vision

import (
	"fmt"
	"image"
	"sync"

	"idgate.io/infrastructure/logger"
	"gocv.io/x/gocv"
)

// FaceDetector wraps a Haar cascade classifier. Cascade invocations are not
// safe under concurrent use, so every detection holds the mutex.
type FaceDetector struct {
	cascade      gocv.CascadeClassifier
	modelsLoaded bool
	mutex        sync.Mutex
}

// NewFaceDetector loads the frontal-face cascade from cascadePath, falling
// back to the usual system install locations. A detector whose model failed
// to load stays usable and reports no faces; callers treat that per their
// own fail-open/fail-closed policy.
func NewFaceDetector(cascadePath string) *FaceDetector {
	detector := &FaceDetector{}

	detector.cascade = gocv.NewCascadeClassifier()
	if !detector.cascade.Load(cascadePath) {
		alternativePaths := []string{
			"haarcascade_frontalface_alt.xml",
			"/usr/local/share/opencv4/haarcascades/haarcascade_frontalface_alt.xml",
			"/usr/share/opencv4/haarcascades/haarcascade_frontalface_alt.xml",
			"/opt/homebrew/share/opencv4/haarcascades/haarcascade_frontalface_alt.xml",
		}

		loaded := false
		for _, path := range alternativePaths {
			if detector.cascade.Load(path) {
				loaded = true
				break
			}
		}
		if !loaded {
			logger.Error("failed to load face cascade", logger.LoggerOptions{
				Key:  "cascade_path",
				Data: cascadePath,
			})
			return detector
		}
	}

	detector.modelsLoaded = true
	logger.Info("face detector initialized successfully")
	return detector
}

// IsHealthy reports whether the cascade model loaded.
func (fd *FaceDetector) IsHealthy() bool {
	return fd.modelsLoaded
}

// Detect returns every face found in img.
func (fd *FaceDetector) Detect(img gocv.Mat) ([]image.Rectangle, error) {
	if !fd.modelsLoaded {
		return nil, fmt.Errorf("face detection model not loaded")
	}
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	fd.mutex.Lock()
	defer fd.mutex.Unlock()

	gray := Grayscale(img)
	defer gray.Close()

	return fd.cascade.DetectMultiScale(gray), nil
}

// DetectLargest returns the largest face found in img, with ok=false when no
// face was detected.
func (fd *FaceDetector) DetectLargest(img gocv.Mat) (image.Rectangle, bool, error) {
	faces, err := fd.Detect(img)
	if err != nil {
		return image.Rectangle{}, false, err
	}
	if len(faces) == 0 {
		return image.Rectangle{}, false, nil
	}
	return LargestRect(faces), true, nil
}

// Close releases the cascade resources.
func (fd *FaceDetector) Close() {
	if fd.modelsLoaded {
		fd.cascade.Close()
		fd.modelsLoaded = false
	}
}
