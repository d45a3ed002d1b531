package vision

import (
	"errors"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// DecodeImage decodes raw JPEG/PNG bytes into a BGR Mat.
func DecodeImage(buf []byte) (gocv.Mat, error) {
	img, err := gocv.IMDecode(buf, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), err
	}
	if img.Empty() {
		return img, errors.New("could not decode image data")
	}
	return img, nil
}

// Grayscale returns a single-channel copy of img. The caller owns the
// returned Mat.
func Grayscale(img gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if img.Channels() == 1 {
		img.CopyTo(&gray)
		return gray
	}
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	return gray
}

// ResizeTo returns img resized to the given size. The caller owns the
// returned Mat.
func ResizeTo(img gocv.Mat, size image.Point) gocv.Mat {
	resized := gocv.NewMat()
	gocv.Resize(img, &resized, size, 0, 0, gocv.InterpolationLinear)
	return resized
}

// PixelValue safely extracts a pixel value from any single-channel Mat type.
func PixelValue(img gocv.Mat, i, j int) (float64, bool) {
	if i < 0 || i >= img.Rows() || j < 0 || j >= img.Cols() {
		return 0.0, false
	}

	var val float64
	switch img.Type() {
	case gocv.MatTypeCV8U:
		val = float64(img.GetUCharAt(i, j))
	case gocv.MatTypeCV8S:
		val = float64(img.GetSCharAt(i, j))
	case gocv.MatTypeCV16S:
		val = float64(img.GetShortAt(i, j))
	case gocv.MatTypeCV32S:
		val = float64(img.GetIntAt(i, j))
	case gocv.MatTypeCV32F:
		val = float64(img.GetFloatAt(i, j))
	case gocv.MatTypeCV64F:
		val = img.GetDoubleAt(i, j)
	default:
		return 0.0, false
	}

	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0.0, false
	}
	return val, true
}

// MatMean computes the mean over every pixel of a single-channel Mat.
func MatMean(img gocv.Mat) float64 {
	rows, cols := img.Rows(), img.Cols()
	if rows == 0 || cols == 0 {
		return 0
	}
	sum := 0.0
	count := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if val, ok := PixelValue(img, i, j); ok {
				sum += val
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// MatVariance computes the variance of a single-channel Mat around mean.
func MatVariance(img gocv.Mat, mean float64) float64 {
	rows, cols := img.Rows(), img.Cols()
	if rows == 0 || cols == 0 {
		return 0
	}
	sum := 0.0
	count := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if val, ok := PixelValue(img, i, j); ok {
				diff := val - mean
				sum += diff * diff
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// MatCovariance computes the covariance of two equally sized single-channel
// Mats.
func MatCovariance(img1, img2 gocv.Mat, mean1, mean2 float64) float64 {
	rows, cols := img1.Rows(), img1.Cols()
	if rows == 0 || cols == 0 || rows != img2.Rows() || cols != img2.Cols() {
		return 0
	}
	sum := 0.0
	count := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			val1, ok1 := PixelValue(img1, i, j)
			val2, ok2 := PixelValue(img2, i, j)
			if ok1 && ok2 {
				sum += (val1 - mean1) * (val2 - mean2)
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// MeanStd computes the mean and standard deviation of a sample slice.
func MeanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// LargestRect returns the rectangle with the greatest area.
func LargestRect(rects []image.Rectangle) image.Rectangle {
	if len(rects) == 0 {
		return image.Rectangle{}
	}
	largest := rects[0]
	largestArea := largest.Dx() * largest.Dy()
	for _, r := range rects[1:] {
		if area := r.Dx() * r.Dy(); area > largestArea {
			largest = r
			largestArea = area
		}
	}
	return largest
}

// ClampRect clips r to the bounds of img so Region never panics on a
// detection that leaks past the frame.
func ClampRect(r image.Rectangle, img gocv.Mat) image.Rectangle {
	bounds := image.Rect(0, 0, img.Cols(), img.Rows())
	return r.Intersect(bounds)
}

// LaplacianVariance is the classic focus measure: variance of the Laplacian
// response over a grayscale image.
func LaplacianVariance(gray gocv.Mat) float64 {
	laplacian := gocv.NewMat()
	defer laplacian.Close()
	gocv.Laplacian(gray, &laplacian, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)
	mean := MatMean(laplacian)
	return MatVariance(laplacian, mean)
}
