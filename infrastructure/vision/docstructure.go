package vision

import (
	"fmt"
	"image"

	"idgate.io/infrastructure/vision/types"
	"gocv.io/x/gocv"
)

// StructureClassifier decides whether an image contains a structured
// identity document rather than an arbitrary photo. Five independent
// sub-detectors each contribute a fixed weight to the confidence when their
// verdict is positive; weights are applied in priority order so ties are
// reproducible.
type StructureClassifier struct {
	minConfidence     float64
	faceOnlyAreaRatio float64
	detector          *FaceDetector
}

// structure sub-detector weights, priority order; they sum to 1.0
const (
	weightCardEdges        = 0.30
	weightTextRegions      = 0.25
	weightSecurityFeatures = 0.20
	weightPhotoRegion      = 0.15
	weightProportions      = 0.10
)

// NewStructureClassifier creates a classifier. detector backs the
// close-up-face companion check.
func NewStructureClassifier(minConfidence float64, faceOnlyAreaRatio float64, detector *FaceDetector) *StructureClassifier {
	return &StructureClassifier{
		minConfidence:     minConfidence,
		faceOnlyAreaRatio: faceOnlyAreaRatio,
		detector:          detector,
	}
}

// DetectDocumentStructure runs the five structural sub-detectors and sums
// the triggered weights into a document confidence.
func (sc *StructureClassifier) DetectDocumentStructure(img gocv.Mat) *types.StructureResult {
	features := types.StructureFeatures{
		CardEdges:        sc.detectCardEdges(img),
		TextRegions:      sc.detectTextRegions(img),
		SecurityFeatures: sc.detectSecurityFeatures(img),
		PhotoRegion:      sc.detectPhotoRegion(img),
		Proportions:      sc.checkDocumentProportions(img),
	}

	confidence := 0.0
	if features.CardEdges.Detected {
		confidence += weightCardEdges
	}
	if features.TextRegions.HasTextRegions {
		confidence += weightTextRegions
	}
	if features.SecurityFeatures.Detected {
		confidence += weightSecurityFeatures
	}
	if features.PhotoRegion.Detected {
		confidence += weightPhotoRegion
	}
	if features.Proportions.IsDocumentSized {
		confidence += weightProportions
	}

	hasDocument := confidence >= sc.minConfidence
	return &types.StructureResult{
		HasDocument:      hasDocument,
		Confidence:       confidence,
		FeaturesDetected: features,
		Passed:           hasDocument,
		ThresholdUsed:    sc.minConfidence,
	}
}

// IsJustAFace flags a document image dominated by a single close-up face.
// Policy on internal fault or an unloaded detector: fail open (Passed=true)
// so a broken face detector never blocks a legitimate document; no
// detectable face also counts as "not just a face".
func (sc *StructureClassifier) IsJustAFace(img gocv.Mat) (result *types.FaceOnlyResult) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("face-only check fault: %v", r)
			result = &types.FaceOnlyResult{
				IsJustFace: false,
				Passed:     true,
				Error:      &msg,
			}
		}
	}()

	face, found, err := sc.detector.DetectLargest(img)
	if err != nil {
		msg := err.Error()
		return &types.FaceOnlyResult{
			IsJustFace: false,
			Passed:     true,
			Error:      &msg,
		}
	}
	if !found {
		return &types.FaceOnlyResult{
			IsJustFace: false,
			Reason:     "no face detected",
			Passed:     true,
		}
	}

	faceArea := float64(face.Dx() * face.Dy())
	imageArea := float64(img.Rows() * img.Cols())
	ratio := faceArea / imageArea

	isJustFace := ratio > sc.faceOnlyAreaRatio
	return &types.FaceOnlyResult{
		IsJustFace:    isJustFace,
		FaceAreaRatio: ratio,
		Passed:        !isJustFace,
	}
}

// detectCardEdges looks for large polygonal contours with 4-8 corners,
// the outline of a card or document against its background.
func (sc *StructureClassifier) detectCardEdges(img gocv.Mat) (feature types.CardEdgesFeature) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("card edge detection fault: %v", r)
			feature = types.CardEdgesFeature{Detected: false, Error: &msg}
		}
	}()

	gray := Grayscale(img)
	defer gray.Close()

	filtered := gocv.NewMat()
	defer filtered.Close()
	gocv.BilateralFilter(gray, &filtered, 9, 75, 75)

	// union of several Canny bands catches both crisp and soft card outlines
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(filtered, &edges, 30, 100)
	for _, band := range [][2]float32{{50, 150}, {100, 200}} {
		bandEdges := gocv.NewMat()
		gocv.Canny(filtered, &bandEdges, band[0], band[1])
		gocv.BitwiseOr(edges, bandEdges, &edges)
		bandEdges.Close()
	}

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	minArea := float64(img.Rows()*img.Cols()) * 0.05
	rectangles := 0
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		epsilon := 0.03 * gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, epsilon, true)
		corners := approx.Size()
		approx.Close()

		if corners >= 4 && corners <= 8 && gocv.ContourArea(contour) > minArea {
			rectangles++
		}
	}

	return types.CardEdgesFeature{
		Detected:        rectangles > 0,
		RectanglesFound: rectangles,
	}
}

// detectTextRegions merges characters into line blobs with a wide
// horizontal kernel and counts wide, flat bounding boxes.
func (sc *StructureClassifier) detectTextRegions(img gocv.Mat) (feature types.TextRegionsFeature) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("text region detection fault: %v", r)
			feature = types.TextRegionsFeature{HasTextRegions: false, Error: &msg}
		}
	}()

	gray := Grayscale(img)
	defer gray.Close()

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.AdaptiveThreshold(gray, &thresh, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, 11, 2)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(25, 3))
	defer kernel.Close()
	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(thresh, &dilated, kernel)

	contours := gocv.FindContours(dilated, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	textRegions := 0
	for i := 0; i < contours.Size(); i++ {
		rect := gocv.BoundingRect(contours.At(i))
		if rect.Dy() == 0 {
			continue
		}
		aspectRatio := float64(rect.Dx()) / float64(rect.Dy())
		if aspectRatio > 1.5 && rect.Dx() > 30 {
			textRegions++
		}
	}

	// documents carry multiple text lines
	return types.TextRegionsFeature{
		HasTextRegions:   textRegions >= 2,
		TextRegionsCount: textRegions,
	}
}

// detectSecurityFeatures masks the low-saturation/high-value HSV band where
// holograms and laminate glare live. Policy on grayscale input or internal
// fault: fail open (assume present).
func (sc *StructureClassifier) detectSecurityFeatures(img gocv.Mat) (feature types.SecurityFeature) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("security feature detection fault: %v", r)
			feature = types.SecurityFeature{Detected: true, Error: &msg}
		}
	}()

	if img.Channels() != 3 {
		return types.SecurityFeature{
			Detected: true,
			Reason:   "grayscale image - assumed present",
		}
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv, gocv.NewScalar(0, 0, 180, 0), gocv.NewScalar(180, 120, 255, 0), &mask)

	shinyPixels := gocv.CountNonZero(mask)
	totalPixels := mask.Rows() * mask.Cols()
	shinyRatio := float64(shinyPixels) / float64(totalPixels)

	// too little suggests no security feature, too much suggests glare or
	// a non-document surface
	detected := shinyRatio >= 0.005 && shinyRatio <= 0.15
	return types.SecurityFeature{
		Detected:   detected,
		ShinyRatio: shinyRatio,
	}
}

// detectPhotoRegion looks for a near-square contour occupying 5-30% of the
// frame, which is the portrait every identity document carries.
func (sc *StructureClassifier) detectPhotoRegion(img gocv.Mat) (feature types.PhotoRegionFeature) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("photo region detection fault: %v", r)
			feature = types.PhotoRegionFeature{Detected: false, Error: &msg}
		}
	}()

	gray := Grayscale(img)
	defer gray.Close()

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 100, 200)

	contours := gocv.FindContours(edges, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()

	imageArea := float64(img.Rows() * img.Cols())
	minArea := imageArea * 0.05
	maxArea := imageArea * 0.30

	candidates := 0
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area <= minArea || area >= maxArea {
			continue
		}
		rect := gocv.BoundingRect(contour)
		if rect.Dy() == 0 {
			continue
		}
		aspectRatio := float64(rect.Dx()) / float64(rect.Dy())
		if aspectRatio > 0.6 && aspectRatio < 1.5 {
			candidates++
		}
	}

	return types.PhotoRegionFeature{
		Detected:        candidates > 0,
		PhotoCandidates: candidates,
	}
}

// checkDocumentProportions accepts the landscape band common to cards and
// passports, or its reciprocal for rotated captures.
func (sc *StructureClassifier) checkDocumentProportions(img gocv.Mat) (feature types.ProportionsFeature) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("proportion check fault: %v", r)
			feature = types.ProportionsFeature{IsDocumentSized: false, Error: &msg}
		}
	}()

	height := img.Rows()
	width := img.Cols()
	if height == 0 {
		return types.ProportionsFeature{IsDocumentSized: false, Orientation: "unknown"}
	}
	aspectRatio := float64(width) / float64(height)

	isLandscape := aspectRatio >= 1.2 && aspectRatio <= 2.0
	isPortrait := aspectRatio >= 0.5 && aspectRatio <= 0.83

	orientation := "unknown"
	if isLandscape {
		orientation = "landscape"
	} else if isPortrait {
		orientation = "portrait"
	}

	return types.ProportionsFeature{
		IsDocumentSized: isLandscape || isPortrait,
		AspectRatio:     aspectRatio,
		Orientation:     orientation,
	}
}
