package ocr

import (
	"errors"

	"idgate.io/infrastructure/logger"
	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// the MRZ strip uses a restricted monospace alphabet
const mrzWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789<"

// MRZReader recognizes machine-readable-zone text via Tesseract. A
// Tesseract client is not safe for concurrent use, so each call builds its
// own short-lived client.
type MRZReader struct {
	tessdataPrefix string
}

// NewMRZReader creates a reader using the given tessdata directory.
func NewMRZReader(tessdataPrefix string) *MRZReader {
	return &MRZReader{tessdataPrefix: tessdataPrefix}
}

// ReadVariants runs OCR over several preprocessed renditions of the image
// and returns the recognized text of each. Document photos vary widely in
// contrast and noise; one variant usually reads cleanly where the others do
// not, and the caller picks the best parse.
func (r *MRZReader) ReadVariants(img gocv.Mat) ([]string, error) {
	if img.Empty() {
		return nil, errors.New("cannot read MRZ from empty image")
	}

	var gray gocv.Mat
	if img.Channels() == 3 {
		gray = gocv.NewMat()
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	} else {
		gray = img.Clone()
	}
	defer gray.Close()

	enhanced := gocv.NewMat()
	clahe := gocv.NewCLAHE()
	clahe.Apply(gray, &enhanced)
	clahe.Close()
	defer enhanced.Close()

	binary := gocv.NewMat()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
	defer binary.Close()

	variants := []struct {
		name string
		mat  gocv.Mat
	}{
		{"grayscale", gray},
		{"contrast_enhanced", enhanced},
		{"binary_otsu", binary},
	}

	client := gosseract.NewClient()
	defer client.Close()
	if r.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(r.tessdataPrefix); err != nil {
			return nil, err
		}
	}
	if err := client.SetLanguage("eng"); err != nil {
		return nil, err
	}
	if err := client.SetWhitelist(mrzWhitelist); err != nil {
		return nil, err
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(variants))
	for _, variant := range variants {
		text, err := r.recognize(client, variant.mat)
		if err != nil {
			logger.Warning("OCR variant failed", logger.LoggerOptions{
				Key:  variant.name,
				Data: err.Error(),
			})
			continue
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return nil, errors.New("no text recognized in any image variant")
	}
	return texts, nil
}

func (r *MRZReader) recognize(client *gosseract.Client, img gocv.Mat) (string, error) {
	encoded, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		return "", err
	}
	defer encoded.Close()

	if err := client.SetImageFromBytes(encoded.GetBytes()); err != nil {
		return "", err
	}
	return client.Text()
}
