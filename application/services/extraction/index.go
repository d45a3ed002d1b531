package extraction

import (
	"errors"

	"idgate.io/application/mrz"
	"idgate.io/infrastructure/logger"
	"gocv.io/x/gocv"
)

var ErrNoMRZFound = errors.New("no machine-readable zone could be extracted")

// TextReader produces OCR text renditions of a document image.
type TextReader interface {
	ReadVariants(img gocv.Mat) ([]string, error)
}

// ExtractionResult is the outcome of an MRZ extraction request.
type ExtractionResult struct {
	MRZDetected     bool          `json:"mrz_detected"`
	FieldsExtracted int           `json:"fields_extracted"`
	Document        *mrz.Document `json:"document,omitempty"`
}

// ExtractionService reads the machine-readable zone off a document image.
type ExtractionService struct {
	reader TextReader
}

func NewExtractionService(reader TextReader) *ExtractionService {
	return &ExtractionService{reader: reader}
}

// ExtractMRZ OCRs the image and parses every text rendition, keeping the
// parse with the most populated fields. Among equally populated parses the
// one with all check digits verified wins.
func (es *ExtractionService) ExtractMRZ(img gocv.Mat) (*ExtractionResult, error) {
	texts, err := es.reader.ReadVariants(img)
	if err != nil {
		return nil, err
	}

	var best *mrz.Document
	for _, text := range texts {
		doc, err := mrz.Parse(text)
		if err != nil {
			continue
		}
		if best == nil || betterParse(doc, best) {
			best = doc
		}
	}
	if best == nil {
		return nil, ErrNoMRZFound
	}

	logger.Info("MRZ extracted", logger.LoggerOptions{
		Key:  "format",
		Data: best.Format,
	}, logger.LoggerOptions{
		Key:  "fields",
		Data: best.FieldCount(),
	})
	return &ExtractionResult{
		MRZDetected:     true,
		FieldsExtracted: best.FieldCount(),
		Document:        best,
	}, nil
}

func betterParse(candidate, current *mrz.Document) bool {
	if candidate.FieldCount() != current.FieldCount() {
		return candidate.FieldCount() > current.FieldCount()
	}
	return candidate.CheckDigits.AllValid() && !current.CheckDigits.AllValid()
}
