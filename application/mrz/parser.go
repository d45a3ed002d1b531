// Package mrz parses the machine-readable zone printed on identity and
// travel documents per ICAO Doc 9303: TD1 (3 lines of 30), TD2 (2 lines of
// 36) and TD3 (2 lines of 44). Input is raw OCR text; the parser locates
// candidate lines itself.
package mrz

import (
	"errors"
	"strings"
)

var ErrNoMRZ = errors.New("no machine-readable zone found in text")

// Document holds the fields decoded from an MRZ. Dates are normalized to
// YYYYMMDD. CheckDigits reports per-field validity so callers can decide how
// much to trust an OCR read.
type Document struct {
	Format         string `json:"mrz_type"`
	DocumentType   string `json:"document_type"`
	IssuingCountry string `json:"issuing_country"`
	DocumentNumber string `json:"document_number"`
	Surname        string `json:"surname"`
	GivenNames     string `json:"given_names"`
	Nationality    string `json:"nationality"`
	Sex            string `json:"sex"`
	BirthDate      string `json:"birth_date"`
	ExpiryDate     string `json:"expiry_date"`
	PersonalNumber string `json:"personal_number,omitempty"`
	RawMRZ         string `json:"raw_mrz"`

	CheckDigits CheckDigits `json:"check_digits"`
}

// CheckDigits records the outcome of the ICAO 7-3-1 check-digit validation.
type CheckDigits struct {
	DocumentNumberValid bool `json:"document_number_valid"`
	BirthDateValid      bool `json:"birth_date_valid"`
	ExpiryDateValid     bool `json:"expiry_date_valid"`
	CompositeValid      bool `json:"composite_valid"`
}

// AllValid reports whether every check digit verified.
func (cd CheckDigits) AllValid() bool {
	return cd.DocumentNumberValid && cd.BirthDateValid && cd.ExpiryDateValid && cd.CompositeValid
}

// FieldCount counts the populated identity fields; used to rank competing
// OCR reads of the same document.
func (d *Document) FieldCount() int {
	count := 0
	for _, field := range []string{
		d.DocumentType, d.IssuingCountry, d.DocumentNumber, d.Surname,
		d.GivenNames, d.Nationality, d.Sex, d.BirthDate, d.ExpiryDate,
		d.PersonalNumber,
	} {
		if field != "" {
			count++
		}
	}
	return count
}

// Parse extracts the MRZ from raw OCR output. Lines shorter than the
// shortest format or containing characters outside the MRZ alphabet are
// discarded before format detection.
func Parse(text string) (*Document, error) {
	lines := candidateLines(text)
	if len(lines) < 2 {
		return nil, ErrNoMRZ
	}

	switch {
	case len(lines) >= 3 && len(lines[0]) == 30:
		return parseTD1(lines[:3])
	case len(lines[0]) == 44:
		return parseTD3(lines[:2])
	case len(lines[0]) == 36:
		return parseTD2(lines[:2])
	}
	return nil, ErrNoMRZ
}

func candidateLines(text string) []string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if len(line) < 30 || !isMRZAlphabet(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func isMRZAlphabet(line string) bool {
	for _, c := range line {
		if c == '<' || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

// parseTD1 decodes the 3x30 identity-card layout.
func parseTD1(lines []string) (*Document, error) {
	line1, line2, line3 := lines[0], lines[1], lines[2]
	if len(line2) != 30 || len(line3) != 30 {
		return nil, ErrNoMRZ
	}

	surname, givenNames := splitName(line3)
	doc := &Document{
		Format:         "TD1",
		DocumentType:   stripFiller(line1[0:2]),
		IssuingCountry: stripFiller(line1[2:5]),
		DocumentNumber: stripFiller(line1[5:14]),
		BirthDate:      normalizeDate(line2[0:6]),
		Sex:            stripFiller(line2[7:8]),
		ExpiryDate:     normalizeDate(line2[8:14]),
		Nationality:    stripFiller(line2[15:18]),
		PersonalNumber: stripFiller(line1[15:30]),
		Surname:        surname,
		GivenNames:     givenNames,
		RawMRZ:         strings.Join(lines, "\n"),
	}
	doc.CheckDigits = CheckDigits{
		DocumentNumberValid: verifyCheckDigit(line1[5:14], line1[14]),
		BirthDateValid:      verifyCheckDigit(line2[0:6], line2[6]),
		ExpiryDateValid:     verifyCheckDigit(line2[8:14], line2[14]),
		CompositeValid:      verifyCheckDigit(line1[5:30]+line2[0:7]+line2[8:15]+line2[18:29], line2[29]),
	}
	return doc, nil
}

// parseTD3 decodes the 2x44 passport layout.
func parseTD3(lines []string) (*Document, error) {
	line1, line2 := lines[0], lines[1]
	if len(line2) != 44 {
		return nil, ErrNoMRZ
	}

	surname, givenNames := splitName(line1[5:44])
	doc := &Document{
		Format:         "TD3",
		DocumentType:   stripFiller(line1[0:2]),
		IssuingCountry: stripFiller(line1[2:5]),
		Surname:        surname,
		GivenNames:     givenNames,
		DocumentNumber: stripFiller(line2[0:9]),
		Nationality:    stripFiller(line2[10:13]),
		BirthDate:      normalizeDate(line2[13:19]),
		Sex:            stripFiller(line2[20:21]),
		ExpiryDate:     normalizeDate(line2[21:27]),
		PersonalNumber: stripFiller(line2[28:42]),
		RawMRZ:         strings.Join(lines, "\n"),
	}
	doc.CheckDigits = CheckDigits{
		DocumentNumberValid: verifyCheckDigit(line2[0:9], line2[9]),
		BirthDateValid:      verifyCheckDigit(line2[13:19], line2[19]),
		ExpiryDateValid:     verifyCheckDigit(line2[21:27], line2[27]),
		CompositeValid:      verifyCheckDigit(line2[0:10]+line2[13:20]+line2[21:43], line2[43]),
	}
	return doc, nil
}

// parseTD2 decodes the 2x36 travel-document layout.
func parseTD2(lines []string) (*Document, error) {
	line1, line2 := lines[0], lines[1]
	if len(line2) != 36 {
		return nil, ErrNoMRZ
	}

	surname, givenNames := splitName(line1[5:36])
	doc := &Document{
		Format:         "TD2",
		DocumentType:   stripFiller(line1[0:2]),
		IssuingCountry: stripFiller(line1[2:5]),
		Surname:        surname,
		GivenNames:     givenNames,
		DocumentNumber: stripFiller(line2[0:9]),
		Nationality:    stripFiller(line2[10:13]),
		BirthDate:      normalizeDate(line2[13:19]),
		Sex:            stripFiller(line2[20:21]),
		ExpiryDate:     normalizeDate(line2[21:27]),
		PersonalNumber: stripFiller(line2[28:35]),
		RawMRZ:         strings.Join(lines, "\n"),
	}
	doc.CheckDigits = CheckDigits{
		DocumentNumberValid: verifyCheckDigit(line2[0:9], line2[9]),
		BirthDateValid:      verifyCheckDigit(line2[13:19], line2[19]),
		ExpiryDateValid:     verifyCheckDigit(line2[21:27], line2[27]),
		CompositeValid:      verifyCheckDigit(line2[0:10]+line2[13:20]+line2[21:35], line2[35]),
	}
	return doc, nil
}

// splitName decodes the SURNAME<<GIVEN<NAMES field.
func splitName(field string) (surname string, givenNames string) {
	parts := strings.SplitN(field, "<<", 2)
	surname = strings.TrimSpace(strings.ReplaceAll(parts[0], "<", " "))
	if len(parts) == 2 {
		givenNames = strings.TrimSpace(strings.ReplaceAll(parts[1], "<", " "))
		givenNames = strings.Join(strings.Fields(givenNames), " ")
	}
	return surname, givenNames
}

func stripFiller(field string) string {
	return strings.TrimSpace(strings.ReplaceAll(field, "<", ""))
}

// normalizeDate converts MRZ YYMMDD to YYYYMMDD. Two-digit years through 50
// map to 2000s, the rest to 1900s.
func normalizeDate(date string) string {
	if len(date) != 6 {
		return stripFiller(date)
	}
	for _, c := range date {
		if c < '0' || c > '9' {
			return stripFiller(date)
		}
	}
	year := int(date[0]-'0')*10 + int(date[1]-'0')
	century := "19"
	if year <= 50 {
		century = "20"
	}
	return century + date
}

// charValue maps the MRZ alphabet onto check-digit values: digits as
// themselves, A through Z as 10 through 35, filler as 0.
func charValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 0
	}
}

// verifyCheckDigit validates a field against its check digit using the ICAO
// repeating 7-3-1 weighting.
func verifyCheckDigit(field string, check byte) bool {
	if check < '0' || check > '9' {
		return false
	}
	weights := [3]int{7, 3, 1}
	sum := 0
	for i := 0; i < len(field); i++ {
		sum += charValue(field[i]) * weights[i%3]
	}
	return sum%10 == int(check-'0')
}
