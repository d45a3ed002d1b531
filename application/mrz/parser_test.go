package mrz

import "testing"

const passportMRZ = "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<\nL898902C36UTO7408122F1204159ZE184226B<<<<<10"

const idCardMRZ = "I<UTOD231458907<<<<<<<<<<<<<<<\n7408122M1204159UTO<<<<<<<<<<<6\nERIKSSON<<ANNA<MARIA<<<<<<<<<<"

func TestParseTD3Passport(t *testing.T) {
	doc, err := Parse(passportMRZ)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if doc.Format != "TD3" {
		t.Errorf("format = %s, want TD3", doc.Format)
	}
	if doc.DocumentType != "P" {
		t.Errorf("document type = %s, want P", doc.DocumentType)
	}
	if doc.IssuingCountry != "UTO" || doc.Nationality != "UTO" {
		t.Errorf("country/nationality = %s/%s, want UTO/UTO", doc.IssuingCountry, doc.Nationality)
	}
	if doc.Surname != "ERIKSSON" {
		t.Errorf("surname = %s, want ERIKSSON", doc.Surname)
	}
	if doc.GivenNames != "ANNA MARIA" {
		t.Errorf("given names = %q, want %q", doc.GivenNames, "ANNA MARIA")
	}
	if doc.DocumentNumber != "L898902C3" {
		t.Errorf("document number = %s, want L898902C3", doc.DocumentNumber)
	}
	if doc.Sex != "F" {
		t.Errorf("sex = %s, want F", doc.Sex)
	}
	if doc.BirthDate != "19740812" {
		t.Errorf("birth date = %s, want 19740812", doc.BirthDate)
	}
	if doc.ExpiryDate != "20120415" {
		t.Errorf("expiry date = %s, want 20120415", doc.ExpiryDate)
	}
	if doc.PersonalNumber != "ZE184226B" {
		t.Errorf("personal number = %s, want ZE184226B", doc.PersonalNumber)
	}
	if !doc.CheckDigits.AllValid() {
		t.Errorf("all check digits should verify, got %+v", doc.CheckDigits)
	}
}

func TestParseTD1IDCard(t *testing.T) {
	doc, err := Parse(idCardMRZ)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if doc.Format != "TD1" {
		t.Errorf("format = %s, want TD1", doc.Format)
	}
	if doc.DocumentType != "I" {
		t.Errorf("document type = %s, want I", doc.DocumentType)
	}
	if doc.DocumentNumber != "D23145890" {
		t.Errorf("document number = %s, want D23145890", doc.DocumentNumber)
	}
	if doc.Surname != "ERIKSSON" || doc.GivenNames != "ANNA MARIA" {
		t.Errorf("name = %s / %s, want ERIKSSON / ANNA MARIA", doc.Surname, doc.GivenNames)
	}
	if doc.Sex != "M" {
		t.Errorf("sex = %s, want M", doc.Sex)
	}
	if doc.BirthDate != "19740812" || doc.ExpiryDate != "20120415" {
		t.Errorf("dates = %s / %s", doc.BirthDate, doc.ExpiryDate)
	}
	if !doc.CheckDigits.AllValid() {
		t.Errorf("all check digits should verify, got %+v", doc.CheckDigits)
	}
}

func TestParseCorruptCheckDigitReported(t *testing.T) {
	// document number check digit flipped from 6 to 7
	corrupted := "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<\nL898902C37UTO7408122F1204159ZE184226B<<<<<10"
	doc, err := Parse(corrupted)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if doc.CheckDigits.DocumentNumberValid {
		t.Error("corrupted document-number check digit must not verify")
	}
	if !doc.CheckDigits.BirthDateValid || !doc.CheckDigits.ExpiryDateValid {
		t.Error("untouched check digits must still verify")
	}
	if doc.DocumentNumber != "L898902C3" {
		t.Error("fields are still decoded even when a check digit fails")
	}
}

func TestParseIgnoresSurroundingOCRNoise(t *testing.T) {
	noisy := "REPUBLIC OF UTOPIA\npassport no 1234\n" + passportMRZ + "\nsignature"
	doc, err := Parse(noisy)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Format != "TD3" || doc.Surname != "ERIKSSON" {
		t.Errorf("unexpected parse of noisy text: %+v", doc)
	}
}

func TestParseRejectsTextWithoutMRZ(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"prose", "this receipt contains no machine readable zone at all"},
		{"single line", "L898902C36UTO7408122F1204159ZE184226B<<<<<10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.text); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestNormalizeDateCenturyPivot(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"500101", "20500101"},
		{"510101", "19510101"},
		{"990215", "19990215"},
		{"000215", "20000215"},
	}
	for _, tt := range tests {
		if got := normalizeDate(tt.in); got != tt.want {
			t.Errorf("normalizeDate(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFieldCount(t *testing.T) {
	doc, err := Parse(passportMRZ)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := doc.FieldCount(); got != 10 {
		t.Errorf("FieldCount = %d, want 10", got)
	}
}
