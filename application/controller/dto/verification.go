package dto

// VerifyIdentityDTO is the payload of the verification endpoint. Images are
// base64, raw or data-URL. The date fields are optional structured document
// data that unlock the extra authenticity checks.
type VerifyIdentityDTO struct {
	DocumentImage string `json:"document_image" validate:"required,base64image"`
	SelfieImage   string `json:"selfie_image" validate:"required,base64image"`
	BirthDate     string `json:"birth_date" validate:"omitempty,date_layout"`
	ExpiryDate    string `json:"expiry_date" validate:"omitempty,date_layout"`
}

// ExtractMRZDTO is the payload of the MRZ extraction endpoint.
type ExtractMRZDTO struct {
	DocumentImage string `json:"document_image" validate:"required,base64image"`
}
