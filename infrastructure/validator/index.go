package validator

func init() {
	validate.RegisterValidation("base64image", validateBase64Image)
	validate.RegisterValidation("date_layout", validateDateLayout)
}

type Validator struct{}

func (v *Validator) ValidateStruct(payload interface{}) *[]error {
	return validateStruct(payload)
}

func (v *Validator) ValidateValue(value any, rules string) error {
	return validateField(value, rules)
}

var ValidatorInstance = Validator{}
