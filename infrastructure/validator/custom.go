package validator

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validateStruct(payload interface{}) *[]error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	errs := []error{}
	for _, fieldErr := range err.(validator.ValidationErrors) {
		errs = append(errs, fmt.Errorf("%s failed validation for rule %s", fieldErr.Field(), fieldErr.Tag()))
	}
	return &errs
}

func validateField(value any, rules string) error {
	return validate.Var(value, rules)
}

// validateBase64Image accepts raw base64 or a data URL image payload.
func validateBase64Image(fl validator.FieldLevel) bool {
	payload := fl.Field().String()
	if idx := strings.Index(payload, ";base64,"); idx != -1 {
		payload = payload[idx+len(";base64,"):]
	}
	if len(payload) < 100 {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(payload)
	return err == nil
}

// validateDateLayout accepts the date layouts document fields arrive in.
func validateDateLayout(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, layout := range []string{"20060102", "02012006", "2006-01-02"} {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}
