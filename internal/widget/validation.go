package widget

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SearchRequest is a submitted city; validated after trimming.
type SearchRequest struct {
	City string `json:"city" validate:"required,min=2"`
}

// validateCity trims city and returns it, or the validation SearchError.
func validateCity(city string) (string, *SearchError) {
	req := SearchRequest{City: strings.TrimSpace(city)}

	err := validate.Struct(req)
	if err == nil {
		return req.City, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "", &SearchError{Kind: KindValidation, Message: MsgEmptyCity, Cause: err}
	}

	switch fieldErrs[0].Tag() {
	case "min":
		return "", &SearchError{Kind: KindValidation, Message: MsgCityTooShort, Cause: err}
	default:
		return "", &SearchError{Kind: KindValidation, Message: MsgEmptyCity, Cause: err}
	}
}
