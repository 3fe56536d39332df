package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	var errMsgs []string
	for _, err := range verrs {
		errMsgs = append(errMsgs, fmt.Sprintf(
			"Field: %s, Tag: %s, Param: %s", err.Namespace(), err.Tag(), err.Param(),
		))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(errMsgs, "; "))
}
