package services

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrInvalidInput wraps validation failures of service inputs.
var ErrInvalidInput = errors.New("invalid input")

var validate = validator.New()

func check(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(ErrInvalidInput, err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" "+fe.Tag())
	}
	return errors.Wrap(ErrInvalidInput, strings.Join(fields, ", "))
}
