// Package validation envolve o go-playground/validator e traduz as falhas para apperror.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperror "gowatch/internal/errors"
)

// Validator é seguro para uso concorrente (o validator faz cache das structs).
type Validator struct {
	v *validator.Validate
}

// New usa o nome da tag json nas mensagens.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Struct valida s e devolve um ValidationError com a primeira falha encontrada.
func (val *Validator) Struct(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.NewValidationError("Payload inválido.")
	}
	return apperror.NewValidationError(describe(fieldErrs[0]))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("O campo '%s' é obrigatório.", field)
	case "email":
		return fmt.Sprintf("O campo '%s' deve ser um email válido.", field)
	case "max":
		return fmt.Sprintf("O campo '%s' deve ter no máximo %s caracteres.", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("O campo '%s' deve ser um de: %s.", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("O campo '%s' é inválido.", field)
	}
}
