package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/backoffice/internal/domain"
)

const dateLayout = "2006-01-02"

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their wire names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// decimal.Decimal is a struct, so the builtin numeric tags do not apply.
	if err := v.RegisterValidation("positive_decimal", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && d.IsPositive()
	}); err != nil {
		panic(err)
	}
	return v
}

var fieldMessages = map[string]string{
	"required":         "Este campo é obrigatório.",
	"max":              "Certifique-se de que este campo não tenha mais de %s caracteres.",
	"gt":               "Certifique-se de que este valor seja maior que %s.",
	"gte":              "Certifique-se de que este valor seja maior ou igual a %s.",
	"oneof":            "Escolha uma opção válida: %s.",
	"datetime":         "Data em formato inválido. Use AAAA-MM-DD.",
	"positive_decimal": "O valor deve ser maior que zero.",
}

// decodeAndValidate unmarshals body into dst and runs its validate tags.
// Failures come back as domain validation errors.
func (h *Handler) decodeAndValidate(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return domain.Validation(typeErr.Field, "Tipo de dado inválido.")
		}
		return domain.Validation("", "JSON inválido.")
	}

	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			msg, ok := fieldMessages[fe.Tag()]
			if !ok {
				msg = "Valor inválido."
			}
			if strings.Contains(msg, "%s") {
				msg = fmt.Sprintf(msg, fe.Param())
			}
			return domain.Validation(fe.Field(), msg)
		}
		return domain.Validation("", "Requisição inválida.")
	}
	return nil
}
