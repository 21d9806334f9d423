package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate — общий экземпляр валидатора (потокобезопасен, кэширует структуры).
var validate = newValidator()

// rgbColorRe — только полная форма #RRGGBB; hexcolor пропускает и #RGB.
var rgbColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("rgbcolor", func(fl validator.FieldLevel) bool {
		return rgbColorRe.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// validateStruct проверяет теги validate и сводит ошибки полей
// в одну ErrValidation.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

// validateVar проверяет одно значение по тегу.
func validateVar(field string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("%w: %s: %s", ErrValidation, field, ruleText(fieldErrs[0].Tag(), fieldErrs[0].Param()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, field)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	return fe.Field() + ": " + ruleText(fe.Tag(), fe.Param())
}

// ruleText — человекочитаемое описание нарушенного правила.
func ruleText(tag, param string) string {
	switch tag {
	case "required":
		return "обязательное поле"
	case "email":
		return "некорректный адрес электронной почты"
	case "max":
		return "не длиннее " + param
	case "min":
		return "не меньше " + param
	case "gt":
		return "должно быть больше " + param
	case "oneof":
		return "допустимые значения: " + param
	case "rgbcolor":
		return "ожидается цвет в формате #RRGGBB"
	default:
		return "не прошло проверку " + tag
	}
}
