package handler

import (
	"errors"
	"sync"

	"github.com/SergeiKhy/shortlink/internal/shortcode"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators добавляет в валидатор gin теги shortcode и httpurl
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
			return shortcode.Validate(fl.Field().String())
		})
		_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
			return shortcode.IsSafeTarget(fl.Field().String())
		})
	})
}

// bindingError превращает ошибку биндинга в код и сообщение для клиента
func bindingError(err error) (string, string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return codeInvalidRequest, msgMalformedBody
	}

	fe := verrs[0]
	switch fe.StructField() {
	case "TargetURL":
		if fe.Tag() == "required" {
			return codeInvalidURL, msgTargetRequired
		}
		raw, _ := fe.Value().(string)
		if errors.Is(shortcode.ValidateTarget(raw), shortcode.ErrUnsafeScheme) {
			return codeInvalidURL, msgUnsafeScheme
		}
		return codeInvalidURL, msgInvalidURL
	case "Code":
		return codeInvalidCode, msgInvalidCode
	default:
		return codeInvalidRequest, fe.Error()
	}
}
