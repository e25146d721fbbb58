package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"photogallery/internal/domain/gallery"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("section_type", func(fl validator.FieldLevel) bool {
		return gallery.SectionType(fl.Field().String()).Valid()
	})
}

// Validate checks struct tags and returns field -> failed tag, keyed by the
// field's json name. Nil means valid.
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errors["_"] = err.Error()
		return errors
	}
	for _, err := range verrs {
		errors[err.Field()] = err.Tag()
	}
	return errors
}
