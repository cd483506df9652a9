package middleware

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/lts-health/exams-api/internal/model"
)

var examNumberPattern = regexp.MustCompile(`^[A-Z0-9]{20}$`)

// RegisterValidators installs the domain validation tags on gin's
// binding engine and makes validator errors report JSON field names.
// Call once before routes are registered.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	must(v.RegisterValidation("exam_status", func(fl validator.FieldLevel) bool {
		return model.ValidateExamStatus(fl.Field().String()) == nil
	}))
	must(v.RegisterValidation("scheduling_status", func(fl validator.FieldLevel) bool {
		return model.ValidateSchedulingStatus(fl.Field().String()) == nil
	}))
	must(v.RegisterValidation("exam_number", func(fl validator.FieldLevel) bool {
		return examNumberPattern.MatchString(fl.Field().String())
	}))

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
