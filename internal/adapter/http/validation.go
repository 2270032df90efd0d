package http

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/simaogato/ledgerflow-backend/internal/domain"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the ledger_kind and ledger_category rules to gin's
// validator. It is safe to call more than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin binding validator is not go-playground/validator")
			return
		}
		v.RegisterTagNameFunc(fieldName)
		if err := v.RegisterValidation("ledger_kind", validKind); err != nil {
			registerErr = err
			return
		}
		registerErr = v.RegisterValidation("ledger_category", validCategory)
	})
	return registerErr
}

func validKind(fl validator.FieldLevel) bool {
	_, err := domain.ParseKind(fl.Field().String())
	return err == nil
}

func validCategory(fl validator.FieldLevel) bool {
	_, err := domain.ParseCategory(fl.Field().String())
	return err == nil
}

// fieldName reports fields by their json or query name.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}
