package validation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"blog/pkg/common"
	"blog/pkg/logger"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Errors struct {
	Errors []FieldError `json:"errors"`
}

type bodyKey[T any] struct{}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() == reflect.Ptr {
			if f.IsNil() {
				return false
			}
			f = f.Elem()
		}
		return strings.TrimSpace(f.String()) != ""
	})
	return v
}

// Struct validates s and returns one FieldError per failed field, or nil.
func Struct(s interface{}) []FieldError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Message: err.Error()}}
	}

	res := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		res = append(res, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return res
}

func message(fe validator.FieldError) string {
	name := fe.Field()
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	switch fe.Tag() {
	case "required", "notblank":
		return name + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "email":
		return name + " must be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return name + " must be a valid URL"
	}
	return name + " is invalid"
}

// Body decodes the JSON request body into T and validates it. On success the
// value is available to the next handler through FromContext.
func Body[T any](next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		form := new(T)
		if err := common.ParseReqBody(r.Body, form); err != nil {
			logger.Log(r.Context()).Infof("can't parse request body: %v", err)
			common.WriteMsg(w, "bad request format", http.StatusBadRequest)
			return
		}

		if errs := Struct(form); errs != nil {
			common.WriteJSON(w, Errors{Errors: errs}, http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), bodyKey[T]{}, form)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func FromContext[T any](ctx context.Context) (*T, bool) {
	form, ok := ctx.Value(bodyKey[T]{}).(*T)
	return form, ok
}
