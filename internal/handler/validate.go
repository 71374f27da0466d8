package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared request validator. Field names in error maps come
// from the json tag, not the Go field name.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// decodeAndValidate decodes the JSON body into dst and runs struct tag
// validation. On failure it writes the field error response and returns
// false; handlers just return.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		fields := make(map[string][]string)
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = append(fields[fe.Field()], validationMessage(fe))
			}
		} else {
			fields["body"] = []string{"invalid request"}
		}
		writeFieldErrors(w, http.StatusBadRequest, fields)
		return false
	}

	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "datetime":
		return "use the format YYYY-MM-DD"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
