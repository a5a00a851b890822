package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"clientdesk/models"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

func init() {
	Validate = validator.New()
	// report fields by their JSON name
	Validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// DecodeAndValidate decodes the request body into v and validates it. On
// failure the error response has already been written.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		HandleMessageResponse(w, "Invalid request body", http.StatusBadRequest)
		return err
	}
	return ValidateStruct(w, v)
}

// ValidateStruct validates v and writes a field-keyed error response.
func ValidateStruct(w http.ResponseWriter, v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		HandleMessageResponse(w, err.Error(), http.StatusBadRequest)
		return err
	}
	HandleValidationResponse(w, http.StatusBadRequest, FieldMessages(validationErrors))
	return err
}

// FieldMessages turns validator failures into readable per-field messages.
func FieldMessages(errs validator.ValidationErrors) map[string]string {
	messages := make(map[string]string, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "required":
			messages[e.Field()] = "is required"
		case "email":
			messages[e.Field()] = "must be a valid email address"
		case "min":
			messages[e.Field()] = fmt.Sprintf("must be at least %s", e.Param())
		case "max":
			messages[e.Field()] = fmt.Sprintf("must be at most %s", e.Param())
		case "oneof":
			messages[e.Field()] = fmt.Sprintf("must be one of: %s", e.Param())
		default:
			messages[e.Field()] = e.Tag()
		}
	}
	return messages
}

func HandleMessageResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, models.NewMessageResponse(statusCode, message))
}

func HandleValidationResponse(w http.ResponseWriter, statusCode int, validationErrors map[string]string) {
	writeJSON(w, statusCode, models.NewValidationResponse(statusCode, validationErrors))
}

func HandleDataResponse(w http.ResponseWriter, message string, data any, statusCode int) {
	writeJSON(w, statusCode, models.NewDataResponse(statusCode, message, data))
}

// HandleListResponse is HandleDataResponse with an item count.
func HandleListResponse(w http.ResponseWriter, message string, data any, count int) {
	writeJSON(w, http.StatusOK, models.NewListResponse(http.StatusOK, message, data, count))
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
