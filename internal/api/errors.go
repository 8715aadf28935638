package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/UnknownOlympus/locator/internal/geocoding"
	"github.com/UnknownOlympus/locator/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// FieldError is one entry of a 422 response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type validationResponse struct {
	Errors []FieldError `json:"errors"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// fieldErrors turns binding errors into client facing messages.
func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldName(fe.Namespace()), Message: fieldMessage(fe)})
	}

	return out
}

// fieldName drops the struct name and embedded unexported structs from a
// validator namespace: "batchRequest.Items[0].Country" becomes "items[0].country"
// and "geocodeQuery.addressQuery.Street" becomes "street".
func fieldName(namespace string) string {
	segments := strings.Split(namespace, ".")
	if len(segments) > 1 {
		segments = segments[1:]
	}

	kept := segments[:0]
	for _, segment := range segments {
		if segment != "" && unicode.IsLower([]rune(segment)[0]) {
			continue
		}
		kept = append(kept, segment)
	}

	return strings.ToLower(strings.Join(kept, "."))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s long", fe.Param())
	case "max":
		return fmt.Sprintf("cannot be longer than %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the %q rule", fe.Tag())
	}
}

// writeError maps an error onto a status code and a JSON body.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case service.IsValidationError(err):
		c.JSON(http.StatusUnprocessableEntity, validationResponse{Errors: []FieldError{{Field: "address", Message: err.Error()}}})
	case geocoding.IsConfigurationError(err):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case geocoding.IsProviderError(err):
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		h.log.ErrorContext(c.Request.Context(), "Request failed", "error", err, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
