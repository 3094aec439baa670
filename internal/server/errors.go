package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/matthieukhl/backoffice/internal/apperr"
	"go.uber.org/zap"
)

var registerTagName sync.Once

// useJSONFieldNames makes validator report fields by their json name
func useJSONFieldNames() {
	registerTagName.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindJSON decodes the request body into dst and converts binding failures
// into a field-keyed ValidationError
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var (
		verrs     validator.ValidationErrors
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &verrs):
		ve := &apperr.ValidationError{}
		for _, fe := range verrs {
			ve.Add(fieldPath(fe), fieldMessage(fe))
		}
		return ve
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "non_field_errors"
		}
		return apperr.NewValidationError(field, fmt.Sprintf("Expected %s.", typeErr.Type.Kind()))
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return apperr.NewValidationError("non_field_errors", "Malformed JSON body.")
	default:
		return apperr.NewValidationError("non_field_errors", err.Error())
	}
}

// fieldPath turns "createOrderRequest.items[0].product" into "items[0].product"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("\"%v\" is not a valid choice.", fe.Value())
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}

// pathID parses the :id route parameter. A malformed id is reported as not found.
func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id %q: %w", c.Param("id"), apperr.ErrNotFound)
	}
	return id, nil
}

// queryID parses an optional numeric filter. Absent values are 0.
func queryID(c *gin.Context, key string) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.NewValidationError(key, "Enter a whole number.")
	}
	return id, nil
}

// writeError renders err with the status its kind maps to
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		ve       *apperr.ValidationError
		stockErr *apperr.InsufficientStockError
	)
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "insufficient_stock",
			"product":   stockErr.ProductID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
			"message":   stockErr.Error(),
		})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"fields": ve.Fields,
		})
	case errors.Is(err, apperr.ErrAuthenticationRequired):
		c.Header("WWW-Authenticate", "Token")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":  "authentication_required",
			"detail": detail(err, "Authentication credentials were not provided."),
		})
	case errors.Is(err, apperr.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{
			"error":  "permission_denied",
			"detail": detail(err, "You do not have permission to perform this action."),
		})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "not_found",
			"detail": "Not found.",
		})
	default:
		s.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
	c.Abort()
}

// detail returns the wrapping message of a sentinel error, or def for the bare sentinel
func detail(err error, def string) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i > 0 {
		return msg[:i]
	}
	return def
}
