package helper

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"todoapi/internal/adapter/http/validation"
	"todoapi/internal/core/domain"
	"todoapi/internal/core/model/response"
)

const internalErrorMessage = "An internal error occurred. Please try again later."

func SendSuccess(c *gin.Context, statusCode int, data any, message ...string) {
	response := response.SuccessResponse{
		Data: data,
	}

	if len(message) > 0 && message[0] != "" {
		response.Message = message[0]
	}

	c.JSON(statusCode, response)
}

func SendError(c *gin.Context, statusCode int, code string, errors []response.ValidationError, details ...any) {
	errorResponse := response.ErrorResponse{
		Error: response.ResponseError{
			Code:   code,
			Errors: errors,
		},
	}

	if len(details) > 0 {
		errorResponse.Error.Details = details[0]
	}

	c.JSON(statusCode, errorResponse)
}

// SendDomainError maps a classified error onto the wire. Storage failures
// never expose their cause.
func SendDomainError(c *gin.Context, err error) {
	dErr, ok := domain.AsError(err)
	if !ok {
		SendInternalError(c, internalErrorMessage)
		return
	}

	switch dErr.Kind {
	case domain.KindNotFound:
		SendError(c, http.StatusNotFound, string(domain.KindNotFound), []response.ValidationError{
			{Field: "id", Message: dErr.Message},
		}, gin.H{"id": dErr.TaskID})
	case domain.KindValidation:
		SendFieldError(c, fieldOrDefault(dErr.Field), dErr.Message)
	default:
		SendInternalError(c, internalErrorMessage)
	}
}

// SendBindingError reports a request that could not be decoded or bound.
func SendBindingError(c *gin.Context, err error) {
	if errs := validation.FormatValidationErrors(err); len(errs) > 0 {
		SendError(c, http.StatusUnprocessableEntity, string(domain.KindValidation), errs)
		return
	}

	SendFieldError(c, bindingField(err), bindingMessage(err))
}

func SendFieldError(c *gin.Context, field string, message string) {
	errors := []response.ValidationError{
		{
			Field:   field,
			Message: message,
		},
	}

	SendError(c, http.StatusUnprocessableEntity, string(domain.KindValidation), errors)
}

func SendInternalError(c *gin.Context, message string, details ...any) {
	errors := []response.ValidationError{
		{
			Field:   "server",
			Message: message,
		},
	}

	SendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", errors, details...)
}

func fieldOrDefault(field string) string {
	if field == "" {
		return "request"
	}
	return field
}

func bindingField(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr.Field
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return "query"
	}

	return "body"
}

func bindingMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return "Invalid value type, expected " + typeErr.Type.String()
	}

	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		return "Invalid timestamp, expected ISO 8601 format"
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "Malformed JSON body"
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return "Invalid query parameter value: " + numErr.Num
	}

	return "Invalid request parameters"
}
