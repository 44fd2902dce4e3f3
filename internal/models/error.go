package models

import (
	"errors"
	"fmt"
)

// ErrorCode representa el código de error
type ErrorCode string

const (
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrorCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrorCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrorCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrorCodeInternal       ErrorCode = "INTERNAL"
)

// ErrorDetail representa un detalle específico del error
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ErrorResponse representa la respuesta de error estandarizada
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo representa la información del error
type ErrorInfo struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// APIError es el error tipado que devuelven los servicios
type APIError struct {
	Code    ErrorCode
	Message string
	Details []ErrorDetail
	// UpstreamStatus es el status devuelto por el backend, 0 si el error no vino de ahí
	UpstreamStatus int
	Err            error
}

// Error implementa la interfaz error
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap expone la causa original
func (e *APIError) Unwrap() error {
	return e.Err
}

// Response construye el cuerpo de error que ve el cliente
func (e *APIError) Response() ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(e.Code),
			Message: e.Message,
			Details: e.Details,
		},
	}
}

// NewAPIError crea un nuevo error tipado
func NewAPIError(code ErrorCode, message string, err error) *APIError {
	return &APIError{Code: code, Message: message, Err: err}
}

// NewUnauthorizedError crea un error de autenticación
func NewUnauthorizedError(message string) *APIError {
	return NewAPIError(ErrorCodeUnauthorized, message, nil)
}

// NewNotFoundError crea un error de recurso no encontrado
func NewNotFoundError(message string, err error) *APIError {
	return NewAPIError(ErrorCodeNotFound, message, err)
}

// NewBadRequestError crea un error de operación fallida contra el backend
func NewBadRequestError(message string, err error) *APIError {
	return NewAPIError(ErrorCodeBadRequest, message, err)
}

// NewValidationError crea un error de validación con detalles
func NewValidationError(message string, details []ErrorDetail) *APIError {
	e := NewAPIError(ErrorCodeInvalidRequest, message, nil)
	e.Details = details
	return e
}

// NewInternalError crea un error interno del servidor
func NewInternalError(message string, err error) *APIError {
	return NewAPIError(ErrorCodeInternal, message, err)
}

// AsAPIError convierte cualquier error en APIError, INTERNAL por defecto
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternalError("Error inesperado", err)
}

// IsCode informa si err es un APIError con el código indicado
func IsCode(err error, code ErrorCode) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
