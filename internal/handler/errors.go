package handler

import (
	"errors"
	"net/http"

	"cuentas/internal/service"

	"gorm.io/gorm"
)

// statusForError maps service sentinels to HTTP status codes. Everything
// unrecognized stays a 400 so form errors surface inline on the console.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrDuplicateInvoice):
		return http.StatusConflict
	case errors.Is(err, service.ErrUploadInFlight):
		return http.StatusConflict
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, service.ErrAttachmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
