package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/pkg/utils"
	"github.com/odiabackend099/callwaiting/internal/pkg/validator"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

// decodeAndValidate reads a JSON body into dst and runs its validate tags
func decodeAndValidate(w http.ResponseWriter, r *http.Request, val *validator.Validator, dst interface{}) *errors.AppError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.BadRequest("Request body is required")
		}
		return errors.BadRequest("Invalid request body")
	}

	if errs := val.Validate(dst); len(errs) > 0 {
		return errors.ValidationError("Validation failed", errs)
	}
	return nil
}

// accountID returns the {id} route parameter
func accountID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// respondServiceError writes err, logging only unexpected failures
func respondServiceError(w http.ResponseWriter, log *logger.Logger, err error, msg string) {
	switch errors.CodeOf(err) {
	case errors.ErrCodeNotFound, errors.ErrCodeValidation, errors.ErrCodeBadRequest, errors.ErrCodeConflict,
		errors.ErrCodeQuotaExceeded, errors.ErrCodeTrialExpired, errors.ErrCodeTrialExhausted, errors.ErrCodeEligibilityUnknown:
	default:
		log.ErrorWithErr(err, msg)
	}
	utils.WriteAnyError(w, err)
}
