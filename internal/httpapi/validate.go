package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"bizu/backend/internal/combo"
	"bizu/backend/internal/logger"
	"bizu/backend/internal/saga"
	"bizu/backend/internal/service"
	"bizu/backend/internal/store"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is a struct; expose it as a number so gte and friends work.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

type validationError struct {
	Fields map[string]string
}

func (e *validationError) Error() string {
	return "validation failed"
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// decodeAndValidate reads the body into dest and checks its validate tags.
// Tag failures come back as *validationError keyed by JSON field path.
func decodeAndValidate(r *http.Request, dest any) error {
	if err := decodeJSON(r, dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(dest); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			ns := fe.Namespace()
			if i := strings.Index(ns, "."); i >= 0 {
				ns = ns[i+1:]
			}
			fields[ns] = fe.Tag()
		}
		return &validationError{Fields: fields}
	}
	return nil
}

// writeDecodeError answers a failed decodeAndValidate.
func writeDecodeError(w http.ResponseWriter, err error) {
	var verr *validationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
		return
	}
	writeError(w, http.StatusBadRequest, err)
}

// writeServiceError maps service and store errors onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	if pf, ok := saga.AsPartial(err); ok {
		// Some rows were written; the client must know which.
		logger.Log.Error().Err(err).Msg("write stopped midway")
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":       "operation stopped midway",
			"failed_step": pf.Failed,
			"completed":   pf.Completed,
			"policy":      pf.Policy.String(),
		})
		return
	}

	var missing *combo.MissingComponentError
	switch {
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, service.ErrInvalidPIN):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, combo.ErrUnknownBundle):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrInsufficientStock), errors.As(err, &missing):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
