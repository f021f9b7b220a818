// Package handler provides the HTTP handlers of the healthbridge snapshot API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/healthbridge/healthbridge/internal/api/models"
	"github.com/healthbridge/healthbridge/internal/api/response"
	"github.com/healthbridge/healthbridge/internal/healthdata"
)

const maxBodyBytes = 1 << 20

// readBody reads at most maxBodyBytes of the request body. It writes the
// error response itself and reports false on failure.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.BadRequest(w, r, "request body too large", nil)
		} else {
			response.BadRequest(w, r, "could not read request body", nil)
		}
		return nil, false
	}
	return body, true
}

// decodeJSON strictly decodes the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		response.BadRequest(w, r, "invalid JSON body: "+err.Error(), nil)
		return false
	}
	return true
}

// dataTypeParam resolves the {dataType} path segment.
func dataTypeParam(w http.ResponseWriter, r *http.Request) (healthdata.DataType, bool) {
	raw := chi.URLParam(r, "dataType")
	dt, err := healthdata.ParseDataType(raw)
	if err != nil {
		response.BadRequest(w, r, "unknown data type "+raw, []models.FieldError{
			{Field: "dataType", Message: "unknown data type", Code: "UNKNOWN"},
		})
		return "", false
	}
	return dt, true
}
