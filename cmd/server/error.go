package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/pkg/errors"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// fieldError rejects a request naming the offending field.
func fieldError(w http.ResponseWriter, field, reason string) {
	writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: reason, Field: field})
}

// internalError logs the cause chain under the request id and hides the
// detail from the client.
func internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log.Printf("%s: %+v", requestIDFrom(r.Context()), errors.Wrap(err, msg))
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: msg})
}
