package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"
)

// ApiResponse wraps data in the format expected by the frontend.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteYAML writes a YAML response and returns any encoding error.
// Data is marshaled before the status is written so a failure can still
// be reported as a JSON error.
func WriteYAML(w http.ResponseWriter, statusCode int, data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/yaml")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	_, err = w.Write(out)
	return err
}

// decodeJSON decodes a request body into v. Numbers are kept as json.Number
// so integer parameters do not lose precision through float64. An empty body
// leaves v unchanged.
func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil && err != io.EOF {
		return err
	}
	return nil
}
