package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// getIntParam retrieves an integer query parameter with default value and optional range validation
func getIntParam(r *http.Request, key string, defaultVal int, minVal, maxVal *int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}

	if minVal != nil && val < *minVal {
		return defaultVal
	}
	if maxVal != nil && val > *maxVal {
		return defaultVal
	}

	return val
}

// getTimeParam retrieves an RFC3339 timestamp query parameter; zero time when absent or malformed
func getTimeParam(r *http.Request, key string) time.Time {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return time.Time{}
	}

	val, err := time.Parse(time.RFC3339, valStr)
	if err != nil {
		return time.Time{}
	}
	return val
}

// getCSVParam retrieves a comma-separated list query parameter
func getCSVParam(r *http.Request, key string) []string {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return nil
	}

	parts := strings.Split(valStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

// writeJSON serializes payload with the given status code
func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("⚠️  Failed to encode response: %v", err)
	}
}

// respondWithError logs the error and sends a JSON error response
// Use this to avoid exposing internal errors while still logging them
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil {
		log.Printf("API Error [%d]: %s - %v", code, message, err)
	} else {
		log.Printf("API Error [%d]: %s", code, message)
	}
	writeJSON(w, code, map[string]string{"error": message})
}

// warmingUpResponse is the neutral payload returned when a site has no
// usable baseline yet
func warmingUpResponse(siteID string) map[string]interface{} {
	return map[string]interface{}{
		"site_id":          siteID,
		"status":           "warming_up",
		"confidence_level": "low",
	}
}
