package server

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

func writeJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeError writes an error body in the shape the resource client normalizes.
func writeError(w http.ResponseWriter, statusCode int, code, message string) error {
	return writeJSON(w, statusCode, map[string]any{"error": code, "message": message})
}

func readJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryParams decodes each query value as JSON, keeping values that are not JSON as strings.
func queryParams(r *http.Request) map[string]any {
	out := make(map[string]any)
	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		raw := values[0]
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[key] = v
	}
	return out
}

// setImageURL sets url on every object of the tree whose name is fileName.
func setImageURL(v any, fileName, url string) {
	switch node := v.(type) {
	case map[string]any:
		if name, ok := node["name"].(string); ok && name == fileName {
			node["url"] = url
		}
		for _, child := range node {
			setImageURL(child, fileName, url)
		}
	case []any:
		for _, child := range node {
			setImageURL(child, fileName, url)
		}
	}
}

func safeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '?', '#', '%', ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "file"
	}
	return name
}
