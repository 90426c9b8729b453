package errors

import (
	"encoding/json"
	"net/http"
)

// ProblemDetails is an RFC 7807 body. Extensions are written next to the
// standard members and never replace them.
type ProblemDetails struct {
	Type     string
	Title    string
	Status   int
	Detail   string
	Instance string

	Extensions map[string]interface{}
}

func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	body := make(map[string]interface{}, 5+len(pd.Extensions))
	for k, v := range pd.Extensions {
		body[k] = v
	}
	body["type"] = pd.Type
	body["title"] = pd.Title
	body["status"] = pd.Status
	if pd.Detail != "" {
		body["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		body["instance"] = pd.Instance
	}
	return json.Marshal(body)
}

// NewProblemDetails builds a problem for the request path of r.
func NewProblemDetails(r *http.Request, status int, problemType, title, detail string) *ProblemDetails {
	pd := &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Extensions: make(map[string]interface{}),
	}
	if r != nil && r.URL != nil {
		pd.Instance = r.URL.Path
	}
	return pd
}

func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}
