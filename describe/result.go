package describe

import "encoding/json"

// Result is the uniform outcome of a describe call. Success selects which
// fields carry meaning: Description, LanguageUsed and FullResponse are set
// only on success, Error only on failure. ModelUsed is set on success and
// on failures that happened after a model was resolved, so a caller can see
// which backend model a failed call was aimed at.
type Result struct {
	Success      bool            `json:"success"`
	Description  string          `json:"description,omitempty"`
	ModelUsed    string          `json:"model_used,omitempty"`
	LanguageUsed string          `json:"language_used,omitempty"`
	Error        string          `json:"error,omitempty"`
	FullResponse json.RawMessage `json:"full_response,omitempty"`
}

// MarshalJSON keeps the description key present on every success result,
// even when the model answered with empty text. Failure results still omit
// the success-only keys.
func (r Result) MarshalJSON() ([]byte, error) {
	type result Result // local alias sheds the method set
	if !r.Success {
		return json.Marshal(result(r))
	}
	return json.Marshal(struct {
		result
		Description string `json:"description"`
	}{result(r), r.Description})
}

func failure(err error) Result {
	return Result{Error: err.Error()}
}
