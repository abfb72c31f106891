package describe

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/petvision/petvision/ollama"
)

// Defaults applied when neither the parameter file nor call-time overrides
// set a value. The engine deliberately has no default.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 512
)

// Params is one configuration layer. Fields are pointers so that an absent
// key can be told apart from an explicit zero: only keys that are actually
// set take part in merging, absent keys never blank out a lower layer.
type Params struct {
	LLMEngine     *string  `json:"llm_engine,omitempty"`
	Language      *string  `json:"language,omitempty"`
	OllamaBaseURL *string  `json:"ollama_base_url,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     *int     `json:"max_tokens,omitempty"`
	Prompt        *string  `json:"prompt,omitempty"`
}

// String returns a pointer to s, for building Params literals.
func String(s string) *string { return &s }

// Float64 returns a pointer to f, for building Params literals.
func Float64(f float64) *float64 { return &f }

// Int returns a pointer to i, for building Params literals.
func Int(i int) *int { return &i }

// LoadParams reads one configuration layer from a JSON file. A missing,
// unreadable or syntactically invalid file fails with ErrConfigFile; keys
// the file does not mention stay unset. Unknown keys are ignored.
func LoadParams(path string) (Params, error) {
	var p Params
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrConfigFile, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: %s: %v", ErrConfigFile, path, err)
	}
	return p, nil
}

// Merge overlays over on top of p, key-wise: a key set in over wins, a key
// over leaves unset keeps p's value. Neither side is modified.
func (p Params) Merge(over Params) Params {
	out := p
	if over.LLMEngine != nil {
		out.LLMEngine = over.LLMEngine
	}
	if over.Language != nil {
		out.Language = over.Language
	}
	if over.OllamaBaseURL != nil {
		out.OllamaBaseURL = over.OllamaBaseURL
	}
	if over.Temperature != nil {
		out.Temperature = over.Temperature
	}
	if over.MaxTokens != nil {
		out.MaxTokens = over.MaxTokens
	}
	if over.Prompt != nil {
		out.Prompt = over.Prompt
	}
	return out
}

// builtinDefaults is the lowest configuration layer. No engine and no
// prompt: the engine must come from a caller layer, the prompt falls back
// to the language template at resolve time.
func builtinDefaults() Params {
	return Params{
		Language:      String(string(LanguageEnglish)),
		OllamaBaseURL: String(ollama.DefaultBaseURL),
		Temperature:   Float64(DefaultTemperature),
		MaxTokens:     Int(DefaultMaxTokens),
	}
}
