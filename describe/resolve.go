package describe

import (
	"fmt"
	"strings"
)

// Engine selects which vision model family serves the request. The engine
// name callers use is not always the model identifier the backend expects;
// BackendModel performs that translation.
type Engine string

const (
	EngineLlava  Engine = "llava"
	EngineQwenVL Engine = "qwen-vl"
)

// Engines lists the supported engine selectors.
func Engines() []Engine {
	return []Engine{EngineLlava, EngineQwenVL}
}

// ParseEngine validates a raw engine value against the supported set.
// Matching is case-insensitive; the canonical form is lowercase.
func ParseEngine(raw string) (Engine, error) {
	eng := Engine(strings.ToLower(raw))
	for _, known := range Engines() {
		if eng == known {
			return eng, nil
		}
	}
	return "", fmt.Errorf("%w: llm_engine %q, must be one of: %s", ErrUnsupportedOption, raw, engineList())
}

// BackendModel returns the model identifier the Ollama server expects for
// the engine.
func (e Engine) BackendModel() string {
	switch e {
	case EngineLlava:
		return "llava"
	case EngineQwenVL:
		return "qwen3-vl"
	}
	return ""
}

func engineList() string {
	names := make([]string, 0, len(Engines()))
	for _, eng := range Engines() {
		names = append(names, string(eng))
	}
	return strings.Join(names, ", ")
}

// ResolvedRequest is a fully merged and validated request configuration:
// concrete backend model, final prompt text and sampling parameters.
type ResolvedRequest struct {
	Engine      Engine
	Model       string
	Language    Language
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Prompt      string
}

// Resolve merges the configuration layers and validates the outcome before
// anything touches the network. Precedence is overrides > file > built-ins,
// key-wise. overrides may be nil when the caller has nothing to override.
func Resolve(file Params, overrides *Params) (ResolvedRequest, error) {
	merged := builtinDefaults().Merge(file)
	if overrides != nil {
		merged = merged.Merge(*overrides)
	}

	lang, err := ParseLanguage(*merged.Language)
	if err != nil {
		return ResolvedRequest{}, err
	}

	if merged.LLMEngine == nil {
		return ResolvedRequest{}, fmt.Errorf("%w (options: %s)", ErrMissingEngine, engineList())
	}
	eng, err := ParseEngine(*merged.LLMEngine)
	if err != nil {
		return ResolvedRequest{}, err
	}

	prompt := ""
	if merged.Prompt != nil {
		prompt = *merged.Prompt
	} else if prompt, err = DefaultPrompt(lang); err != nil {
		return ResolvedRequest{}, err
	}

	return ResolvedRequest{
		Engine:      eng,
		Model:       eng.BackendModel(),
		Language:    lang,
		BaseURL:     *merged.OllamaBaseURL,
		Temperature: *merged.Temperature,
		MaxTokens:   *merged.MaxTokens,
		Prompt:      prompt,
	}, nil
}
