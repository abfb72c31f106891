package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/petvision/petvision/describe"
	"github.com/petvision/petvision/ollama"
)

// allowedExtensions lists the upload file types the form accepts, without
// the leading dot.
var allowedExtensions = []string{"png", "jpg", "jpeg", "gif", "webp"}

func allowedFile(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return ext != "" && slices.Contains(allowedExtensions, ext)
}

// indexData feeds the upload form template.
type indexData struct {
	Engines   []describe.Engine
	Languages []describe.Language
	Defaults  formDefaults
}

type formDefaults struct {
	Engine      string
	Language    string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Prompt      string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	defaults := formDefaults{
		Language:    string(describe.LanguageEnglish),
		BaseURL:     ollama.DefaultBaseURL,
		Temperature: describe.DefaultTemperature,
		MaxTokens:   describe.DefaultMaxTokens,
	}

	// Prefill is presentation only: a missing params file still renders the
	// form, it just starts from the built-ins.
	params, err := describe.LoadParams(s.cfg.ParamsFile)
	if err != nil {
		s.logger.Warn().Err(err).Msg("params file not used for form defaults")
	} else {
		if params.LLMEngine != nil {
			defaults.Engine = *params.LLMEngine
		}
		if params.Language != nil {
			defaults.Language = *params.Language
		}
		if params.OllamaBaseURL != nil {
			defaults.BaseURL = *params.OllamaBaseURL
		}
		if params.Temperature != nil {
			defaults.Temperature = *params.Temperature
		}
		if params.MaxTokens != nil {
			defaults.MaxTokens = *params.MaxTokens
		}
		if params.Prompt != nil {
			defaults.Prompt = *params.Prompt
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.templates.ExecuteTemplate(w, "index.html", indexData{
		Engines:   describe.Engines(),
		Languages: describe.Languages(),
		Defaults:  defaults,
	})
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadMB<<20)

	file, header, err := r.FormFile("image")
	if err != nil {
		if isTooLarge(err) {
			s.error(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Image too large. Limit is %d MB", s.cfg.MaxUploadMB))
			return
		}
		s.error(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	if !allowedFile(header.Filename) {
		s.error(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid file type. Allowed: %s", strings.Join(allowedExtensions, ", ")))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		if isTooLarge(err) {
			s.error(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Image too large. Limit is %d MB", s.cfg.MaxUploadMB))
			return
		}
		s.error(w, http.StatusBadRequest, fmt.Sprintf("Could not read upload: %v", err))
		return
	}

	// Uploads are decoded before anything is sent out, so a corrupt file
	// fails here instead of surfacing as a backend error.
	img, format, err := describe.DecodeImage(data)
	if err != nil {
		s.error(w, http.StatusBadRequest, fmt.Sprintf("Invalid image file: %v", err))
		return
	}

	overrides, err := overridesFromForm(r)
	if err != nil {
		s.error(w, http.StatusBadRequest, err.Error())
		return
	}

	uploadID := uuid.NewString()
	s.logger.Info().
		Str("uploadId", uploadID).
		Str("file", header.Filename).
		Str("format", format).
		Int("bytes", len(data)).
		Msg("describe upload")

	res := s.runner.Describe(r.Context(), describe.FromImage(img), overrides)
	if !res.Success {
		s.logger.Warn().
			Str("uploadId", uploadID).
			Str("error", res.Error).
			Msg("describe failed")
	}
	s.json(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// overridesFromForm builds the call-time override layer. Only fields the
// form actually submitted non-blank become overrides, so the params file
// keeps authority over everything the form leaves out.
func overridesFromForm(r *http.Request) (*describe.Params, error) {
	over := &describe.Params{}
	if v := strings.TrimSpace(r.FormValue("llm_engine")); v != "" {
		over.LLMEngine = describe.String(v)
	}
	if v := strings.TrimSpace(r.FormValue("language")); v != "" {
		over.Language = describe.String(v)
	}
	if v := strings.TrimSpace(r.FormValue("ollama_base_url")); v != "" {
		over.OllamaBaseURL = describe.String(v)
	}
	if v := strings.TrimSpace(r.FormValue("temperature")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errors.New("temperature must be a number")
		}
		over.Temperature = describe.Float64(f)
	}
	if v := strings.TrimSpace(r.FormValue("max_tokens")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("max_tokens must be an integer")
		}
		over.MaxTokens = describe.Int(n)
	}
	if v := strings.TrimSpace(r.FormValue("prompt")); v != "" {
		over.Prompt = describe.String(v)
	}
	return over, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func (s *Server) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error replies in the same JSON shape a failed Result uses, so clients
// parse one format no matter where the request died.
func (s *Server) error(w http.ResponseWriter, code int, msg string) {
	s.json(w, code, describe.Result{Error: msg})
}
