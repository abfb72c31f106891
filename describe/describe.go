// Package describe turns a pet image into a textual description by sending
// it to a locally running Ollama vision model.
//
// Request configuration is assembled from three layers with key-wise
// precedence: call-time overrides beat the JSON parameter file, which beats
// the built-in defaults. The parameter file is re-read on every call, so
// edits take effect without a restart. Every call performs exactly one
// blocking generation request; there is no retry, caching or shared state.
package describe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/petvision/petvision/ollama"
)

// DefaultParamsPath is where the parameter file is looked up when Opts does
// not name one.
const DefaultParamsPath = "params.json"

// Backend performs the single outbound generation call of a describe
// invocation. *ollama.Client is the production implementation.
type Backend interface {
	Generate(ctx context.Context, req ollama.GenerateRequest) (*ollama.Generation, error)
}

// BackendFactory builds the Backend for one invocation from the resolved
// base URL. Tests substitute one to observe or fake the wire call.
type BackendFactory func(baseURL string) Backend

// Opts configures a Describer. The zero value is usable: params.json in the
// working directory, the default call timeout and a real Ollama client.
type Opts struct {
	ParamsPath string
	Timeout    time.Duration
	Backend    BackendFactory
}

// Describer issues describe calls. It holds no per-call state and is safe
// for concurrent use.
type Describer struct {
	paramsPath string
	timeout    time.Duration
	newBackend BackendFactory
}

func New(opts Opts) *Describer {
	d := &Describer{
		paramsPath: opts.ParamsPath,
		timeout:    opts.Timeout,
		newBackend: opts.Backend,
	}
	if d.paramsPath == "" {
		d.paramsPath = DefaultParamsPath
	}
	if d.timeout <= 0 {
		d.timeout = ollama.DefaultTimeout
	}
	if d.newBackend == nil {
		d.newBackend = func(baseURL string) Backend {
			return ollama.NewClient(ollama.ClientOpts{
				BaseURL: baseURL,
				Timeout: d.timeout,
			})
		}
	}
	return d
}

// Describe analyzes a pet image and reports the outcome as a Result. Any
// failure, from configuration to backend, is folded into the Result rather
// than returned; overrides may be nil.
func (d *Describer) Describe(ctx context.Context, img ImageInput, overrides *Params) Result {
	fileParams, err := LoadParams(d.paramsPath)
	if err != nil {
		return failure(err)
	}

	resolved, err := Resolve(fileParams, overrides)
	if err != nil {
		return failure(err)
	}

	payload, err := img.payload()
	if err != nil {
		return failure(err)
	}

	return d.invoke(ctx, resolved, payload)
}

// invoke maps a resolved request onto the wire format and the reply back
// onto a Result.
func (d *Describer) invoke(ctx context.Context, resolved ResolvedRequest, payload string) Result {
	req := ollama.GenerateRequest{
		Model:  resolved.Model,
		Prompt: resolved.Prompt,
		Images: []string{payload},
		Options: ollama.ModelOptions{
			Temperature: resolved.Temperature,
			NumPredict:  resolved.MaxTokens,
		},
	}

	log.Debug().
		Str("model", resolved.Model).
		Str("language", string(resolved.Language)).
		Float64("temperature", resolved.Temperature).
		Int("maxTokens", resolved.MaxTokens).
		Msg("Requesting description from ollama")

	gen, err := d.newBackend(resolved.BaseURL).Generate(ctx, req)
	if err != nil {
		// Failures past this point were aimed at a concrete model, which the
		// Result keeps visible.
		return Result{
			Error:     classifyBackendError(err).Error(),
			ModelUsed: resolved.Model,
		}
	}

	return Result{
		Success:      true,
		Description:  gen.Response,
		ModelUsed:    resolved.Model,
		LanguageUsed: string(resolved.Language),
		FullResponse: gen.Raw,
	}
}

func classifyBackendError(err error) error {
	if errors.Is(err, ollama.ErrMalformedReply) {
		return fmt.Errorf("%w: %v", ErrBackendResponse, err)
	}
	return fmt.Errorf("%w: %v", ErrBackendTransport, err)
}

// DescribePet analyzes a pet image with a default Describer. It is the
// one-call form of New followed by Describe.
func DescribePet(ctx context.Context, img ImageInput, overrides *Params) Result {
	return New(Opts{}).Describe(ctx, img, overrides)
}
