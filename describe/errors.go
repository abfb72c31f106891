package describe

import "errors"

// Every failure a describe call can produce wraps one of these, so callers
// and tests can classify outcomes with errors.Is. Validation errors are
// surfaced before any network attempt.
var (
	// ErrConfigFile means the parameter file is absent, unreadable or not
	// valid JSON.
	ErrConfigFile = errors.New("describe: params file unusable")

	// ErrMissingEngine means no configuration layer supplied llm_engine.
	ErrMissingEngine = errors.New("describe: llm_engine is required")

	// ErrUnsupportedOption means an engine or language value is outside its
	// closed set. The message names the offending key and value.
	ErrUnsupportedOption = errors.New("describe: unsupported option")

	// ErrImageRead means an image path could not be read from disk.
	ErrImageRead = errors.New("describe: image read failed")

	// ErrImageDecode means image content could not be decoded or re-encoded.
	ErrImageDecode = errors.New("describe: image decode failed")

	// ErrBackendTransport means the backend call failed at the transport
	// level: connection, timeout or non-2xx status.
	ErrBackendTransport = errors.New("describe: backend request failed")

	// ErrBackendResponse means the backend answered 2xx with a body that has
	// no generated text.
	ErrBackendResponse = errors.New("describe: backend reply malformed")
)
