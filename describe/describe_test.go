package describe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petvision/petvision/ollama"
)

// stubBackend records every generate call and answers with a canned reply.
type stubBackend struct {
	calls   int
	baseURL string
	lastReq ollama.GenerateRequest
	gen     *ollama.Generation
	err     error
}

func (s *stubBackend) Generate(_ context.Context, req ollama.GenerateRequest) (*ollama.Generation, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	if s.gen != nil {
		return s.gen, nil
	}
	return &ollama.Generation{
		GenerateResponse: ollama.GenerateResponse{
			Model:    req.Model,
			Response: "A golden retriever.",
			Done:     true,
		},
		Raw: json.RawMessage(`{"response":"A golden retriever.","done":true}`),
	}, nil
}

func (s *stubBackend) factory() BackendFactory {
	return func(baseURL string) Backend {
		s.baseURL = baseURL
		return s
	}
}

func newTestDescriber(t *testing.T, paramsJSON string) (*Describer, *stubBackend) {
	t.Helper()
	stub := &stubBackend{}
	d := New(Opts{
		ParamsPath: writeParams(t, paramsJSON),
		Backend:    stub.factory(),
	})
	return d, stub
}

func TestNewDefaults(t *testing.T) {
	d := New(Opts{})

	assert.Equal(t, "params.json", d.paramsPath)
	assert.Equal(t, ollama.DefaultTimeout, d.timeout)
	assert.NotNil(t, d.newBackend)
}

func TestDescribeSuccess(t *testing.T) {
	d, stub := newTestDescriber(t, `{"llm_engine": "llava"}`)
	data := []byte("raw image bytes")

	res := d.Describe(context.Background(), FromBytes(data), nil)

	assert.True(t, res.Success)
	assert.Equal(t, "A golden retriever.", res.Description)
	assert.Equal(t, "llava", res.ModelUsed)
	assert.Equal(t, "english", res.LanguageUsed)
	assert.Empty(t, res.Error)
	assert.JSONEq(t, `{"response":"A golden retriever.","done":true}`, string(res.FullResponse))

	// The wire request carries the resolved configuration untouched.
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "http://localhost:11434", stub.baseURL)
	assert.Equal(t, "llava", stub.lastReq.Model)
	assert.Equal(t, []string{base64.StdEncoding.EncodeToString(data)}, stub.lastReq.Images)
	assert.Equal(t, 0.7, stub.lastReq.Options.Temperature)
	assert.Equal(t, 512, stub.lastReq.Options.NumPredict)

	want, err := DefaultPrompt(LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, want, stub.lastReq.Prompt)
}

func TestDescribeOverrideLanguage(t *testing.T) {
	d, stub := newTestDescriber(t, `{
		"llm_engine": "llava",
		"language": "english",
		"temperature": 0.7,
		"max_tokens": 512,
		"prompt": null
	}`)

	res := d.Describe(context.Background(), FromBytes([]byte("img")), &Params{
		Language: String("hebrew"),
	})

	assert.True(t, res.Success)
	assert.Equal(t, "hebrew", res.LanguageUsed)
	assert.Equal(t, "llava", stub.lastReq.Model)
	assert.Equal(t, 0.7, stub.lastReq.Options.Temperature)
	assert.Equal(t, 512, stub.lastReq.Options.NumPredict)

	want, err := DefaultPrompt(LanguageHebrew)
	require.NoError(t, err)
	assert.Equal(t, want, stub.lastReq.Prompt)
}

func TestDescribeBaseURLFromFile(t *testing.T) {
	d, stub := newTestDescriber(t, `{
		"llm_engine": "qwen-vl",
		"ollama_base_url": "http://ollama:11434"
	}`)

	res := d.Describe(context.Background(), FromBytes([]byte("img")), nil)

	assert.True(t, res.Success)
	assert.Equal(t, "http://ollama:11434", stub.baseURL)
	assert.Equal(t, "qwen3-vl", stub.lastReq.Model)
	assert.Equal(t, "qwen3-vl", res.ModelUsed)
}

func TestDescribeUnsupportedEngine(t *testing.T) {
	d, stub := newTestDescriber(t, `{"llm_engine": "gpt-9000"}`)

	res := d.Describe(context.Background(), FromBytes([]byte("img")), nil)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "gpt-9000")
	assert.Empty(t, res.Description)
	assert.Empty(t, res.ModelUsed)
	// Validation failures never reach the backend.
	assert.Equal(t, 0, stub.calls)
}

func TestDescribeUnsupportedLanguage(t *testing.T) {
	d, stub := newTestDescriber(t, `{"llm_engine": "llava", "language": "latin"}`)

	res := d.Describe(context.Background(), FromBytes([]byte("img")), nil)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "latin")
	assert.Equal(t, 0, stub.calls)
}

func TestDescribeMissingEngine(t *testing.T) {
	d, stub := newTestDescriber(t, `{}`)

	res := d.Describe(context.Background(), FromBytes([]byte("img")), nil)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "llm_engine")
	assert.Equal(t, 0, stub.calls)
}

func TestDescribeMissingParamsFile(t *testing.T) {
	stub := &stubBackend{}
	d := New(Opts{
		ParamsPath: filepath.Join(t.TempDir(), "absent.json"),
		Backend:    stub.factory(),
	})

	res := d.Describe(context.Background(), FromBytes([]byte("img")), nil)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "params file unusable")
	assert.Equal(t, 0, stub.calls)
}

func TestDescribeUnreadableImagePath(t *testing.T) {
	d, stub := newTestDescriber(t, `{"llm_engine": "llava"}`)

	res := d.Describe(context.Background(), FromPath("/no/such/pet.jpg"), nil)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "image read failed")
	assert.Empty(t, res.Description)
	assert.Equal(t, 0, stub.calls)
}

func TestDescribeBackendFailure(t *testing.T) {
	d, stub := newTestDescriber(t, `{"llm_engine": "llava"}`)
	stub.err = fmt.Errorf("%w: POST http://localhost:11434/api/generate (status 500)", ollama.ErrBadStatus)

	res := d.Describe(context.Background(), FromBytes([]byte("img")), nil)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "backend request failed")
	assert.Empty(t, res.Description)
	// The model was already resolved when the call failed.
	assert.Equal(t, "llava", res.ModelUsed)
}

func TestDescribeMalformedBackendReply(t *testing.T) {
	d, stub := newTestDescriber(t, `{"llm_engine": "llava"}`)
	stub.err = fmt.Errorf("%w: body has no response field", ollama.ErrMalformedReply)

	res := d.Describe(context.Background(), FromBytes([]byte("img")), nil)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "backend reply malformed")
	assert.Equal(t, "llava", res.ModelUsed)
}

func TestDescribeRereadsParamsEachCall(t *testing.T) {
	stub := &stubBackend{}
	path := writeParams(t, `{"llm_engine": "llava"}`)
	d := New(Opts{ParamsPath: path, Backend: stub.factory()})

	_ = d.Describe(context.Background(), FromBytes([]byte("img")), nil)
	assert.Equal(t, "llava", stub.lastReq.Model)

	require.NoError(t, os.WriteFile(path, []byte(`{"llm_engine": "qwen-vl"}`), 0o644))

	_ = d.Describe(context.Background(), FromBytes([]byte("img")), nil)
	assert.Equal(t, "qwen3-vl", stub.lastReq.Model)
	assert.Equal(t, 2, stub.calls)
}

func TestResultJSONShape(t *testing.T) {
	success := Result{
		Success:      true,
		Description:  "A cat.",
		ModelUsed:    "llava",
		LanguageUsed: "english",
		FullResponse: json.RawMessage(`{"response":"A cat."}`),
	}
	data, err := json.Marshal(success)
	require.NoError(t, err)

	var keys map[string]any
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.Contains(t, keys, "success")
	assert.Contains(t, keys, "description")
	assert.Contains(t, keys, "model_used")
	assert.Contains(t, keys, "language_used")
	assert.Contains(t, keys, "full_response")
	assert.NotContains(t, keys, "error")

	// An empty description on success still serializes its key.
	empty := Result{Success: true, ModelUsed: "llava", LanguageUsed: "english"}
	data, err = json.Marshal(empty)
	require.NoError(t, err)

	keys = nil
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.Contains(t, keys, "description")
	assert.Equal(t, "", keys["description"])

	failed := failure(ErrMissingEngine)
	data, err = json.Marshal(failed)
	require.NoError(t, err)

	keys = nil
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.Equal(t, false, keys["success"])
	assert.Contains(t, keys, "error")
	assert.NotContains(t, keys, "description")
	assert.NotContains(t, keys, "language_used")
	assert.NotContains(t, keys, "full_response")
}

func TestDescribeEmptyResponseKeepsDescriptionKey(t *testing.T) {
	d, stub := newTestDescriber(t, `{"llm_engine": "llava"}`)
	stub.gen = &ollama.Generation{
		GenerateResponse: ollama.GenerateResponse{Model: "llava", Response: "", Done: true},
		Raw:              json.RawMessage(`{"response":"","done":true}`),
	}

	res := d.Describe(context.Background(), FromBytes([]byte("img")), nil)
	require.True(t, res.Success)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var keys map[string]any
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.Contains(t, keys, "description")
	assert.Equal(t, "", keys["description"])
}

// End-to-end over a real HTTP server, using the production backend factory.
func TestDescribeAgainstHTTPServer(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"model":"llava","response":"A small tabby cat.","done":true}`))
	}))
	defer ts.Close()

	path := writeParams(t, fmt.Sprintf(`{
		"llm_engine": "llava",
		"ollama_base_url": %q
	}`, ts.URL))
	d := New(Opts{ParamsPath: path})

	res := d.Describe(context.Background(), FromBytes([]byte("img")), nil)

	assert.True(t, res.Success)
	assert.Equal(t, "/api/generate", gotPath)
	assert.Equal(t, "A small tabby cat.", res.Description)
	assert.Equal(t, "llava", res.ModelUsed)
	assert.JSONEq(t, `{"model":"llava","response":"A small tabby cat.","done":true}`, string(res.FullResponse))
}

func TestDescribeConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := ts.URL
	ts.Close()

	path := writeParams(t, fmt.Sprintf(`{
		"llm_engine": "llava",
		"ollama_base_url": %q
	}`, baseURL))
	d := New(Opts{ParamsPath: path})

	res := d.Describe(context.Background(), FromBytes([]byte("img")), nil)

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Contains(t, res.Error, "backend request failed")
	assert.Empty(t, res.Description)
	assert.Equal(t, "llava", res.ModelUsed)
}

// chdir is testing.T.Chdir for toolchains before go 1.24: enter dir, restore
// the original working directory at cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestDescribePetUsesWorkingDirParams(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"A parrot.","done":true}`))
	}))
	defer ts.Close()

	dir := t.TempDir()
	params := fmt.Sprintf(`{"llm_engine": "llava", "ollama_base_url": %q}`, ts.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "params.json"), []byte(params), 0o644))
	chdir(t, dir)

	res := DescribePet(context.Background(), FromBytes([]byte("img")), nil)

	assert.True(t, res.Success)
	assert.Equal(t, "A parrot.", res.Description)
}
