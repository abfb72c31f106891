// Command petvision describes a pet photo from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lithammer/dedent"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/petvision/petvision/config"
	"github.com/petvision/petvision/describe"
	"github.com/petvision/petvision/ollama"
)

type runner interface {
	Describe(ctx context.Context, img describe.ImageInput, overrides *describe.Params) describe.Result
}

// newRunner is swapped out by tests.
var newRunner = func(opts describe.Opts) runner {
	return describe.New(opts)
}

func helpText(s string) string {
	return strings.TrimSpace(dedent.Dedent(s))
}

// defaultParamsFile is the --params default. PETVISION_PARAMS_FILE, usually
// set through the env file, names the same setting the web daemon reads.
func defaultParamsFile() string {
	if v := os.Getenv("PETVISION_PARAMS_FILE"); v != "" {
		return v
	}
	return describe.DefaultParamsPath
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		engine      string
		language    string
		baseURL     string
		temperature float64
		maxTokens   int
		prompt      string
		paramsFile  string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "petvision IMAGE",
		Short: "Describe a pet photo with a local Ollama vision model",
		Long: helpText(`
			Sends a pet photo to a locally running Ollama server and prints the
			model's description.

			Request settings come from three layers: built-in defaults, the
			params file, and the flags below. A flag only overrides the file
			when it is actually given on the command line.`),
		Example: helpText(`
			  petvision cat.jpg
			  petvision --llm-engine qwen-vl --language hebrew dog.png
			  petvision --prompt "What breed is this dog?" dog.png`),
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := &describe.Params{}
			flags := cmd.Flags()
			if flags.Changed("llm-engine") {
				overrides.LLMEngine = describe.String(engine)
			}
			if flags.Changed("language") {
				overrides.Language = describe.String(language)
			}
			if flags.Changed("ollama-base-url") {
				overrides.OllamaBaseURL = describe.String(baseURL)
			}
			if flags.Changed("temperature") {
				overrides.Temperature = describe.Float64(temperature)
			}
			if flags.Changed("max-tokens") {
				overrides.MaxTokens = describe.Int(maxTokens)
			}
			if flags.Changed("prompt") {
				overrides.Prompt = describe.String(prompt)
			}

			d := newRunner(describe.Opts{ParamsPath: paramsFile, Timeout: timeout})
			res := d.Describe(cmd.Context(), describe.FromPath(args[0]), overrides)
			if !res.Success {
				return errors.New(res.Error)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Model used: %s\n", res.ModelUsed)
			fmt.Fprintf(out, "Language used: %s\n", res.LanguageUsed)
			fmt.Fprintf(out, "\nDescription:\n%s\n", res.Description)
			return nil
		},
	}

	cmd.Flags().StringVar(&engine, "llm-engine", "", "vision engine (llava or qwen-vl)")
	cmd.Flags().StringVar(&language, "language", "", "description language (english or hebrew)")
	cmd.Flags().StringVar(&baseURL, "ollama-base-url", "", "Ollama server base URL")
	cmd.Flags().Float64Var(&temperature, "temperature", describe.DefaultTemperature, "sampling temperature")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", describe.DefaultMaxTokens, "maximum tokens to generate")
	cmd.Flags().StringVar(&prompt, "prompt", "", "custom prompt (replaces the language default)")
	cmd.Flags().StringVar(&paramsFile, "params", defaultParamsFile(), "parameter file (env PETVISION_PARAMS_FILE)")
	cmd.Flags().DurationVar(&timeout, "timeout", ollama.DefaultTimeout, "backend request timeout")

	return cmd
}
