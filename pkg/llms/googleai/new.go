// Package googleai implements the llms.Model for Gemini models,
// on the Gemini API or Vertex AI.
// See https://ai.google.dev/ for more details.
package googleai

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"google.golang.org/genai"
)

// GoogleAI is a Gemini client.
type GoogleAI struct {
	Options Options
	client  *genai.Client
}

var _ llms.Model = (*GoogleAI)(nil)

// New creates a new GoogleAI client.
func New(ctx context.Context, opts ...Option) (*GoogleAI, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	options.applyEnv()

	cfg := &genai.ClientConfig{
		HTTPClient:  options.HTTPClient,
		Credentials: options.Credentials,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: options.BaseURL,
		},
	}
	if options.RequestTimeout > 0 {
		cfg.HTTPOptions.Timeout = &options.RequestTimeout
	}

	if options.VertexAI() {
		cfg.Backend = genai.BackendVertexAI
		cfg.Project = options.Project
		cfg.Location = options.Location
	} else {
		if options.APIKey == "" && options.Credentials == nil {
			return nil, errors.Newf("googleai: missing API key, set it in the %s environment variable", APIKeyEnvVarNames[0])
		}
		cfg.Backend = genai.BackendGeminiAPI
		cfg.APIKey = options.APIKey
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to create client")
	}

	return &GoogleAI{
		Options: options,
		client:  client,
	}, nil
}
