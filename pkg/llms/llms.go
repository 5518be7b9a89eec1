package llms

import (
	"context"
)

// ProviderType names the vendor API family of a Model.
// OpenAI compatible endpoints, Azure and Perplexity included, report ProviderOpenAI.
type ProviderType string

// Provider types
const (
	ProviderAnthropic ProviderType = "ANTHROPIC"
	ProviderBedrock   ProviderType = "BEDROCK"
	ProviderGoogleAI  ProviderType = "GOOGLEAI"
	ProviderOpenAI    ProviderType = "OPENAI"
)

//go:generate mockgen -source=llms.go -destination=../../mocks/mockllms/llms_mock.gen.go -package mockllms

// Model is an interface function-calling models implement.
type Model interface {
	// GetName returns the name of the model.
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GenerateContent asks the model to generate the next turn from a sequence of
	// messages. The returned response carries the model turn in a form that
	// can be appended to the history as is.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}
