package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// ConverseAPI is the subset of the Bedrock runtime client used by the LLM.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type options struct {
	modelID         string
	region          string
	accessKeyID     string
	secretAccessKey string
	sessionToken    string
	maxTokens       int
	client          ConverseAPI
}

// Option is an option for the Bedrock LLM.
type Option func(*options)

// WithModel sets the model or inference profile ID.
func WithModel(modelID string) Option {
	return func(o *options) {
		o.modelID = modelID
	}
}

// WithRegion sets the AWS region.
// If not set, the region of the default AWS config is used.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithStaticCredentials sets the AWS access keys.
// If not set, the default AWS credentials chain is used.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(o *options) {
		o.accessKeyID = accessKeyID
		o.secretAccessKey = secretAccessKey
		o.sessionToken = sessionToken
	}
}

// WithDefaultMaxTokens sets the max tokens used when not set on the call.
func WithDefaultMaxTokens(maxTokens int) Option {
	return func(o *options) {
		o.maxTokens = maxTokens
	}
}

// WithClient sets the client to use, instead of creating one from
// the AWS config.
func WithClient(client ConverseAPI) Option {
	return func(o *options) {
		o.client = client
	}
}
