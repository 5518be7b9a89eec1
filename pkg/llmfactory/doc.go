// Package llmfactory creates llms.Model instances from configuration,
// selecting the provider by type, by model name, or the default one.
package llmfactory
