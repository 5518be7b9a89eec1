// Package llms provides a provider-agnostic view of function-calling language models.
//
// Each subpackage wraps one vendor SDK and implements the Model interface.
// Backends translate the history of Messages to the vendor format and the
// vendor response back to a ContentResponse, keeping the vendor turn in
// Message.Raw so it can be replayed verbatim on the next call.
//
// The `llms.go` file contains the Model interface and the provider types.
//
// The `generatecontent.go` file contains the message, part and response types.
//
// The `options.go` file provides the call options.
package llms
