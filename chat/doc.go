// Package chat drives a conversation between a user, a function-calling
// model and a set of tool providers.
//
// Run appends the user query, then alternates between asking the model for
// the next turn and dispatching the tool calls it requests, until the model
// answers without calling tools. Model failures never surface as errors: the
// Client turns them into a textual answer, and tool failures come back to
// the model as error results.
package chat
