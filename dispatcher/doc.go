// Package dispatcher routes the tool calls requested by the model to the
// providers that own them, and packages the outcome of every call as a
// result part. Failures never abort a turn: an unknown tool or a failed
// invocation becomes an error result for that call only.
package dispatcher
