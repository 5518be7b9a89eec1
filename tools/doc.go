// Package tools defines the boundary to tool providers: a Provider lists the
// tools it offers and invokes them by name. Providers are registered under a
// label in a Registry, whose registration order decides which provider owns a
// tool name offered by more than one of them.
package tools
