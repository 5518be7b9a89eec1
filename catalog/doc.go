// Package catalog builds the tool list offered to the model on each turn.
//
// Aggregate collects the live catalogs of all registered providers, and
// ToModelTools translates the result into function definitions with schemas
// reduced to the keywords function-calling APIs accept.
package catalog
