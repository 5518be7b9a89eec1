// Package prompts renders system instructions from text templates.
package prompts
