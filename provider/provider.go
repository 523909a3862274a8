// Package provider implements the translation services a pipeline
// dispatches batches to.
package provider

import "github.com/ZaguanLabs/pagetl"

// AIProvider is the interface for AI translation backends.
// This is an alias to the main package interface for convenience.
type AIProvider = pagetl.AIProvider

// TranslateRequest is an alias to the main package type.
type TranslateRequest = pagetl.TranslateRequest
