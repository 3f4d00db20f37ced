// Package providers registers the built-in text generation provider
// factories.
//
// Import this package to register all provider factories with the global registry:
//
//	import _ "github.com/tombee/flowsmith/pkg/llm/providers"
//
// This registers factories but does not instantiate providers.
package providers

import (
	"github.com/tombee/flowsmith/pkg/llm"
)

func init() {
	// Groq - OpenAI-compatible chat completions API
	llm.RegisterFactory(GroqName, NewGroqWithCredentials)
}
