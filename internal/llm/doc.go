// Package llm provides the text completion providers behind generation stages.
//
// Stages depend only on the Completer interface: a prompt and a stop sequence
// go in, a list of TextUnit values comes out. The stage itself enforces that
// exactly one unit came back; providers report every choice they received.
//
// # Providers
//
// OpenRouterClient talks to the OpenRouter chat completions endpoint over
// plain HTTP. OpenAIClient uses the official openai-go SDK and works with any
// OpenAI-compatible base URL. New selects one from the [llm] config section.
//
// # Retry Behaviour
//
// The OpenRouter client retries on HTTP 408/429/5xx errors, network timeouts,
// and empty message content with exponential backoff (base 1s, max 10s, up to
// 5 attempts by default). Context cancellation aborts retries immediately.
// The OpenAI client relies on the SDK's own retry policy.
//
// # Health
//
// Both clients implement HealthChecker, which issues a tiny JSON-only request
// to verify the API key and model.
package llm
