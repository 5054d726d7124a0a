// Package agent writes podcast transcripts with a hosted language model.
//
// Two providers implement the same contract:
//
//   - LLMAgent talks to an OpenRouter (OpenAI-compatible) chat completions
//     endpoint in JSON mode.
//   - CohereAgent uses the Cohere chat API through the official SDK.
//
// Both send the same prompt and expect the same payload:
//
//	{"segments":[{"speaker":"Host","content":"..."}, ...]}
//
// The transcript text is the "Speaker: content" join of the segments, one per
// line, and the word count is computed locally rather than trusted from the
// model.
//
// # Retry Behaviour
//
// The chat client retries on HTTP 408/429/5xx errors, network timeouts, and
// empty completions with exponential backoff (base 1s, max 10s, up to 5
// attempts by default). The Cohere SDK handles its own transport retries.
package agent
