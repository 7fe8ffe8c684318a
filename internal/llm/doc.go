// Package llm provides text-generation clients used to extract expenses from
// free-form utterances. It supports Anthropic, OpenAI and Gemini, with
// client-side rate limiting and response caching.
package llm
