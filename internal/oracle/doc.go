// Package oracle provides the decision and response collaborators that judge
// meeting requests and phrase the assistant's replies.
//
// Two implementations exist: HeuristicOracle, a deterministic keyword policy
// that needs no network, and ChatOracle, which talks to any OpenAI-compatible
// chat-completions endpoint. Instrument wraps either with spans and metrics.
//
// Callers treat every error as recoverable: a failed decision becomes a
// SafeDecline and a failed reply becomes a canned message.
package oracle
