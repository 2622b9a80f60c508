// Package component defines the lifecycle contract brokerkit services
// expose to the application that embeds them: start, stop, health and a
// one-line description for startup summaries.
package component
