// Package sanitizer normalizes free-text request fields before validation.
//
// Every function is idempotent. Inputs that cannot be normalized are returned
// trimmed but otherwise untouched so that validation rejects them with a
// precise message.
package sanitizer
