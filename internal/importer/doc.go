// Package importer turns remote pages into catalog snippets.
//
// The pipeline: fetch a URL (resty with retries, rate limiting, and a
// circuit breaker), classify the body as HTML or a bare script, lift
// code block candidates out of the markup (goquery selectors with an
// XPath fallback), then syntax-check each candidate before registering
// it in the import pack.
//
// Built on specialized libraries:
//   - resty + retryablehttp: resilient fetching
//   - goquery: CSS selector extraction
//   - htmlquery: XPath fallback
//   - bluemonday: title sanitization
//   - chardet: charset detection
package importer
