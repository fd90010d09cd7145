// Package nlisten holds ready-made event subscribers for the event kernel:
// view conversion, body parsing, error rendering, access logging, metrics
// and tracing.
package nlisten
