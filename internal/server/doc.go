// Package server serves a directory of rustdoc output over HTTP, wrapping
// every HTML page in the site chrome on the way out.
package server
