// Package templates holds the fragment templates wrapped around rewritten
// pages.
//
// A Set is an immutable collection of parsed html/template templates keyed
// by slash path ("rustdoc/head.html"). A Store owns the current Set behind an
// atomic pointer so readers never block while a Watcher or Poller reloads it.
// Templates embedded in the binary are always present; a configured directory
// overrides them file by file.
package templates
