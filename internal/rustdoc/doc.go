// Package rustdoc wraps rustdoc-generated pages in the site chrome.
//
// RewritePage renders four fragments from one template snapshot and then
// streams the page through htmlrewrite once:
//
//   - the head fragment is appended to <head>
//   - the vendored stylesheet fragment goes in front of every rustdoc
//     stylesheet link, so rustdoc's own rules still win
//   - <body> becomes <div id="rustdoc_body_wrapper"> inside a new <body>
//     that starts with the header fragment, and the body prefix fragment
//     becomes the first child of the wrapper
package rustdoc
