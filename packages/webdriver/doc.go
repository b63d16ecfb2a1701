// Package webdriver is a minimal W3C WebDriver client used to take evidence
// screenshots from a running browser session.
//
// Only the endpoints needed for evidence are implemented:
//
//	GET  /status
//	GET  /session/{id}/screenshot
//	POST /session/{id}/execute/sync
//
// The Client satisfies evidence.Snapshotter and evidence.ViewResetter.
package webdriver
