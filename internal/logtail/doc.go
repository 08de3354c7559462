// Package logtail reads the end of the application log for the UI log pane.
//
// Read keeps a ring buffer of maxLines entries, so a large file is scanned
// once in O(maxLines) memory. Each line is parsed for its logrus level:
//
//	time="2026-01-02 15:04:05" level=warn msg="request failed" component=loader
//
// yields Line{Level: "warn", Text: <the whole line>}. Missing files read as
// empty.
package logtail
