// Package evidence captures failure snapshots and stores them as report artifacts.
//
// A Capturer asks a Snapshotter (typically a browser driver) for raw image bytes,
// writes them under the evidence directory with a collision-free name and returns
// a report.Evidence reference. Capture problems never propagate as panics: they
// come back as errors wrapping ErrCaptureFailed together with a zero Evidence,
// and callers carry on without an attachment.
package evidence
