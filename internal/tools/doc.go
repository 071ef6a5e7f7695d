// Package tools provides host command helpers.
//
// Ownership boundary:
// - external command execution (ffmpeg, ffprobe)
//
// - exit code normalisation: 127 when the binary cannot be started
package tools
