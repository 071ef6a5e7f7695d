// Package compression shrinks lesson videos for low bandwidth links by
// driving ffmpeg through a tools.CommandRunner.
package compression

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/danmuck/seedbank/internal/tools"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTargetSizeMB = 5
	// FallbackBitrateKbps is used when the input duration cannot be probed.
	FallbackBitrateKbps = 128
)

var (
	ErrFFmpegUnavailable = errors.New("compression: ffmpeg is not installed or not in PATH")
	ErrInputNotFound     = errors.New("compression: input video not found")
	ErrCompressionFailed = errors.New("compression: ffmpeg failed")
)

type Compressor struct {
	runner  tools.CommandRunner
	ffmpeg  string
	ffprobe string
}

func NewCompressor(runner tools.CommandRunner) *Compressor {
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return &Compressor{runner: runner, ffmpeg: "ffmpeg", ffprobe: "ffprobe"}
}

func (c *Compressor) Available() bool {
	_, err := c.runner.LookPath(c.ffmpeg)
	return err == nil
}

// Bitrate returns the video bitrate in kbps that fits the input into
// targetMB, falling back to FallbackBitrateKbps when ffprobe cannot help.
func (c *Compressor) Bitrate(ctx context.Context, input string, targetMB int) int {
	stdout, _, code, err := c.runner.Run(ctx, c.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		input,
	)
	if err != nil || code != 0 {
		log.Debug().Err(err).Int32("exit_code", code).Str("input", input).Msg("ffprobe failed, using fallback bitrate")
		return FallbackBitrateKbps
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(stdout)), 64)
	if err != nil || duration <= 0 {
		log.Debug().Str("duration", strings.TrimSpace(string(stdout))).Msg("unusable duration, using fallback bitrate")
		return FallbackBitrateKbps
	}
	kbps := int(float64(targetMB*8192) / duration)
	if kbps < 1 {
		kbps = 1
	}
	return kbps
}

// Args builds the ffmpeg argument list for one compression run.
func Args(input, output string, kbps int) []string {
	rate := fmt.Sprintf("%dk", kbps)
	return []string{
		"-i", input,
		"-b:v", rate,
		"-maxrate", rate,
		"-bufsize", fmt.Sprintf("%dk", kbps*2),
		"-vf", "scale=480:270",
		"-r", "15",
		"-c:a", "aac",
		"-b:a", "32k",
		"-ac", "1",
		"-y",
		output,
	}
}

// Compress re-encodes input into output aiming for targetMB megabytes.
func (c *Compressor) Compress(ctx context.Context, input, output string, targetMB int) error {
	if !c.Available() {
		return ErrFFmpegUnavailable
	}
	if _, err := os.Stat(input); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, input)
		}
		return err
	}
	if targetMB <= 0 {
		targetMB = DefaultTargetSizeMB
	}

	kbps := c.Bitrate(ctx, input, targetMB)
	log.Info().Str("input", input).Str("output", output).Int("target_mb", targetMB).Int("kbps", kbps).Msg("compressing video")
	_, stderr, code, err := c.runner.Run(ctx, c.ffmpeg, Args(input, output, kbps)...)
	if err != nil || code != 0 {
		return fmt.Errorf("%w: exit=%d: %s", ErrCompressionFailed, code, tail(stderr, 512))
	}
	return nil
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
