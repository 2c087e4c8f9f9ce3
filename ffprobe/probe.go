// Package ffprobe reads media metadata with the ffprobe command-line tool.
package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
)

// Stream represents a media stream (audio, video, subtitle, etc.)
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// Format represents the container format information.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// ProbeResult holds the metadata extracted from a media file.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// GetDuration returns the duration of the media file in seconds.
//
// The container duration is preferred; when it is missing the longest video
// stream duration is used. Returns an error if neither can be parsed.
func (pr *ProbeResult) GetDuration() (float64, error) {
	if pr.Format.Duration != "" {
		duration, err := strconv.ParseFloat(pr.Format.Duration, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse duration '%s': %w", pr.Format.Duration, err)
		}
		return duration, nil
	}

	longest, found := 0.0, false
	for _, s := range pr.GetVideoStreams() {
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && (!found || d > longest) {
			longest, found = d, true
		}
	}
	if !found {
		return 0, fmt.Errorf("duration not available in format metadata")
	}
	return longest, nil
}

// HasVideo reports whether the file has at least one video stream.
func (pr *ProbeResult) HasVideo() bool {
	return len(pr.GetVideoStreams()) > 0
}

// GetVideoStreams returns all video streams from the media file.
func (pr *ProbeResult) GetVideoStreams() []Stream {
	var videoStreams []Stream
	for _, stream := range pr.Streams {
		if stream.CodecType == "video" {
			videoStreams = append(videoStreams, stream)
		}
	}
	return videoStreams
}

// Prober runs ffprobe.
type Prober struct {
	binary string
	log    *zap.Logger
}

// NewProber creates a prober for the given ffprobe binary. An empty binary
// means "ffprobe" from PATH.
func NewProber(binary string, log *zap.Logger) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Prober{binary: binary, log: log.Named("ffprobe")}
}

// Probe analyzes a media file and extracts its metadata.
//
// Example:
//
//	result, err := ffprobe.NewProber("", logger).Probe(ctx, "/path/to/video.mp4")
//	if err != nil {
//	    return err
//	}
//	duration, _ := result.GetDuration()
func (p *Prober) Probe(ctx context.Context, sourcePath string) (*ProbeResult, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}

	// -v quiet: suppress verbose output
	// -print_format json: output in JSON format
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		sourcePath,
	}

	p.log.Debug("Probing", zap.String("binary", p.binary), zap.String("path", sourcePath))
	output, err := exec.CommandContext(ctx, p.binary, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed on %s: %w", sourcePath, err)
	}
	return ParseOutput(output)
}

// ParseOutput decodes ffprobe's JSON output.
func ParseOutput(output []byte) (*ProbeResult, error) {
	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}
	return &result, nil
}
