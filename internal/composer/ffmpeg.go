package composer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/conjurecontent/backend/pkg/config"
)

// CompositionInput describes one video composition: a looping background
// clip cropped to 9:16, background audio and narration mixed at independent
// gains, subtitles burned in, and the whole output truncated to the
// narration's duration.
type CompositionInput struct {
	BackgroundVideoPath string
	BackgroundAudioPath string
	NarrationPath       string
	SubtitlePath        string
	NarrationGain       float64
	BackgroundGain      float64
	OutputPath          string
}

// FFmpeg drives the external encoding tool. It is safe for concurrent use;
// each call spawns its own process.
type FFmpeg struct {
	ffmpegPath    string
	ffprobePath   string
	hardwareAccel bool
	randomOffset  func(max time.Duration) time.Duration
}

// New builds an FFmpeg wrapper from pipeline configuration.
func New(cfg config.PipelineConfig) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:    cfg.FFmpegPath,
		ffprobePath:   cfg.FFprobePath,
		hardwareAccel: cfg.HardwareAccel,
		randomOffset: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

// Duration probes a media file's container duration.
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseDuration(string(output))
}

func parseDuration(raw string) (time.Duration, error) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ffprobe duration %q: %w", strings.TrimSpace(raw), err)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("negative duration %f", seconds)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// Compose writes the finished MP4 to input.OutputPath. The background video
// loops, so the start offset is chosen pseudo-randomly within the stretch
// that still leaves a full narration's worth of footage.
func (f *FFmpeg) Compose(ctx context.Context, input CompositionInput) error {
	if input.OutputPath == "" {
		return errors.New("output path is required")
	}

	narrationDur, err := f.Duration(ctx, input.NarrationPath)
	if err != nil {
		return fmt.Errorf("narration duration: %w", err)
	}
	backgroundDur, err := f.Duration(ctx, input.BackgroundVideoPath)
	if err != nil {
		return fmt.Errorf("background duration: %w", err)
	}

	startOffset := f.randomOffset(backgroundDur - narrationDur)
	args := composeArgs(input, startOffset, narrationDur, f.hardwareAccel)

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w, stderr: %s", err, stderr.String())
	}
	return nil
}

func composeArgs(input CompositionInput, startOffset, narrationDur time.Duration, hardwareAccel bool) []string {
	args := []string{"-y"}
	if hardwareAccel {
		args = append(args, "-hwaccel", "auto")
	}
	args = append(args,
		"-ss", formatSeconds(startOffset),
		"-stream_loop", "-1",
		"-i", input.BackgroundVideoPath,
		"-stream_loop", "-1",
		"-i", input.BackgroundAudioPath,
		"-i", input.NarrationPath,
		"-filter_complex", filterGraph(input),
		"-map", "[vout]",
		"-map", "[aout]",
		"-t", formatSeconds(narrationDur),
		"-c:v", "libx264",
		"-c:a", "aac",
		input.OutputPath,
	)
	return args
}

func filterGraph(input CompositionInput) string {
	var b strings.Builder
	// Crop the center 9:16 column out of the landscape background.
	b.WriteString("[0:v]crop=ih*9/16:ih:(iw-ih*9/16)/2:0")
	b.WriteString(",subtitles=")
	b.WriteString(escapeFilterPath(input.SubtitlePath))
	b.WriteString("[vout];")
	fmt.Fprintf(&b, "[1:a]volume=%s[bg];", formatGain(input.BackgroundGain))
	fmt.Fprintf(&b, "[2:a]volume=%s[nr];", formatGain(input.NarrationGain))
	b.WriteString("[bg][nr]amix=inputs=2:duration=longest[aout]")
	return b.String()
}

// escapeFilterPath quotes a path for use inside an ffmpeg filter graph,
// where colons and commas are syntax.
func escapeFilterPath(path string) string {
	escaped := strings.ReplaceAll(path, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	escaped = strings.ReplaceAll(escaped, `:`, `\:`)
	return "'" + escaped + "'"
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func formatGain(gain float64) string {
	return strconv.FormatFloat(gain, 'f', -1, 64)
}
