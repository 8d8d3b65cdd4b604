package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// extractFrames writes the video to a temp dir and has ffmpeg sample it
// into numbered JPEG files, which are read back in order.
func (p *Processor) extractFrames(ctx context.Context, data []byte, interval time.Duration, maxW, maxH int) ([][]byte, error) {
	bin, err := exec.LookPath(p.ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFFmpegNotFound, p.ffmpegPath)
	}

	dir, err := os.MkdirTemp("", "pollinate-frames-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	input := filepath.Join(dir, "input")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("write video: %w", err)
	}

	fps := "1/" + strconv.FormatFloat(interval.Seconds(), 'f', -1, 64)
	filter := fmt.Sprintf("fps=%s,scale=w=%d:h=%d:force_original_aspect_ratio=decrease", fps, maxW, maxH)

	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-i", input,
		"-vf", filter,
		"-frames:v", strconv.Itoa(p.maxFrames),
		"-q:v", "3",
		filepath.Join(dir, "frame_%05d.jpg"),
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	paths, err := filepath.Glob(filepath.Join(dir, "frame_*.jpg"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoFrames
	}
	sort.Strings(paths)

	frames := make([][]byte, 0, len(paths))
	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		frames = append(frames, b)
	}
	return frames, nil
}
