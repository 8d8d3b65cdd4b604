// Package media prepares images and videos for vision prompts: images are
// downscaled and re-encoded as JPEG, videos are sampled into JPEG frames.
package media

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const (
	DefaultMaxWidth      = 768
	DefaultMaxHeight     = 768
	DefaultFrameInterval = time.Second
	DefaultMaxFrames     = 30
	DefaultCacheBytes    = 64 << 20

	// MaxImagePixels bounds the decoded size of an uploaded image.
	MaxImagePixels = 40_000_000

	jpegQuality = 85
)

// Preprocessor is the media capability used by the analysis handlers.
type Preprocessor interface {
	// Resize scales an image to fit within maxW x maxH and returns JPEG bytes.
	Resize(ctx context.Context, data []byte, maxW, maxH int) ([]byte, error)

	// ExtractFrames samples one frame per interval from a video, each scaled
	// to fit within maxW x maxH, in playback order.
	ExtractFrames(ctx context.Context, data []byte, interval time.Duration, maxW, maxH int) ([][]byte, error)
}

// Options configures a Processor.
type Options struct {
	// FFmpegPath is the ffmpeg binary. Empty means look it up on PATH.
	FFmpegPath string

	// CacheBytes bounds the result cache. Zero uses DefaultCacheBytes,
	// negative disables caching.
	CacheBytes int64

	MaxFrames int
	Logger    *slog.Logger
}

// Processor implements Preprocessor with x/image scaling and an ffmpeg
// subprocess for frames. Results are cached by content digest.
type Processor struct {
	ffmpegPath string
	maxFrames  int
	cache      *ristretto.Cache[string, [][]byte]
	logger     *slog.Logger
}

var _ Preprocessor = (*Processor)(nil)

// NewProcessor creates a Processor.
func NewProcessor(opts Options) (*Processor, error) {
	p := &Processor{
		ffmpegPath: opts.FFmpegPath,
		maxFrames:  opts.MaxFrames,
		logger:     opts.Logger,
	}
	if p.ffmpegPath == "" {
		p.ffmpegPath = "ffmpeg"
	}
	if p.maxFrames <= 0 {
		p.maxFrames = DefaultMaxFrames
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	cacheBytes := opts.CacheBytes
	if cacheBytes == 0 {
		cacheBytes = DefaultCacheBytes
	}
	if cacheBytes > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[string, [][]byte]{
			NumCounters: 1e5,
			MaxCost:     cacheBytes,
			BufferItems: 64,
		})
		if err != nil {
			return nil, err
		}
		p.cache = cache
	}
	return p, nil
}

// Close releases the cache.
func (p *Processor) Close() {
	if p.cache != nil {
		p.cache.Close()
	}
}

// Resize implements Preprocessor.
func (p *Processor) Resize(ctx context.Context, data []byte, maxW, maxH int) ([]byte, error) {
	if len(data) == 0 {
		return nil, opError("resize", ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, opError("resize", err)
	}
	maxW, maxH = bounds(maxW, maxH)

	key := cacheKey("resize", data, maxW, maxH, 0)
	if cached, ok := p.lookup("resize", key); ok && len(cached) == 1 {
		return cached[0], nil
	}

	out, err := resizeImage(data, maxW, maxH)
	if err != nil {
		return nil, opError("resize", err)
	}
	p.store(key, [][]byte{out})
	return out, nil
}

// ExtractFrames implements Preprocessor.
func (p *Processor) ExtractFrames(ctx context.Context, data []byte, interval time.Duration, maxW, maxH int) ([][]byte, error) {
	if len(data) == 0 {
		return nil, opError("extract frames", ErrEmptyInput)
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	maxW, maxH = bounds(maxW, maxH)

	key := cacheKey("frames", data, maxW, maxH, interval)
	if cached, ok := p.lookup("frames", key); ok {
		return cached, nil
	}

	frames, err := p.extractFrames(ctx, data, interval, maxW, maxH)
	if err != nil {
		return nil, opError("extract frames", err)
	}
	p.store(key, frames)

	p.logger.Debug("extracted video frames",
		"frames", len(frames),
		"interval", interval,
		"input_bytes", len(data),
	)
	return frames, nil
}

func bounds(maxW, maxH int) (int, int) {
	if maxW <= 0 {
		maxW = DefaultMaxWidth
	}
	if maxH <= 0 {
		maxH = DefaultMaxHeight
	}
	return maxW, maxH
}
