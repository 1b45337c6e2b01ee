// Package thumbnail generates small preview images for the review UI: a
// downscaled JPEG for still images, and a single extracted frame for
// videos via ffmpeg. Neither path is allowed to fail the surrounding
// pipeline — a missing ffmpeg binary or an undecodable image just means no
// thumbnail, matching the teacher's checkExternalTool pattern of treating
// optional tool absence as a capability flag rather than a hard error.
package thumbnail

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nfnt/resize"
)

const maxDimension = 320

// Generator renders thumbnails under a job's storage directory.
type Generator struct {
	FFmpegPath string
	Timeout    time.Duration
}

// New returns a Generator. ffmpegPath empty means "look up ffmpeg on PATH".
func New(ffmpegPath string, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Generator{FFmpegPath: ffmpegPath, Timeout: timeout}
}

// Generate writes a thumbnail for src under dir/thumbnails and returns its
// path. mimeType picks the still-image vs. video code path.
func (g *Generator) Generate(ctx context.Context, src, dir, mimeType string) (string, error) {
	thumbDir := filepath.Join(dir, "thumbnails")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(thumbDir, thumbnailName(src))

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return dst, g.generateImage(src, dst)
	case strings.HasPrefix(mimeType, "video/"):
		return dst, g.generateVideoFrame(ctx, src, dst)
	default:
		return "", fmt.Errorf("thumbnail: unsupported mime type %q", mimeType)
	}
}

func thumbnailName(src string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return base + "_thumb.jpg"
}

func (g *Generator) generateImage(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return err
	}

	small := resize.Thumbnail(maxDimension, maxDimension, img, resize.Lanczos3)

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	return jpeg.Encode(out, small, &jpeg.Options{Quality: 80})
}

// generateVideoFrame extracts the frame at t=1s via ffmpeg. Missing ffmpeg
// is treated as "no thumbnail available", not an error the caller should
// surface — the processing result's thumbnail_path is simply left empty.
func (g *Generator) generateVideoFrame(ctx context.Context, src, dst string) error {
	bin := g.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil && g.FFmpegPath == "" {
		return fmt.Errorf("thumbnail: ffmpeg not available: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin,
		"-y", "-ss", "1", "-i", src,
		"-frames:v", "1", "-q:v", "4", dst,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg frame extraction: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
