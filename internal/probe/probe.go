// Package probe implements C1, the Metadata Probe: reading EXIF/QuickTime/XMP
// tags and pixel dimensions from a file via an external tool, and (for
// exports) writing corrected tags back to a destination copy.
//
// The primary path shells out to exiftool via github.com/barasher/go-exiftool,
// which keeps one "-stay_open" exiftool process alive per Prober instance
// instead of forking a process per file — the same amortization
// bleemesser-photosort applies by handing each worker goroutine its own
// *exiftool.Exiftool. When the binary can't be found, JPEG/HEIC files still
// get a best-effort EXIF read through github.com/rwcarlsen/goexif (the
// teacher's original dependency), so a missing exiftool install degrades
// image handling rather than failing every file outright; video files still
// require exiftool or ffprobe for QuickTime tags.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	exiftool "github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"
)

// Error wraps a probe failure. Per spec.md §4.1, this is only returned when
// the external utility is unavailable or the file itself is unreadable —
// missing individual tags is not an error, just an absent map entry.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("probe %s: %v", e.Path, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Metadata is the probe's best-effort result: a tag map plus pixel
// dimensions, both nil-able on a per-field basis since most of the tags
// named in spec.md §4.1 are frequently absent.
type Metadata struct {
	Tags   map[string]string
	Width  *int
	Height *int
}

// TagsOfInterest lists the metadata fields C2 (timestamp extraction) reads.
// Kept as an exported slice rather than a hardcoded loop so tests and the
// timestamp extractor can both iterate it without re-declaring the list.
var TagsOfInterest = []string{
	"EXIF:DateTimeOriginal",
	"EXIF:CreateDate",
	"EXIF:ModifyDate",
	"QuickTime:CreateDate",
	"File:FileModifyDate",
	"File:FileCreateDate",
}

// Prober probes files for metadata and, for exports, writes corrected tags
// back to a destination copy.
type Prober struct {
	toolPath string
	timeout  time.Duration
	et       *exiftool.Exiftool
}

// New creates a Prober. toolPath overrides exiftool's location
// (METADATA_TOOL_PATH); empty means "use exiftool on PATH". If exiftool
// cannot be started at all, New still returns a usable Prober that falls
// back to goexif for images — per spec.md, the probe should degrade rather
// than prevent the job from starting.
func New(toolPath string, timeout time.Duration) *Prober {
	p := &Prober{toolPath: toolPath, timeout: timeout}

	opts := []func(*exiftool.Exiftool) error{}
	if toolPath != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(toolPath))
	}
	if et, err := exiftool.NewExiftool(opts...); err == nil {
		p.et = et
	}
	return p
}

// Close releases the underlying exiftool process, if one was started.
func (p *Prober) Close() error {
	if p.et == nil {
		return nil
	}
	return p.et.Close()
}

// Available reports whether the external metadata utility could be started.
func (p *Prober) Available() bool { return p.et != nil }

// Probe reads tags and dimensions for path. It only returns an error when
// path cannot be stat'ed; when exiftool, goexif or the image-dimension
// fallback cannot read the file, the affected fields are simply left empty.
func (p *Prober) Probe(ctx context.Context, path string) (Metadata, error) {
	if _, err := os.Stat(path); err != nil {
		return Metadata{}, &Error{Path: path, Err: err}
	}

	md := Metadata{Tags: make(map[string]string)}

	if p.et != nil {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if err := p.probeExiftool(ctx, path, &md); err != nil {
			// exiftool itself errored on this specific file (corrupt,
			// unsupported) — fall through to the goexif/stdlib fallbacks
			// below rather than failing the whole probe.
		}
	}

	if len(md.Tags) == 0 {
		p.probeGoexifFallback(path, &md)
	}

	p.probeDimensions(path, &md)

	return md, nil
}

func (p *Prober) probeExiftool(ctx context.Context, path string, md *Metadata) error {
	done := make(chan exiftool.FileMetadata, 1)
	go func() {
		results := p.et.ExtractMetadata(path)
		if len(results) > 0 {
			done <- results[0]
			return
		}
		done <- exiftool.FileMetadata{File: path, Err: fmt.Errorf("no metadata returned")}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case fm := <-done:
		if fm.Err != nil {
			return fm.Err
		}
		for _, tag := range TagsOfInterest {
			group, field, _ := strings.Cut(tag, ":")
			if v, ok := lookupTag(fm.Fields, group, field); ok {
				md.Tags[tag] = v
			}
		}
		if w, ok := fm.Fields["ImageWidth"]; ok {
			if iw, ok := toInt(w); ok {
				md.Width = &iw
			}
		}
		if h, ok := fm.Fields["ImageHeight"]; ok {
			if ih, ok := toInt(h); ok {
				md.Height = &ih
			}
		}
		return nil
	}
}

// lookupTag handles exiftool's flattened field naming: fields usually come
// back keyed by bare tag name ("DateTimeOriginal"), occasionally prefixed
// with their group ("EXIF:DateTimeOriginal") depending on flags. Try both.
func lookupTag(fields map[string]interface{}, group, field string) (string, bool) {
	if v, ok := fields[group+":"+field]; ok {
		return fmt.Sprintf("%v", v), true
	}
	if v, ok := fields[field]; ok {
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}

// probeGoexifFallback fills in EXIF:DateTimeOriginal-equivalent data using
// rwcarlsen/goexif when exiftool is unavailable or returned nothing. It only
// handles JPEG/HEIC, matching the teacher's original getExifDate scope.
func (p *Prober) probeGoexifFallback(path string, md *Metadata) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".heic" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return
	}
	if dt, err := x.DateTime(); err == nil {
		md.Tags["EXIF:DateTimeOriginal"] = dt.Format("2006:01:02 15:04:05")
	}
	if tag, err := x.Get(exif.PixelXDimension); err == nil {
		if w, err := tag.Int(0); err == nil {
			md.Width = &w
		}
	}
	if tag, err := x.Get(exif.PixelYDimension); err == nil {
		if h, err := tag.Int(0); err == nil {
			md.Height = &h
		}
	}
}

// probeDimensions fills Width/Height from the stdlib image decoder when the
// metadata path above didn't already find them — cheap (header-only) and
// covers PNG/GIF which rarely carry EXIF.
func (p *Prober) probeDimensions(path string, md *Metadata) {
	if md.Width != nil && md.Height != nil {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return
	}
	if md.Width == nil {
		w := cfg.Width
		md.Width = &w
	}
	if md.Height == nil {
		h := cfg.Height
		md.Height = &h
	}
}

// ProbeVideo shells out to ffprobe for QuickTime:CreateDate, mirroring the
// teacher's getVideoCreationDate. Kept separate from the exiftool path
// because exiftool's video tag coverage is inconsistent across containers;
// ffprobe is the more reliable source for creation_time on mp4/mov/mkv/webm.
func ProbeVideo(ctx context.Context, path string, timeout time.Duration) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "quiet", "-print_format", "json", "-show_format", path)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	tags, err := parseFFProbeCreationTime(out.Bytes())
	if err != nil {
		return nil, nil // absence of a tag is not an error, per contract
	}
	return tags, nil
}

// WriteTags rewrites metadata on dst (never src) using exiftool's
// "overwrite original" mode so no sidecar .bak file is produced, per
// spec.md §4.9 step 3. assignments maps group-qualified tag names (e.g.
// "EXIF:DateTimeOriginal") to their new values.
func (p *Prober) WriteTags(ctx context.Context, dst string, assignments map[string]string) error {
	if len(assignments) == 0 {
		return nil
	}
	args := make([]string, 0, len(assignments)+2)
	for tag, val := range assignments {
		args = append(args, fmt.Sprintf("-%s=%s", tag, val))
	}
	args = append(args, "-overwrite_original", dst)

	bin := p.toolPath
	if bin == "" {
		bin = "exiftool"
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &Error{Path: dst, Err: fmt.Errorf("%v: %s", err, strings.TrimSpace(string(out)))}
	}
	return nil
}
