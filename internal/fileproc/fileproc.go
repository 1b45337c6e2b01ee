// Package fileproc implements C5, the File Processor: a pure function that
// composes the probe, timestamp, and hash packages into a single per-file
// result record. It is the one place in the pipeline allowed to touch the
// filesystem for reads and thumbnail writes; it never mutates a shared
// store and never writes to the source path, mirroring the read-only
// FileCandidate snapshot the teacher's pipeline.go builds before any
// network or database call.
package fileproc

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"mediaparser/internal/errs"
	"mediaparser/internal/hash"
	"mediaparser/internal/probe"
	"mediaparser/internal/thumbnail"
	"mediaparser/internal/timestamp"
)

// Input is the read-only File snapshot a worker hands to Process. It
// carries only what C5 needs, not the full persisted File record.
type Input struct {
	Path         string
	OriginalName string
	JobStorageDir string
}

// Result is the plain value C5 returns — never a pointer into shared
// state, and safe to hand across goroutine boundaries without locking.
type Result struct {
	ContentHash      string
	PerceptualHash   string // empty when not applicable
	ChosenTimestamp  time.Time
	TimestampSource  string
	Confidence       timestamp.Tier
	Candidates       []timestamp.Candidate
	MIMEType         string
	Width, Height    int // zero when dimensions are unknown
	ThumbnailPath    string
	ProcessingError  *errs.ProcessingError
}

// Processor bundles the stateless dependencies C5 composes, plus a bounded
// metadata cache keyed by content hash. The cache holds no references to
// shared stores or source paths — only whole derived Results (hashes,
// timestamps and candidates, MIME, dimensions, thumbnail path), returned
// as-is when a later file has the same content hash, which is common when a source tree contains re-exported
// duplicates. One Processor is safely shared across all workers in a
// job's pool: the cache has its own internal locking.
type Processor struct {
	Prober       *probe.Prober
	Thumbnailer  *thumbnail.Generator
	Location     *time.Location
	MinValidYear int

	cache *lru.Cache[string, Result]
}

// NewProcessor builds a Processor. cacheSize bounds the metadata-reuse
// cache by distinct content hash; 0 disables caching entirely.
func NewProcessor(prober *probe.Prober, thumbnailer *thumbnail.Generator, loc *time.Location, minValidYear, cacheSize int) *Processor {
	p := &Processor{Prober: prober, Thumbnailer: thumbnailer, Location: loc, MinValidYear: minValidYear}
	if cacheSize > 0 {
		if c, err := lru.New[string, Result](cacheSize); err == nil {
			p.cache = c
		}
	}
	return p
}

// Process runs C5 end to end. It never returns a non-nil error — any
// failure is captured as Result.ProcessingError, per spec.md
// §4.5 ("on any caught exception, populated, other fields may be null") —
// so the job engine can keep the file's row in the batch instead of losing
// it to a channel-level error path.
func (p *Processor) Process(ctx context.Context, in Input) Result {
	var res Result

	contentHash, err := hash.Content(in.Path)
	if err != nil {
		res.ProcessingError = &errs.ProcessingError{Path: in.Path, Op: "content_hash", Err: err}
		return res
	}
	res.ContentHash = contentHash

	if p.cache != nil {
		if cached, ok := p.cache.Get(contentHash); ok {
			cached.ContentHash = contentHash
			return cached
		}
	}

	res.MIMEType = detectMIME(in.Path)

	if strings.HasPrefix(res.MIMEType, "image/") {
		if ph, err := hash.Perceptual(in.Path); err == nil {
			res.PerceptualHash = ph
		}
	}

	md, err := p.Prober.Probe(ctx, in.Path)
	if err != nil {
		res.ProcessingError = &errs.ProcessingError{Path: in.Path, Op: "probe", Err: err}
		return res
	}
	if strings.HasPrefix(res.MIMEType, "video/") && p.Prober.Available() {
		if vtags, err := probe.ProbeVideo(ctx, in.Path, 30*time.Second); err == nil {
			for k, v := range vtags {
				md.Tags[k] = v
			}
		}
	}
	if md.Width != nil {
		res.Width = *md.Width
	}
	if md.Height != nil {
		res.Height = *md.Height
	}

	raw := timestamp.Extract(md.Tags, in.OriginalName, p.Location)
	scored := timestamp.Score(raw, p.MinValidYear)
	res.ChosenTimestamp = scored.Chosen
	res.TimestampSource = scored.Source
	res.Confidence = scored.Confidence
	res.Candidates = scored.Candidates

	if p.Thumbnailer != nil {
		if tp, err := p.Thumbnailer.Generate(ctx, in.Path, in.JobStorageDir, res.MIMEType); err == nil {
			res.ThumbnailPath = tp
		}
		// A thumbnail failure is non-fatal: spec.md §4.3/§4.5 never treat a
		// missing derived asset as a processing error.
	}

	if p.cache != nil {
		p.cache.Add(contentHash, res)
	}
	return res
}

// detectMIME sniffs the file's content type from its leading bytes via the
// stdlib, falling back to an extension guess when the file can't be
// opened. net/http.DetectContentType has no third-party equivalent in the
// corpus; every example repo that needs MIME detection uses it directly.
func detectMIME(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return extensionMIME(path)
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	ct := http.DetectContentType(buf[:n])
	if ct == "application/octet-stream" {
		if guess := extensionMIME(path); guess != "" {
			return guess
		}
	}
	return ct
}

func extensionMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".heic", ".heif":
		return "image/heic"
	case ".mov":
		return "video/quicktime"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	}
	return ""
}
