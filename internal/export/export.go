// Package export implements C9, the Export Planner: for each non-discarded
// file, copy its bytes to a deterministic destination path and rewrite
// metadata on the copy only, never touching the source. The copy-verify-
// rename sequence follows the same shape as the teacher's
// copyFileWithHashAndTimestamps: write to a temp name in the destination
// directory, verify, then rename — so a crash mid-copy never leaves a
// half-written file at the final name.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mediaparser/internal/probe"
	"mediaparser/internal/store"
)

// Plan is the deterministic destination for one file, computed before any
// bytes are copied so dry runs and UI previews can show it.
type Plan struct {
	FileID      int64
	Destination string
	AutoTags    []string
}

// ComputePath implements spec.md §4.9's path rule: output/YYYY/<stamp>.ext
// when a timestamp is known, output/unknown/<original_filename> otherwise.
func ComputePath(outputRoot string, f store.File) string {
	ts := f.FinalTimestamp
	if ts == nil {
		ts = f.ChosenTimestamp
	}
	ext := filepath.Ext(f.OriginalFilename)

	if ts == nil {
		return filepath.Join(outputRoot, "unknown", f.OriginalFilename)
	}
	year := fmt.Sprintf("%04d", ts.Year())
	stamp := ts.UTC().Format("20060102_150405")
	return filepath.Join(outputRoot, year, stamp+ext)
}

// ResolveCollision appends _001, _002, ... before the extension until path
// does not already exist on disk, per spec.md §4.9's collision rule.
func ResolveCollision(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path, nil
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := base + "_" + pad3(i) + ext
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
}

func pad3(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

// AutoTags derives tags from each intermediate directory of the original
// path (lowercased), deduplicated and in order of first appearance, per
// spec.md §4.9 "Auto-tags".
func AutoTags(originalPath string) []string {
	dir := filepath.Dir(originalPath)
	parts := strings.Split(filepath.ToSlash(dir), "/")

	seen := make(map[string]bool)
	var tags []string
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || part == "." || part == "/" {
			continue
		}
		if !seen[part] {
			seen[part] = true
			tags = append(tags, part)
		}
	}
	return tags
}

// Planner runs the full C9 flow for a job's files.
type Planner struct {
	Prober     *probe.Prober
	OutputRoot string
}

// Result records the outcome of exporting one file.
type Result struct {
	FileID      int64
	Destination string
	Error       error
}

// ExportFile copies f's working copy to its deterministic destination,
// verifies, rewrites metadata, and renames into place. On any error the
// partial destination file is removed and the error is returned for the
// caller to record and continue with the next file (spec.md §4.9 step 5).
// userTags are the file's user-assigned tags (internal/store.Store.FileTags);
// they are merged with AutoTags(f.OriginalPath) and written to the
// destination's IPTC:Keywords and XMP:Subject, per spec.md §4.9's "auto-tags
// plus any user-assigned tags" requirement.
func (p *Planner) ExportFile(ctx context.Context, f store.File, userTags []string) Result {
	dest := ComputePath(p.OutputRoot, f)
	dest, err := ResolveCollision(dest)
	if err != nil {
		return Result{FileID: f.ID, Error: err}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{FileID: f.ID, Error: err}
	}

	tmp := dest + ".tmp"
	if err := p.copyAndVerify(f.OriginalPath, tmp); err != nil {
		os.Remove(tmp)
		return Result{FileID: f.ID, Error: err}
	}

	tags := mergeTags(AutoTags(f.OriginalPath), userTags)
	if err := p.rewriteMetadata(ctx, tmp, f, tags); err != nil {
		os.Remove(tmp)
		return Result{FileID: f.ID, Error: err}
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return Result{FileID: f.ID, Error: err}
	}

	return Result{FileID: f.ID, Destination: dest}
}

func (p *Planner) copyAndVerify(src, tmp string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, in)
	closeErr := out.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}
	if n != srcInfo.Size() {
		return fmt.Errorf("export: copied %d bytes, want %d", n, srcInfo.Size())
	}

	dstInfo, err := os.Stat(tmp)
	if err != nil {
		return err
	}
	if dstInfo.Size() != srcInfo.Size() {
		return fmt.Errorf("export: destination size %d != source size %d", dstInfo.Size(), srcInfo.Size())
	}
	return nil
}

// rewriteMetadata writes corrected timestamp tags and keyword tags to the
// destination-only copy, per spec.md §4.9 step 3.
func (p *Planner) rewriteMetadata(ctx context.Context, dst string, f store.File, tags []string) error {
	ts := f.FinalTimestamp
	if ts == nil {
		ts = f.ChosenTimestamp
	}

	assignments := make(map[string]string)
	if ts != nil {
		stamp := ts.UTC().Format("2006:01:02 15:04:05")
		assignments["EXIF:DateTimeOriginal"] = stamp
		assignments["EXIF:CreateDate"] = stamp
		if strings.HasPrefix(f.MIMEType, "video/") {
			assignments["QuickTime:CreateDate"] = stamp
			assignments["QuickTime:ModifyDate"] = stamp
		}
	}
	if len(tags) > 0 {
		joined := strings.Join(tags, ", ")
		assignments["IPTC:Keywords"] = joined
		assignments["XMP:Subject"] = joined
	}

	if p.Prober == nil || len(assignments) == 0 {
		return nil
	}
	return p.Prober.WriteTags(ctx, dst, assignments)
}

// mergeTags combines auto-derived and user-assigned tags, deduplicated and
// in order of first appearance (auto-tags first), per spec.md §4.9.
func mergeTags(auto, user []string) []string {
	seen := make(map[string]bool, len(auto)+len(user))
	var merged []string
	for _, t := range append(append([]string{}, auto...), user...) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}
	return merged
}
