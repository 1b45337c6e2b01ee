package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), DefaultOptions(filepath.Join(dir, "review.db")))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func writeSourceFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("source bytes for "+name), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}
	return path
}

func TestCreateImportJobStagesFiles(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()

	src := writeSourceFile(t, t.TempDir(), "photo1.jpg")
	jobID, fileIDs, err := s.CreateImportJob(ctx, root, []NewFile{{SourcePath: src, FileSize: 10}})
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}
	if len(fileIDs) != 1 {
		t.Fatalf("got %d file ids, want 1", len(fileIDs))
	}

	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != JobPending {
		t.Errorf("Status = %v, want pending", job.Status)
	}
	if job.ProgressTotal != 1 {
		t.Errorf("ProgressTotal = %d, want 1", job.ProgressTotal)
	}

	f, err := s.GetFile(ctx, fileIDs[0])
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if _, err := os.Stat(f.OriginalPath); err != nil {
		t.Errorf("staged file not found at %s: %v", f.OriginalPath, err)
	}
}

func TestTransitionJobEnforcesStateMachine(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()

	src := writeSourceFile(t, t.TempDir(), "a.jpg")
	jobID, _, err := s.CreateImportJob(ctx, root, []NewFile{{SourcePath: src}})
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}

	if err := s.TransitionJob(ctx, jobID, JobCompleted, ""); err == nil {
		t.Error("expected InvalidTransition going straight from pending to completed")
	}

	if err := s.TransitionJob(ctx, jobID, JobRunning, ""); err != nil {
		t.Fatalf("pending -> running: %v", err)
	}
	job, _ := s.GetJob(ctx, jobID)
	if job.StartedAt == nil {
		t.Error("StartedAt should be set on entering running")
	}

	if err := s.TransitionJob(ctx, jobID, JobPaused, ""); err != nil {
		t.Fatalf("running -> paused: %v", err)
	}
	if err := s.TransitionJob(ctx, jobID, JobCompleted, ""); err == nil {
		t.Error("expected InvalidTransition from paused straight to completed")
	}
}

func TestDiscardClearsGroupIDs(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()

	src := writeSourceFile(t, t.TempDir(), "a.jpg")
	jobID, fileIDs, err := s.CreateImportJob(ctx, root, []NewFile{{SourcePath: src}})
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}
	_ = jobID

	if err := s.ApplyGroupings(ctx, []GroupingUpdate{
		{FileID: fileIDs[0], ExactGroupID: "abc123", ExactGroupConfidence: "high"},
	}); err != nil {
		t.Fatalf("ApplyGroupings: %v", err)
	}

	if err := s.Discard(ctx, fileIDs); err != nil {
		t.Fatalf("Discard: %v", err)
	}

	f, err := s.GetFile(ctx, fileIDs[0])
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if !f.Discarded {
		t.Error("file should be discarded")
	}
	if f.ExactGroupID != "" {
		t.Errorf("ExactGroupID = %q, want empty after discard", f.ExactGroupID)
	}
}

func TestListJobFilesExcludesDiscardedFromUnreviewed(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	srcA := writeSourceFile(t, dir, "a.jpg")
	srcB := writeSourceFile(t, dir, "b.jpg")
	jobID, fileIDs, err := s.CreateImportJob(ctx, root, []NewFile{{SourcePath: srcA}, {SourcePath: srcB}})
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}

	if err := s.Discard(ctx, fileIDs[:1]); err != nil {
		t.Fatalf("Discard: %v", err)
	}

	files, total, err := s.ListJobFiles(ctx, jobID, ListFilesQuery{Mode: ModeUnreviewed, Page: 1, PageSize: 50})
	if err != nil {
		t.Fatalf("ListJobFiles: %v", err)
	}
	if total != 1 || len(files) != 1 {
		t.Fatalf("got %d/%d unreviewed files, want 1", len(files), total)
	}
	if files[0].ID != fileIDs[1] {
		t.Errorf("unreviewed file = %d, want the non-discarded file %d", files[0].ID, fileIDs[1])
	}
}

func TestMarkReviewedThenUnreview(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()

	src := writeSourceFile(t, t.TempDir(), "a.jpg")
	_, fileIDs, err := s.CreateImportJob(ctx, root, []NewFile{{SourcePath: src}})
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}

	ts := time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)
	if err := s.MarkReviewed(ctx, fileIDs[0], ts); err != nil {
		t.Fatalf("MarkReviewed: %v", err)
	}
	f, _ := s.GetFile(ctx, fileIDs[0])
	if f.ReviewedAt == nil {
		t.Error("ReviewedAt should be set")
	}
	if f.FinalTimestamp == nil || !f.FinalTimestamp.Equal(ts) {
		t.Errorf("FinalTimestamp = %v, want %v", f.FinalTimestamp, ts)
	}

	if err := s.Unreview(ctx, fileIDs[0]); err != nil {
		t.Fatalf("Unreview: %v", err)
	}
	f, _ = s.GetFile(ctx, fileIDs[0])
	if f.ReviewedAt != nil {
		t.Error("ReviewedAt should be cleared after Unreview")
	}
}

func TestTagLifecycle(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()

	src := writeSourceFile(t, t.TempDir(), "a.jpg")
	_, fileIDs, err := s.CreateImportJob(ctx, root, []NewFile{{SourcePath: src}})
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}

	if err := s.AddFileTags(ctx, fileIDs[0], []string{"Vacation", "Beach"}); err != nil {
		t.Fatalf("AddFileTags: %v", err)
	}
	tags, err := s.FileTags(ctx, fileIDs[0])
	if err != nil {
		t.Fatalf("FileTags: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("got %d tags, want 2", len(tags))
	}

	all, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(all) != 2 || all[0].UseCount != 1 {
		t.Errorf("ListTags = %+v, want 2 tags each with use_count 1", all)
	}

	if err := s.RemoveFileTags(ctx, fileIDs[0], []string{"beach"}); err != nil {
		t.Fatalf("RemoveFileTags: %v", err)
	}
	tags, _ = s.FileTags(ctx, fileIDs[0])
	if len(tags) != 1 || tags[0] != "vacation" {
		t.Errorf("tags after removal = %v, want [vacation]", tags)
	}
}

// stageThreeFiles creates a job with three files and groups them into one
// exact-duplicate group and one similar group, for the resolution tests
// below — mirroring spec.md §8 scenario A (keep=a.jpg discards a.png).
func stageThreeFiles(t *testing.T, s *Store, ctx context.Context) (jobID int64, ids []int64) {
	t.Helper()
	srcDir := t.TempDir()
	files := []NewFile{
		{SourcePath: writeSourceFile(t, srcDir, "a.jpg"), FileSize: 10},
		{SourcePath: writeSourceFile(t, srcDir, "a.png"), FileSize: 10},
		{SourcePath: writeSourceFile(t, srcDir, "b.jpg"), FileSize: 10},
	}
	jobID, ids, err := s.CreateImportJob(ctx, t.TempDir(), files)
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}

	err = s.ApplyGroupings(ctx, []GroupingUpdate{
		{FileID: ids[0], ExactGroupID: "exact-1", ExactGroupConfidence: string(ConfidenceHigh)},
		{FileID: ids[1], ExactGroupID: "exact-1", ExactGroupConfidence: string(ConfidenceHigh)},
		{FileID: ids[2], SimilarGroupID: "similar-1", SimilarGroupConfidence: string(ConfidenceMedium), SimilarGroupKind: "burst"},
	})
	if err != nil {
		t.Fatalf("ApplyGroupings: %v", err)
	}
	return jobID, ids
}

func TestResolveExactGroupKeepsOneDiscardsRest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, ids := stageThreeFiles(t, s, ctx)

	if err := s.ResolveExactGroup(ctx, "exact-1", ids[0]); err != nil {
		t.Fatalf("ResolveExactGroup: %v", err)
	}

	kept, err := s.GetFile(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetFile(kept): %v", err)
	}
	if kept.Discarded {
		t.Error("kept file should not be discarded")
	}

	discarded, err := s.GetFile(ctx, ids[1])
	if err != nil {
		t.Fatalf("GetFile(discarded): %v", err)
	}
	if !discarded.Discarded {
		t.Error("other member of the exact group should be discarded")
	}
	if discarded.ExactGroupID != "" {
		t.Errorf("discarded file's ExactGroupID = %q, want cleared", discarded.ExactGroupID)
	}
}

func TestResolveSimilarGroupKeepsSelectedMembers(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	srcDir := t.TempDir()
	files := []NewFile{
		{SourcePath: writeSourceFile(t, srcDir, "c1.jpg"), FileSize: 10},
		{SourcePath: writeSourceFile(t, srcDir, "c2.jpg"), FileSize: 10},
		{SourcePath: writeSourceFile(t, srcDir, "c3.jpg"), FileSize: 10},
	}
	_, ids, err := s.CreateImportJob(ctx, t.TempDir(), files)
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}
	err = s.ApplyGroupings(ctx, []GroupingUpdate{
		{FileID: ids[0], SimilarGroupID: "similar-2", SimilarGroupConfidence: string(ConfidenceMedium), SimilarGroupKind: "burst"},
		{FileID: ids[1], SimilarGroupID: "similar-2", SimilarGroupConfidence: string(ConfidenceMedium), SimilarGroupKind: "burst"},
		{FileID: ids[2], SimilarGroupID: "similar-2", SimilarGroupConfidence: string(ConfidenceMedium), SimilarGroupKind: "burst"},
	})
	if err != nil {
		t.Fatalf("ApplyGroupings: %v", err)
	}

	if err := s.ResolveSimilarGroup(ctx, "similar-2", []int64{ids[0], ids[1]}); err != nil {
		t.Fatalf("ResolveSimilarGroup: %v", err)
	}

	for _, id := range []int64{ids[0], ids[1]} {
		f, err := s.GetFile(ctx, id)
		if err != nil {
			t.Fatalf("GetFile: %v", err)
		}
		if f.Discarded {
			t.Errorf("kept file %d should not be discarded", id)
		}
	}
	dropped, err := s.GetFile(ctx, ids[2])
	if err != nil {
		t.Fatalf("GetFile(dropped): %v", err)
	}
	if !dropped.Discarded {
		t.Error("file not in the keep list should be discarded")
	}
}

func TestKeepAllSimilarClearsGroupWithoutDiscarding(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, ids := stageThreeFiles(t, s, ctx)

	if err := s.KeepAllSimilar(ctx, "similar-1"); err != nil {
		t.Fatalf("KeepAllSimilar: %v", err)
	}

	f, err := s.GetFile(ctx, ids[2])
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if f.Discarded {
		t.Error("keep-all must not discard any group member")
	}
	if f.SimilarGroupID != "" {
		t.Errorf("SimilarGroupID = %q, want cleared", f.SimilarGroupID)
	}
}

func TestRemoveFromSimilarGroupDoesNotAffectOthers(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	srcDir := t.TempDir()
	files := []NewFile{
		{SourcePath: writeSourceFile(t, srcDir, "d1.jpg"), FileSize: 10},
		{SourcePath: writeSourceFile(t, srcDir, "d2.jpg"), FileSize: 10},
	}
	_, ids, err := s.CreateImportJob(ctx, t.TempDir(), files)
	if err != nil {
		t.Fatalf("CreateImportJob: %v", err)
	}
	err = s.ApplyGroupings(ctx, []GroupingUpdate{
		{FileID: ids[0], SimilarGroupID: "similar-3", SimilarGroupConfidence: string(ConfidenceMedium), SimilarGroupKind: "burst"},
		{FileID: ids[1], SimilarGroupID: "similar-3", SimilarGroupConfidence: string(ConfidenceMedium), SimilarGroupKind: "burst"},
	})
	if err != nil {
		t.Fatalf("ApplyGroupings: %v", err)
	}

	if err := s.RemoveFromSimilarGroup(ctx, ids[0]); err != nil {
		t.Fatalf("RemoveFromSimilarGroup: %v", err)
	}

	removed, err := s.GetFile(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetFile(removed): %v", err)
	}
	if removed.SimilarGroupID != "" {
		t.Errorf("SimilarGroupID = %q, want cleared", removed.SimilarGroupID)
	}
	if removed.Discarded {
		t.Error("removing from a similar group must not discard the file")
	}

	other, err := s.GetFile(ctx, ids[1])
	if err != nil {
		t.Fatalf("GetFile(other): %v", err)
	}
	if other.SimilarGroupID != "similar-3" {
		t.Errorf("other group member's SimilarGroupID changed unexpectedly, want similar-3, got %q", other.SimilarGroupID)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, ok, _ := s.GetSetting(ctx, "timezone"); ok {
		t.Error("unset setting should report ok=false")
	}
	if err := s.PutSetting(ctx, "timezone", "UTC"); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}
	v, ok, err := s.GetSetting(ctx, "timezone")
	if err != nil || !ok || v != "UTC" {
		t.Errorf("GetSetting = (%q, %v, %v), want (UTC, true, nil)", v, ok, err)
	}
}
