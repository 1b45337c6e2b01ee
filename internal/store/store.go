package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mediaparser/internal/diskspace"
	"mediaparser/internal/errs"
)

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// NewFile is the staging input to CreateImportJob: one source file about
// to be copied into the job's working directory.
type NewFile struct {
	SourcePath string
	FileSize   int64
}

// CreateImportJob stages files into workspace/uploads/job_{id}/ and creates
// the job + file rows, all inside one transaction so a crash mid-staging
// never leaves an orphaned job. storageRoot is the workspace root; the
// job-specific subdirectory is derived from the freshly assigned id.
func (s *Store) CreateImportJob(ctx context.Context, storageRoot string, files []NewFile) (jobID int64, fileIDs []int64, err error) {
	if len(files) == 0 {
		return 0, nil, fmt.Errorf("%w: no files to import", errs.ErrValidation)
	}

	var totalSize int64
	for _, f := range files {
		totalSize += f.FileSize
	}
	if err := diskspace.RequireFree(storageRoot, totalSize); err != nil {
		return 0, nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	res, err := tx.ExecContext(ctx,
		`INSERT INTO jobs (kind, status, storage_dir, progress_total, created_at) VALUES (?, ?, ?, ?, ?)`,
		JobKindImport, JobPending, "", len(files), now)
	if err != nil {
		return 0, nil, err
	}
	jobID, err = res.LastInsertId()
	if err != nil {
		return 0, nil, err
	}

	storageDir := filepath.Join(storageRoot, "uploads", fmt.Sprintf("job_%d", jobID))
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return 0, nil, fmt.Errorf("%w: staging directory: %v", errs.ErrValidation, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE jobs SET storage_dir = ? WHERE id = ?`, storageDir, jobID); err != nil {
		return 0, nil, err
	}

	fileIDs = make([]int64, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f.SourcePath); err != nil {
			return 0, nil, fmt.Errorf("%w: %s: %v", errs.ErrValidation, f.SourcePath, err)
		}
		dst := filepath.Join(storageDir, filepath.Base(f.SourcePath))
		if err := copyFile(f.SourcePath, dst); err != nil {
			return 0, nil, fmt.Errorf("%w: staging %s: %v", errs.ErrValidation, f.SourcePath, err)
		}

		r, err := tx.ExecContext(ctx,
			`INSERT INTO files (job_id, original_path, original_filename, file_size, confidence)
			 VALUES (?, ?, ?, ?, ?)`,
			jobID, dst, filepath.Base(f.SourcePath), f.FileSize, ConfidenceNone)
		if err != nil {
			return 0, nil, err
		}
		id, err := r.LastInsertId()
		if err != nil {
			return 0, nil, err
		}
		fileIDs = append(fileIDs, id)
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, err
	}
	return jobID, fileIDs, nil
}

// CreateExportJob registers an export run over an already-ingested file
// set, reusing the same Job row shape and progress fields an import job
// uses, per spec.md's "export jobs reference the same files." storageDir
// is only descriptive here; C9 writes into the output tree, not a
// job-owned staging directory.
func (s *Store) CreateExportJob(ctx context.Context, storageDir string, fileIDs []int64) (int64, error) {
	if len(fileIDs) == 0 {
		return 0, fmt.Errorf("%w: no files to export", errs.ErrValidation)
	}
	now := formatTime(time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (kind, status, storage_dir, progress_total, created_at) VALUES (?, ?, ?, ?, ?)`,
		JobKindExport, JobPending, storageDir, len(fileIDs), now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	buf := make([]byte, 64*1024)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			return rerr
		}
	}
}

// GetJob fetches a job by id.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, status, storage_dir, progress_current, progress_total, error_count,
		        current_filename, message, created_at, started_at, completed_at
		 FROM jobs WHERE id = ?`, id)

	var j Job
	var kind, status string
	var createdAt string
	var startedAt, completedAt sql.NullString
	if err := row.Scan(&j.ID, &kind, &status, &j.StorageDir, &j.ProgressCurrent, &j.ProgressTotal,
		&j.ErrorCount, &j.CurrentFilename, &j.Message, &createdAt, &startedAt, &completedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: job %d", errs.ErrNotFound, id)
		}
		return nil, err
	}
	j.Kind = JobKind(kind)
	j.Status = JobStatus(status)
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		j.CreatedAt = t
	}
	j.StartedAt = parseTimePtr(startedAt)
	j.CompletedAt = parseTimePtr(completedAt)
	return &j, nil
}

// TransitionJob moves a job to newStatus if the edge is legal, per the C7
// state machine. message is recorded for HALTED/FAILED explanations.
func (s *Store) TransitionJob(ctx context.Context, id int64, newStatus JobStatus, message string) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(job.Status, newStatus) {
		return fmt.Errorf("%w: %s -> %s", errs.ErrInvalidTransition, job.Status, newStatus)
	}

	query := `UPDATE jobs SET status = ?, message = ? WHERE id = ?`
	args := []interface{}{newStatus, message, id}
	switch newStatus {
	case JobRunning:
		if job.Status == JobPending {
			query = `UPDATE jobs SET status = ?, message = ?, started_at = ? WHERE id = ?`
			args = []interface{}{newStatus, message, formatTime(time.Now()), id}
		}
	case JobCompleted, JobCancelled, JobFailed, JobHalted:
		query = `UPDATE jobs SET status = ?, message = ?, completed_at = ? WHERE id = ?`
		args = []interface{}{newStatus, message, formatTime(time.Now()), id}
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// UpdateJobProgress records the orchestrator's batch-flush progress fields.
func (s *Store) UpdateJobProgress(ctx context.Context, id int64, current int, currentFilename string, errorCount int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET progress_current = ?, current_filename = ?, error_count = ? WHERE id = ?`,
		current, currentFilename, errorCount, id)
	return err
}

func scanFile(row interface {
	Scan(dest ...interface{}) error
}) (File, error) {
	var f File
	var chosenTS, finalTS, reviewedAt sql.NullString
	var candidatesJSON, contentHash, perceptualHash, timestampSource, mimeType, thumbnailPath, processingError sql.NullString
	var exactGroupID, exactConfidence, similarGroupID, similarConfidence, similarKind sql.NullString
	var width, height sql.NullInt64
	var confidence string
	var discarded int

	if err := row.Scan(
		&f.ID, &f.JobID, &f.OriginalPath, &f.OriginalFilename, &f.FileSize,
		&contentHash, &perceptualHash, &chosenTS, &timestampSource, &confidence, &candidatesJSON,
		&mimeType, &width, &height, &thumbnailPath, &processingError,
		&finalTS, &reviewedAt, &discarded,
		&exactGroupID, &exactConfidence, &similarGroupID, &similarConfidence, &similarKind,
	); err != nil {
		return File{}, err
	}

	f.ContentHash = contentHash.String
	f.PerceptualHash = perceptualHash.String
	f.TimestampSource = timestampSource.String
	f.Confidence = Confidence(confidence)
	f.MIMEType = mimeType.String
	f.ThumbnailPath = thumbnailPath.String
	f.ProcessingError = processingError.String
	f.Discarded = discarded != 0
	f.ExactGroupID = exactGroupID.String
	f.ExactGroupConfidence = Confidence(exactConfidence.String)
	f.SimilarGroupID = similarGroupID.String
	f.SimilarGroupConfidence = Confidence(similarConfidence.String)
	f.SimilarGroupKind = similarKind.String
	if width.Valid {
		f.Width = int(width.Int64)
	}
	if height.Valid {
		f.Height = int(height.Int64)
	}
	f.ChosenTimestamp = parseTimePtr(chosenTS)
	f.FinalTimestamp = parseTimePtr(finalTS)
	f.ReviewedAt = parseTimePtr(reviewedAt)
	if candidatesJSON.Valid && candidatesJSON.String != "" {
		_ = json.Unmarshal([]byte(candidatesJSON.String), &f.Candidates)
	}
	return f, nil
}

const fileColumns = `id, job_id, original_path, original_filename, file_size,
	content_hash, perceptual_hash, chosen_timestamp, timestamp_source, confidence, candidates_json,
	mime_type, width, height, thumbnail_path, processing_error,
	final_timestamp, reviewed_at, discarded,
	exact_group_id, exact_group_confidence, similar_group_id, similar_group_confidence, similar_group_kind`

// GetFile fetches one file with its full candidate set.
func (s *Store) GetFile(ctx context.Context, id int64) (*File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: file %d", errs.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// modeClause returns the WHERE fragment for a given ListMode,
// implementing the invariant that discarded files are excluded from every
// mode except "discarded" and "all" (spec.md invariant 5).
func modeClause(mode ListMode) string {
	switch mode {
	case ModeDuplicates:
		return `exact_group_id IS NOT NULL AND discarded = 0`
	case ModeSimilar:
		return `similar_group_id IS NOT NULL AND discarded = 0`
	case ModeUnreviewed:
		return `reviewed_at IS NULL AND discarded = 0`
	case ModeReviewed:
		return `reviewed_at IS NOT NULL AND discarded = 0`
	case ModeDiscarded:
		return `discarded = 1`
	case ModeFailed:
		return `processing_error IS NOT NULL AND discarded = 0`
	default:
		return `1 = 1`
	}
}

func sortColumn(field SortField) string {
	switch field {
	case SortDetectedTimestamp:
		return "chosen_timestamp"
	case SortFileSize:
		return "file_size"
	case SortOriginalTimestamp:
		return "chosen_timestamp"
	default:
		return "original_filename"
	}
}

// ListJobFiles returns one page of a job's files under the given mode and
// optional confidence filter, plus the total row count for that filter
// (for pagination UI), per spec.md §4.8/§6.
func (s *Store) ListJobFiles(ctx context.Context, jobID int64, q ListFilesQuery) ([]File, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 50
	}
	order := "ASC"
	if q.Order == OrderDesc {
		order = "DESC"
	}

	where := fmt.Sprintf("job_id = ? AND (%s)", modeClause(q.Mode))
	args := []interface{}{jobID}
	if q.Confidence != "" {
		where += " AND confidence = ?"
		args = append(args, string(q.Confidence))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listArgs := append(append([]interface{}{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM files WHERE %s ORDER BY %s %s LIMIT ? OFFSET ?`,
		fileColumns, where, sortColumn(q.Sort), order)

	rows, err := s.db.QueryContext(ctx, query, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, f)
	}
	return out, total, rows.Err()
}

// UpdateFilesBatch applies a batch of processing results transactionally —
// either all of them land or none do, per spec.md §5 "Batch commits are
// transactional".
func (s *Store) UpdateFilesBatch(ctx context.Context, records []ResultRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE files SET
			content_hash = ?, perceptual_hash = ?, chosen_timestamp = ?, timestamp_source = ?,
			confidence = ?, candidates_json = ?, mime_type = ?, width = ?, height = ?,
			thumbnail_path = ?, processing_error = ?
		WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		candidatesJSON, err := json.Marshal(r.Candidates)
		if err != nil {
			return err
		}
		var width, height interface{}
		if r.Width > 0 {
			width = r.Width
		}
		if r.Height > 0 {
			height = r.Height
		}
		if _, err := stmt.ExecContext(ctx,
			nullableString(r.ContentHash), nullableString(r.PerceptualHash),
			nullableTime(r.ChosenTimestamp), nullableString(r.TimestampSource),
			string(r.Confidence), string(candidatesJSON), nullableString(r.MIMEType),
			width, height, nullableString(r.ThumbnailPath), nullableString(r.ProcessingError),
			r.FileID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ApplyGroupings persists C6's output for a job, one row update per
// grouped file.
func (s *Store) ApplyGroupings(ctx context.Context, groupings []GroupingUpdate) error {
	if len(groupings) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE files SET exact_group_id = ?, exact_group_confidence = ?,
			similar_group_id = ?, similar_group_confidence = ?, similar_group_kind = ?
		WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, g := range groupings {
		if _, err := stmt.ExecContext(ctx,
			nullableString(g.ExactGroupID), nullableString(g.ExactGroupConfidence),
			nullableString(g.SimilarGroupID), nullableString(g.SimilarGroupConfidence),
			nullableString(g.SimilarGroupKind), g.FileID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// MarkReviewed confirms a file's timestamp and appends a UserDecision row.
func (s *Store) MarkReviewed(ctx context.Context, fileID int64, finalTimestamp time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE files SET final_timestamp = ?, reviewed_at = ?, discarded = 0 WHERE id = ?`,
		formatTime(finalTimestamp), formatTime(now), fileID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_decisions (file_id, action, final_timestamp, created_at) VALUES (?, 'reviewed', ?, ?)`,
		fileID, formatTime(finalTimestamp), formatTime(now)); err != nil {
		return err
	}
	return tx.Commit()
}

// Unreview clears a file's review state.
func (s *Store) Unreview(ctx context.Context, fileID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE files SET reviewed_at = NULL WHERE id = ?`, fileID)
	return err
}

// Discard marks files discarded and clears both group ids, per invariant
// "discarded ⇒ no groups".
func (s *Store) Discard(ctx context.Context, fileIDs []int64) error {
	return s.bulkUpdate(ctx, fileIDs,
		`UPDATE files SET discarded = 1, exact_group_id = NULL, exact_group_confidence = NULL,
		 similar_group_id = NULL, similar_group_confidence = NULL, similar_group_kind = NULL WHERE id = ?`)
}

// Undiscard clears the discarded flag. Group membership is not restored —
// a discarded file must be re-grouped by a subsequent duplicate-detection
// pass, since its prior group may have been resolved away in the meantime.
func (s *Store) Undiscard(ctx context.Context, fileIDs []int64) error {
	return s.bulkUpdate(ctx, fileIDs, `UPDATE files SET discarded = 0 WHERE id = ?`)
}

func (s *Store) bulkUpdate(ctx context.Context, fileIDs []int64, query string) error {
	if len(fileIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range fileIDs {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ResolveExactGroup discards every member of group_id except keepFileID.
func (s *Store) ResolveExactGroup(ctx context.Context, groupID string, keepFileID int64) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM files WHERE exact_group_id = ? AND id != ?`, groupID, keepFileID)
	if err != nil {
		return err
	}
	var others []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		others = append(others, id)
	}
	rows.Close()
	return s.Discard(ctx, others)
}

// ResolveSimilarGroup discards members of group_id not present in
// keepFileIDs. Similar groups allow multiple keepers, per spec.md §4.8.
func (s *Store) ResolveSimilarGroup(ctx context.Context, groupID string, keepFileIDs []int64) error {
	keep := make(map[int64]bool, len(keepFileIDs))
	for _, id := range keepFileIDs {
		keep[id] = true
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM files WHERE similar_group_id = ?`, groupID)
	if err != nil {
		return err
	}
	var others []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if !keep[id] {
			others = append(others, id)
		}
	}
	rows.Close()
	return s.Discard(ctx, others)
}

// KeepAllSimilar clears similar_group_id for every member of group_id
// without discarding anyone.
func (s *Store) KeepAllSimilar(ctx context.Context, groupID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE files SET similar_group_id = NULL, similar_group_confidence = NULL, similar_group_kind = NULL
		 WHERE similar_group_id = ?`, groupID)
	return err
}

// RemoveFromSimilarGroup drops one file out of its similar group without
// discarding it or affecting the rest of the group.
func (s *Store) RemoveFromSimilarGroup(ctx context.Context, fileID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE files SET similar_group_id = NULL, similar_group_confidence = NULL, similar_group_kind = NULL
		 WHERE id = ?`, fileID)
	return err
}

// Summary returns per-mode row counts for the review UI's filter chips.
func (s *Store) Summary(ctx context.Context, jobID int64) (Summary, error) {
	var sum Summary
	modes := []struct {
		mode   ListMode
		target *int
	}{
		{ModeAll, &sum.All},
		{ModeDuplicates, &sum.Duplicates},
		{ModeSimilar, &sum.Similar},
		{ModeUnreviewed, &sum.Unreviewed},
		{ModeReviewed, &sum.Reviewed},
		{ModeDiscarded, &sum.Discarded},
		{ModeFailed, &sum.Failed},
	}
	for _, m := range modes {
		query := `SELECT COUNT(*) FROM files WHERE job_id = ? AND (` + modeClause(m.mode) + `)`
		if err := s.db.QueryRowContext(ctx, query, jobID).Scan(m.target); err != nil {
			return Summary{}, err
		}
	}
	return sum, nil
}

// GetSetting reads a key, returning ("", false) when unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// PutSetting upserts a key/value pair.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// GetOrCreateTag returns the tag row for name, creating it if absent.
func (s *Store) GetOrCreateTag(ctx context.Context, name string) (Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	var t Tag
	err := s.db.QueryRowContext(ctx, `SELECT id, name, use_count FROM tags WHERE name = ?`, name).
		Scan(&t.ID, &t.Name, &t.UseCount)
	if err == nil {
		return t, nil
	}
	if err != sql.ErrNoRows {
		return Tag{}, err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO tags (name, use_count) VALUES (?, 0)`, name)
	if err != nil {
		return Tag{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Tag{}, err
	}
	return Tag{ID: id, Name: name}, nil
}

// ListTags returns every tag ranked by usage, most-used first.
func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, use_count FROM tags ORDER BY use_count DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.UseCount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UseCount > out[j].UseCount })
	return out, rows.Err()
}

// AddFileTags attaches tags (created on demand) to fileID, incrementing
// each tag's use_count, and skips tags already attached.
func (s *Store) AddFileTags(ctx context.Context, fileID int64, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		var tagID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&tagID)
		if err == sql.ErrNoRows {
			res, ierr := tx.ExecContext(ctx, `INSERT INTO tags (name, use_count) VALUES (?, 0)`, name)
			if ierr != nil {
				return ierr
			}
			tagID, err = res.LastInsertId()
			if err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO file_tags (file_id, tag_id) VALUES (?, ?)`, fileID, tagID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			if _, err := tx.ExecContext(ctx, `UPDATE tags SET use_count = use_count + 1 WHERE id = ?`, tagID); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// RemoveFileTags detaches tags from fileID, decrementing use_count.
func (s *Store) RemoveFileTags(ctx context.Context, fileID int64, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		var tagID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&tagID)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM file_tags WHERE file_id = ? AND tag_id = ?`, fileID, tagID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE tags SET use_count = MAX(0, use_count - 1) WHERE id = ?`, tagID); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// FileTags returns the tag names attached to fileID.
func (s *Store) FileTags(ctx context.Context, fileID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tags.name FROM tags
		JOIN file_tags ON file_tags.tag_id = tags.id
		WHERE file_tags.file_id = ?
		ORDER BY tags.name`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// FilesPendingProcessing returns files for a job whose chosen_timestamp is
// still null, in stable lexicographic filename order — the resume-path
// query named in spec.md §4.7.
func (s *Store) FilesPendingProcessing(ctx context.Context, jobID int64) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE job_id = ? AND chosen_timestamp IS NULL
		 ORDER BY original_filename ASC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
