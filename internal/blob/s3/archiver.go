package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// CompetitionArchiveStore provides the read access the archiver needs:
// finalized competitions before a cutoff, and their participants.
type CompetitionArchiveStore interface {
	ListFinalizedBefore(ctx context.Context, before time.Time) ([]domain.Competition, error)
	Participants(ctx context.Context, competitionID int64) ([]domain.Participant, error)
}

// archivedCompetition is the JSONL record written for each settled
// competition, with its entrants inlined.
type archivedCompetition struct {
	domain.Competition
	Participants []domain.Participant `json:"participants"`
}

// ArchiveImpl implements domain.Archiver by querying the stores for settled
// history, serializing it to JSONL, and uploading the result to S3.
//
// The primary rows are intentionally NOT deleted here: the archive is an
// offload for reporting, not a move. Retention in the database is a
// separate, explicit operation.
type ArchiveImpl struct {
	writer       domain.BlobWriter
	competitions CompetitionArchiveStore
	audit        domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, competitions CompetitionArchiveStore, audit domain.AuditStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer:       writer,
		competitions: competitions,
		audit:        audit,
	}
}

// ArchiveCompetitions uploads every finalized competition that ended before
// the cutoff, with participants inlined, to
// archive/competitions/YYYY-MM.jsonl. The archival event is recorded in the
// audit log and the count of archived competitions is returned.
func (a *ArchiveImpl) ArchiveCompetitions(ctx context.Context, before time.Time) (int64, error) {
	comps, err := a.competitions.ListFinalizedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive competitions query: %w", err)
	}
	if len(comps) == 0 {
		return 0, nil
	}

	records := make([]archivedCompetition, 0, len(comps))
	for _, c := range comps {
		ps, err := a.competitions.Participants(ctx, c.ID)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive competition %d participants: %w", c.ID, err)
		}
		records = append(records, archivedCompetition{Competition: c, Participants: ps})
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive competitions marshal: %w", err)
	}

	path := archivePath("competitions", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive competitions upload: %w", err)
	}

	count := int64(len(records))

	if err := a.audit.Log(ctx, "archive.competitions", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive competitions audit log: %w", err)
	}

	return count, nil
}

// ArchiveAuditLog uploads every audit entry created before the cutoff to
// archive/audit_log/YYYY-MM.jsonl and returns the count.
func (a *ArchiveImpl) ArchiveAuditLog(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.audit.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit log query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit log marshal: %w", err)
	}

	path := archivePath("audit_log", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit log upload: %w", err)
	}

	return int64(len(entries)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/competitions/2026-02.jsonl
//	archive/audit_log/2026-02.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
