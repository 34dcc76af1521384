package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/Dosada05/court-scheduler/models"
)

// SnapshotArchive writes bracket snapshots as JSON objects, one per version.
type SnapshotArchive struct {
	uploader FileUploader
	prefix   string
}

func NewSnapshotArchive(uploader FileUploader, prefix string) *SnapshotArchive {
	if prefix == "" {
		prefix = "snapshots"
	}
	return &SnapshotArchive{uploader: uploader, prefix: prefix}
}

// ObjectKey is snapshots/tournament_<t>/bracket_<b>/v<version>-<unix>.json.
func (a *SnapshotArchive) ObjectKey(snap *models.Snapshot) string {
	return path.Join(
		a.prefix,
		fmt.Sprintf("tournament_%d", snap.TournamentID),
		fmt.Sprintf("bracket_%d", snap.BracketID),
		fmt.Sprintf("v%06d-%d.json", snap.Version, snap.GeneratedAt.Unix()),
	)
}

func (a *SnapshotArchive) Archive(ctx context.Context, snap *models.Snapshot) (*UploadResult, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return a.uploader.Upload(ctx, a.ObjectKey(snap), "application/json", bytes.NewReader(body))
}
