package index

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/starford/sitedesk/internal/content"
)

// SyncResult counts what a Sync pass did.
type SyncResult struct {
	Indexed   int `json:"indexed"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

// Sync walks the content root and brings the index up to date:
//   - new/changed files are decoded and upserted
//   - files removed from disk, or no longer decodable, are deleted from the index
func Sync(db EntryIndex, scanner *content.Scanner, logger *slog.Logger) (SyncResult, error) {
	return reconcile(db, scanner, logger, nil)
}

func reconcile(db EntryIndex, scanner *content.Scanner, logger *slog.Logger, cb EventCallback) (SyncResult, error) {
	var res SyncResult
	checksums, err := db.AllChecksums()
	if err != nil {
		return res, err
	}

	disk := make(map[string]struct{}, len(checksums))
	err = scanner.Walk(func(r content.Result) {
		if r.Skipped != nil {
			res.Skipped++
			return
		}
		disk[r.Path] = struct{}{}

		prev, known := checksums[r.Path]
		if prev == checksum(r.Raw) {
			res.Unchanged++
			return
		}
		if err := IndexResult(db, r); err != nil {
			logger.Warn("sync: index failed", slog.String("path", r.Path), slog.String("error", err.Error()))
			return
		}
		res.Indexed++
		logger.Debug("sync: indexed", slog.String("path", r.Path))
		if cb != nil {
			if known {
				cb(EventUpdated, r.Path)
			} else {
				cb(EventCreated, r.Path)
			}
		}
	})
	if err != nil {
		return res, err
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteEntry(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		res.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
		if cb != nil {
			cb(EventDeleted, p)
		}
	}
	return res, nil
}

// IndexResult upserts a successfully loaded content file.
func IndexResult(db EntryIndex, r content.Result) error {
	e := r.Entry
	return db.UpsertEntry(Row{
		Path:       e.Path,
		ID:         e.ID,
		Collection: e.Collection,
		Lang:       e.Lang,
		Title:      e.Title(),
		Checksum:   checksum(r.Raw),
		Tags:       e.Tags,
		Draft:      e.Draft,
		UpdatedAt:  time.Now().UTC(),
	}, r.Document.Body)
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
