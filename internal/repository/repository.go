package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kivik/kivik/v4"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document conflict")
)

const (
	docTypeNote       = "note"
	docTypeVersion    = "version"
	docTypeTag        = "tag"
	docTypeNoteTag    = "note_tag"
	docTypeAttachment = "attachment"
)

// findPageSize bounds each Mango request; results are paged with bookmarks.
const findPageSize = 200

// mapStatus turns CouchDB 404/409 responses into the package sentinels.
func mapStatus(err error) error {
	switch kivik.HTTPStatus(err) {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	}
	return err
}

// findDocs runs a Mango query and follows bookmarks until every matching
// document has been scanned into a T.
func findDocs[T any](ctx context.Context, db *kivik.DB, selector map[string]interface{}, fields ...string) ([]T, error) {
	var docs []T
	bookmark := ""

	for {
		query := map[string]interface{}{
			"selector": selector,
			"limit":    findPageSize,
		}
		if len(fields) > 0 {
			query["fields"] = fields
		}
		if bookmark != "" {
			query["bookmark"] = bookmark
		}

		rows := db.Find(ctx, query)
		count := 0
		for rows.Next() {
			var doc T
			if err := rows.ScanDoc(&doc); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan document: %w", err)
			}
			docs = append(docs, doc)
			count++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to query documents: %w", err)
		}

		meta, err := rows.Metadata()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read query metadata: %w", err)
		}

		if count < findPageSize || meta.Bookmark == "" || meta.Bookmark == bookmark {
			return docs, nil
		}
		bookmark = meta.Bookmark
	}
}

type revDoc struct {
	ID  string `json:"_id"`
	Rev string `json:"_rev"`
}

// purgeDocs deletes every document matching selector. Documents removed
// concurrently by someone else are skipped.
func purgeDocs(ctx context.Context, db *kivik.DB, selector map[string]interface{}) error {
	docs, err := findDocs[revDoc](ctx, db, selector, "_id", "_rev")
	if err != nil {
		return err
	}

	for _, doc := range docs {
		if _, err := db.Delete(ctx, doc.ID, doc.Rev); err != nil {
			if kivik.HTTPStatus(err) == http.StatusNotFound {
				continue
			}
			return fmt.Errorf("failed to delete %s: %w", doc.ID, err)
		}
	}

	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
