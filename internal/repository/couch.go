package repository

import (
	"context"
	"fmt"
	"net/http"

	"prochain-bridge/internal/remote"

	"github.com/go-kivik/kivik/v4"
)

const (
	docTypeChain   = "chain"
	docTypeLike    = "like"
	docTypeRating  = "rating"
	docTypeComment = "comment"
	docTypeFollow  = "follow"
	docTypePlugins = "plugins"
	docTypeShare   = "share"
)

// scanLimit bounds Mango queries that aggregate over every matching doc.
// CouchDB applies a default limit of 25 otherwise.
const scanLimit = 10000

func chainDocID(id string) string { return fmt.Sprintf("chain:%s", id) }

func likeDocID(chainID, userID string) string { return fmt.Sprintf("like:%s:%s", chainID, userID) }

func ratingDocID(chainID, userID string) string {
	return fmt.Sprintf("rating:%s:%s", chainID, userID)
}

func commentDocID(id string) string { return fmt.Sprintf("comment:%s", id) }

func followDocID(followerID, followeeID string) string {
	return fmt.Sprintf("follow:%s:%s", followerID, followeeID)
}

func pluginsDocID(userID string) string { return fmt.Sprintf("plugins:%s", userID) }

func shareDocID(id string) string { return fmt.Sprintf("share:%s", id) }

type revDoc struct {
	Rev string `json:"_rev"`
}

// currentRev returns the revision of docID, or "" when it does not exist.
func currentRev(ctx context.Context, db *kivik.DB, docID string) (string, error) {
	var doc revDoc
	if err := db.Get(ctx, docID).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return "", nil
		}
		return "", err
	}
	return doc.Rev, nil
}

// deleteIfExists removes docID. A missing document is not an error so that
// replayed deletes succeed.
func deleteIfExists(ctx context.Context, db *kivik.DB, op, docID string) error {
	rev, err := currentRev(ctx, db, docID)
	if err != nil {
		return remote.Wrap(op, err)
	}
	if rev == "" {
		return nil
	}
	if _, err := db.Delete(ctx, docID, rev); err != nil && kivik.HTTPStatus(err) != http.StatusNotFound {
		return remote.Wrap(op, err)
	}
	return nil
}

func findDocs[T any](ctx context.Context, db *kivik.DB, op string, query map[string]interface{}) ([]T, error) {
	rows := db.Find(ctx, query)
	defer rows.Close()

	var docs []T
	for rows.Next() {
		var doc T
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, remote.Wrap(op, fmt.Errorf("failed to scan document: %w", err))
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, remote.Wrap(op, err)
	}
	return docs, nil
}

// EnsureDatabase creates dbName and the Mango indexes the repositories sort
// and filter on.
func EnsureDatabase(ctx context.Context, client *kivik.Client, dbName string) error {
	exists, err := client.DBExists(ctx, dbName)
	if err != nil {
		return remote.Wrap("db.exists", err)
	}
	if !exists {
		if err := client.CreateDB(ctx, dbName); err != nil && kivik.HTTPStatus(err) != http.StatusPreconditionFailed {
			return remote.Wrap("db.create", err)
		}
	}

	db := client.DB(dbName)
	indexes := map[string][]string{
		"by-type-created":    {"doc_type", "created_at"},
		"by-type-likes":      {"doc_type", "like_count"},
		"by-type-rating":     {"doc_type", "rating_average"},
		"by-chain":           {"doc_type", "chain_id"},
		"by-share-recipient": {"doc_type", "recipient_id", "sent_at"},
	}
	for name, fields := range indexes {
		index := map[string]interface{}{"fields": fields}
		if err := db.CreateIndex(ctx, "prochain-"+name, name, index); err != nil {
			return remote.Wrap("db.index", fmt.Errorf("index %s: %w", name, err))
		}
	}
	return nil
}
