package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/remote"

	"github.com/go-kivik/kivik/v4"
)

type ShareRepository interface {
	// Put stores a new share. Storing the same share twice is a no-op.
	Put(ctx context.Context, share *domain.Share) error
	Get(ctx context.Context, id string) (*domain.Share, error)
	ListReceived(ctx context.Context, recipientID string) ([]*domain.Share, error)
	// Respond moves a pending share to status on behalf of its recipient.
	Respond(ctx context.Context, shareID, recipientID string, status domain.ShareStatus) (*domain.Share, error)
}

type CouchDBShareRepository struct {
	db *kivik.DB
}

type shareDoc struct {
	DocID   string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.Share
}

func NewShareRepository(client *kivik.Client, dbName string) *CouchDBShareRepository {
	return &CouchDBShareRepository{
		db: client.DB(dbName),
	}
}

func (r *CouchDBShareRepository) Put(ctx context.Context, share *domain.Share) error {
	docID := shareDocID(share.ID)

	rev, err := currentRev(ctx, r.db, docID)
	if err != nil {
		return remote.Wrap("shares.put", err)
	}
	if rev != "" {
		return nil
	}

	doc := shareDoc{DocID: docID, DocType: docTypeShare, Share: *share}
	if _, err := r.db.Put(ctx, docID, doc); err != nil && kivik.HTTPStatus(err) != http.StatusConflict {
		return remote.Wrap("shares.put", err)
	}
	return nil
}

func (r *CouchDBShareRepository) Get(ctx context.Context, id string) (*domain.Share, error) {
	var doc shareDoc
	if err := r.db.Get(ctx, shareDocID(id)).ScanDoc(&doc); err != nil {
		return nil, remote.Wrap("shares.get", err)
	}
	share := doc.Share
	return &share, nil
}

func (r *CouchDBShareRepository) ListReceived(ctx context.Context, recipientID string) ([]*domain.Share, error) {
	docs, err := findDocs[shareDoc](ctx, r.db, "shares.received", map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type":     docTypeShare,
			"recipient_id": recipientID,
			"status":       domain.ShareStatusPending,
		},
		"sort": []map[string]string{
			{"doc_type": "desc"},
			{"recipient_id": "desc"},
			{"sent_at": "desc"},
		},
		"limit": scanLimit,
	})
	if err != nil {
		return nil, err
	}

	shares := make([]*domain.Share, 0, len(docs))
	for i := range docs {
		share := docs[i].Share
		shares = append(shares, &share)
	}
	return shares, nil
}

func (r *CouchDBShareRepository) Respond(ctx context.Context, shareID, recipientID string, status domain.ShareStatus) (*domain.Share, error) {
	docID := shareDocID(shareID)

	var doc shareDoc
	if err := r.db.Get(ctx, docID).ScanDoc(&doc); err != nil {
		return nil, remote.Wrap("shares.respond", err)
	}
	if doc.RecipientID != recipientID {
		return nil, &remote.Error{
			Op:     "shares.respond",
			Kind:   remote.Application,
			Status: http.StatusForbidden,
			Err:    fmt.Errorf("share %s was not sent to this user", shareID),
		}
	}

	switch doc.Status {
	case status:
		// replay of a response that already landed
		share := doc.Share
		return &share, nil
	case domain.ShareStatusPending:
	default:
		return nil, &remote.Error{
			Op:     "shares.respond",
			Kind:   remote.Application,
			Status: http.StatusConflict,
			Err:    fmt.Errorf("share %s was already %s", shareID, doc.Status),
		}
	}

	now := time.Now().UTC()
	doc.Status = status
	doc.RespondedAt = &now
	if _, err := r.db.Put(ctx, docID, doc); err != nil {
		return nil, remote.Wrap("shares.respond", err)
	}
	share := doc.Share
	return &share, nil
}
