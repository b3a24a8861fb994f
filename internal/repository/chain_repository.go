package repository

import (
	"context"
	"fmt"
	"net/http"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/remote"

	"github.com/go-kivik/kivik/v4"
)

type ChainRepository interface {
	// Put creates or replaces the chain document. Aggregate counters kept
	// on the stored document are preserved.
	Put(ctx context.Context, chain *domain.Chain) error
	Get(ctx context.Context, id string) (*domain.Chain, error)
	Browse(ctx context.Context, query domain.BrowseQuery) ([]*domain.Chain, error)
}

type CouchDBChainRepository struct {
	db *kivik.DB
}

type chainDoc struct {
	DocID   string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.Chain
}

func NewChainRepository(client *kivik.Client, dbName string) *CouchDBChainRepository {
	return &CouchDBChainRepository{
		db: client.DB(dbName),
	}
}

func (r *CouchDBChainRepository) Put(ctx context.Context, chain *domain.Chain) error {
	docID := chainDocID(chain.ID)

	doc := chainDoc{
		DocID:   docID,
		DocType: docTypeChain,
		Chain:   *chain,
	}

	var existing chainDoc
	err := r.db.Get(ctx, docID).ScanDoc(&existing)
	switch {
	case err == nil:
		if existing.AuthorID != "" && existing.AuthorID != chain.AuthorID {
			return &remote.Error{
				Op:     "chains.put",
				Kind:   remote.Application,
				Status: http.StatusForbidden,
				Err:    fmt.Errorf("chain %s belongs to another user", chain.ID),
			}
		}
		doc.Rev = existing.Rev
		doc.CreatedAt = existing.CreatedAt
		doc.LikeCount = existing.LikeCount
		doc.RatingAverage = existing.RatingAverage
		doc.RatingCount = existing.RatingCount
		doc.CommentCount = existing.CommentCount
	case kivik.HTTPStatus(err) == http.StatusNotFound:
	default:
		return remote.Wrap("chains.put", err)
	}

	if _, err := r.db.Put(ctx, docID, doc); err != nil {
		return remote.Wrap("chains.put", err)
	}
	return nil
}

func (r *CouchDBChainRepository) Get(ctx context.Context, id string) (*domain.Chain, error) {
	var doc chainDoc
	if err := r.db.Get(ctx, chainDocID(id)).ScanDoc(&doc); err != nil {
		return nil, remote.Wrap("chains.get", err)
	}
	chain := doc.Chain
	return &chain, nil
}

func (r *CouchDBChainRepository) Browse(ctx context.Context, query domain.BrowseQuery) ([]*domain.Chain, error) {
	query = query.Normalized()

	selector := map[string]interface{}{
		"doc_type":  docTypeChain,
		"is_public": true,
	}
	if query.Category != "all" {
		selector["category"] = query.Category
	}

	sortField := "created_at"
	switch query.Sort {
	case domain.BrowseSortPopular:
		sortField = "like_count"
	case domain.BrowseSortRating:
		sortField = "rating_average"
	}

	docs, err := findDocs[chainDoc](ctx, r.db, "chains.browse", map[string]interface{}{
		"selector": selector,
		"sort": []map[string]string{
			{"doc_type": "desc"},
			{sortField: "desc"},
		},
		"limit": query.Limit,
	})
	if err != nil {
		return nil, err
	}

	chains := make([]*domain.Chain, 0, len(docs))
	for i := range docs {
		chain := docs[i].Chain
		chains = append(chains, &chain)
	}
	return chains, nil
}

// updateChainStats applies mutate to the stored chain, retrying once when
// another writer updated it first.
func updateChainStats(ctx context.Context, db *kivik.DB, chainID string, mutate func(*chainDoc)) error {
	docID := chainDocID(chainID)
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var doc chainDoc
		if err = db.Get(ctx, docID).ScanDoc(&doc); err != nil {
			return err
		}
		mutate(&doc)
		if _, err = db.Put(ctx, docID, doc); err == nil {
			return nil
		}
		if kivik.HTTPStatus(err) != http.StatusConflict {
			return err
		}
	}
	return err
}
