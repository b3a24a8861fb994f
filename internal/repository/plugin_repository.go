package repository

import (
	"context"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/remote"

	"github.com/go-kivik/kivik/v4"
)

type PluginRepository interface {
	Put(ctx context.Context, list *domain.PluginList) error
	Get(ctx context.Context, userID string) (*domain.PluginList, error)
}

type CouchDBPluginRepository struct {
	db *kivik.DB
}

type pluginsDoc struct {
	DocID   string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.PluginList
}

func NewPluginRepository(client *kivik.Client, dbName string) *CouchDBPluginRepository {
	return &CouchDBPluginRepository{
		db: client.DB(dbName),
	}
}

// Put replaces the user's plugin list with list.
func (r *CouchDBPluginRepository) Put(ctx context.Context, list *domain.PluginList) error {
	docID := pluginsDocID(list.UserID)

	rev, err := currentRev(ctx, r.db, docID)
	if err != nil {
		return remote.Wrap("plugins.put", err)
	}

	doc := pluginsDoc{
		DocID:      docID,
		Rev:        rev,
		DocType:    docTypePlugins,
		PluginList: *list,
	}
	if _, err := r.db.Put(ctx, docID, doc); err != nil {
		return remote.Wrap("plugins.put", err)
	}
	return nil
}

func (r *CouchDBPluginRepository) Get(ctx context.Context, userID string) (*domain.PluginList, error) {
	var doc pluginsDoc
	if err := r.db.Get(ctx, pluginsDocID(userID)).ScanDoc(&doc); err != nil {
		return nil, remote.Wrap("plugins.get", err)
	}
	list := doc.PluginList
	return &list, nil
}
