package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/remote"

	"github.com/go-kivik/kivik/v4"
)

type SocialRepository interface {
	// SetLike records whether userID likes the chain. It is idempotent.
	SetLike(ctx context.Context, chainID, userID string, liked bool) (*domain.LikeResult, error)
	PutRating(ctx context.Context, chainID, userID string, value int) (*domain.RatingResult, error)
	PutComment(ctx context.Context, comment *domain.Comment) error
	DeleteComment(ctx context.Context, commentID, userID string) error
	ListComments(ctx context.Context, chainID string) ([]*domain.Comment, error)
	SetFollow(ctx context.Context, followerID, followeeID string, following bool) error
}

type CouchDBSocialRepository struct {
	db *kivik.DB
}

type likeDoc struct {
	DocID   string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.Like
}

type ratingDoc struct {
	DocID   string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.Rating
}

type commentDoc struct {
	DocID   string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.Comment
}

type followDoc struct {
	DocID   string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.Follow
}

func NewSocialRepository(client *kivik.Client, dbName string) *CouchDBSocialRepository {
	return &CouchDBSocialRepository{
		db: client.DB(dbName),
	}
}

func (r *CouchDBSocialRepository) SetLike(ctx context.Context, chainID, userID string, liked bool) (*domain.LikeResult, error) {
	docID := likeDocID(chainID, userID)

	if liked {
		rev, err := currentRev(ctx, r.db, docID)
		if err != nil {
			return nil, remote.Wrap("likes.put", err)
		}
		if rev == "" {
			doc := likeDoc{
				DocID:   docID,
				DocType: docTypeLike,
				Like:    domain.Like{ChainID: chainID, UserID: userID, CreatedAt: time.Now().UTC()},
			}
			if _, err := r.db.Put(ctx, docID, doc); err != nil && kivik.HTTPStatus(err) != http.StatusConflict {
				return nil, remote.Wrap("likes.put", err)
			}
		}
	} else if err := deleteIfExists(ctx, r.db, "likes.delete", docID); err != nil {
		return nil, err
	}

	likes, err := findDocs[likeDoc](ctx, r.db, "likes.count", map[string]interface{}{
		"selector": map[string]interface{}{"doc_type": docTypeLike, "chain_id": chainID},
		"fields":   []string{"_id"},
		"limit":    scanLimit,
	})
	if err != nil {
		return nil, err
	}

	count := len(likes)
	if err := updateChainStats(ctx, r.db, chainID, func(doc *chainDoc) {
		doc.LikeCount = count
	}); err != nil {
		return nil, remote.Wrap("likes.stats", err)
	}

	return &domain.LikeResult{ChainID: chainID, Liked: liked, LikeCount: count}, nil
}

func (r *CouchDBSocialRepository) PutRating(ctx context.Context, chainID, userID string, value int) (*domain.RatingResult, error) {
	docID := ratingDocID(chainID, userID)

	rev, err := currentRev(ctx, r.db, docID)
	if err != nil {
		return nil, remote.Wrap("ratings.put", err)
	}
	doc := ratingDoc{
		DocID:   docID,
		Rev:     rev,
		DocType: docTypeRating,
		Rating:  domain.Rating{ChainID: chainID, UserID: userID, Value: value, UpdatedAt: time.Now().UTC()},
	}
	if _, err := r.db.Put(ctx, docID, doc); err != nil {
		return nil, remote.Wrap("ratings.put", err)
	}

	ratings, err := findDocs[ratingDoc](ctx, r.db, "ratings.aggregate", map[string]interface{}{
		"selector": map[string]interface{}{"doc_type": docTypeRating, "chain_id": chainID},
		"fields":   []string{"value"},
		"limit":    scanLimit,
	})
	if err != nil {
		return nil, err
	}

	var sum int
	for _, rating := range ratings {
		sum += rating.Value
	}
	result := &domain.RatingResult{ChainID: chainID, UserValue: value, Count: len(ratings)}
	if len(ratings) > 0 {
		result.Average = float64(sum) / float64(len(ratings))
	}

	if err := updateChainStats(ctx, r.db, chainID, func(doc *chainDoc) {
		doc.RatingAverage = result.Average
		doc.RatingCount = result.Count
	}); err != nil {
		return nil, remote.Wrap("ratings.stats", err)
	}
	return result, nil
}

func (r *CouchDBSocialRepository) PutComment(ctx context.Context, comment *domain.Comment) error {
	docID := commentDocID(comment.ID)

	rev, err := currentRev(ctx, r.db, docID)
	if err != nil {
		return remote.Wrap("comments.put", err)
	}
	if rev != "" {
		// already stored by an earlier attempt
		return nil
	}

	doc := commentDoc{DocID: docID, DocType: docTypeComment, Comment: *comment}
	if _, err := r.db.Put(ctx, docID, doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusConflict {
			return nil
		}
		return remote.Wrap("comments.put", err)
	}

	if err := updateChainStats(ctx, r.db, comment.ChainID, func(doc *chainDoc) {
		doc.CommentCount++
	}); err != nil {
		return remote.Wrap("comments.stats", err)
	}
	return nil
}

func (r *CouchDBSocialRepository) DeleteComment(ctx context.Context, commentID, userID string) error {
	docID := commentDocID(commentID)

	var doc commentDoc
	if err := r.db.Get(ctx, docID).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil
		}
		return remote.Wrap("comments.delete", err)
	}
	if doc.AuthorID != userID {
		return &remote.Error{
			Op:     "comments.delete",
			Kind:   remote.Application,
			Status: http.StatusForbidden,
			Err:    fmt.Errorf("comment %s belongs to another user", commentID),
		}
	}

	if _, err := r.db.Delete(ctx, docID, doc.Rev); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil
		}
		return remote.Wrap("comments.delete", err)
	}

	if err := updateChainStats(ctx, r.db, doc.ChainID, func(chain *chainDoc) {
		if chain.CommentCount > 0 {
			chain.CommentCount--
		}
	}); err != nil && kivik.HTTPStatus(err) != http.StatusNotFound {
		return remote.Wrap("comments.stats", err)
	}
	return nil
}

func (r *CouchDBSocialRepository) ListComments(ctx context.Context, chainID string) ([]*domain.Comment, error) {
	docs, err := findDocs[commentDoc](ctx, r.db, "comments.list", map[string]interface{}{
		"selector": map[string]interface{}{"doc_type": docTypeComment, "chain_id": chainID},
		"limit":    scanLimit,
	})
	if err != nil {
		return nil, err
	}

	comments := make([]*domain.Comment, 0, len(docs))
	for i := range docs {
		comment := docs[i].Comment
		comments = append(comments, &comment)
	}
	sortComments(comments)
	return comments, nil
}

func (r *CouchDBSocialRepository) SetFollow(ctx context.Context, followerID, followeeID string, following bool) error {
	docID := followDocID(followerID, followeeID)
	if !following {
		return deleteIfExists(ctx, r.db, "follows.delete", docID)
	}

	rev, err := currentRev(ctx, r.db, docID)
	if err != nil {
		return remote.Wrap("follows.put", err)
	}
	if rev != "" {
		return nil
	}

	doc := followDoc{
		DocID:   docID,
		DocType: docTypeFollow,
		Follow:  domain.Follow{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: time.Now().UTC()},
	}
	if _, err := r.db.Put(ctx, docID, doc); err != nil && kivik.HTTPStatus(err) != http.StatusConflict {
		return remote.Wrap("follows.put", err)
	}
	return nil
}

func sortComments(comments []*domain.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
}
