package domain

import "time"

type Like struct {
	ChainID   string    `json:"chain_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeRequest carries the state the user wants, so replaying it twice
// leaves the same result.
type LikeRequest struct {
	Liked bool `json:"liked"`
}

type LikeResult struct {
	ChainID   string `json:"chain_id"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"like_count"`
}

type Rating struct {
	ChainID   string    `json:"chain_id"`
	UserID    string    `json:"user_id"`
	Value     int       `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RateRequest struct {
	Value int `json:"value" validate:"required,min=1,max=5"`
}

type RatingResult struct {
	ChainID   string  `json:"chain_id"`
	UserValue int     `json:"user_value"`
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
}

type Comment struct {
	ID        string    `json:"id"`
	ChainID   string    `json:"chain_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type AddCommentRequest struct {
	Body string `json:"body" validate:"required,max=2000"`
}

type Follow struct {
	FollowerID string    `json:"follower_id"`
	FolloweeID string    `json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}
