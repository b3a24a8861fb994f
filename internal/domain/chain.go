package domain

import "time"

type PluginFormat string

const (
	PluginFormatVST3 PluginFormat = "vst3"
	PluginFormatAU   PluginFormat = "au"
	PluginFormatAAX  PluginFormat = "aax"
	PluginFormatCLAP PluginFormat = "clap"
)

type BrowseSort string

const (
	BrowseSortRecent  BrowseSort = "recent"
	BrowseSortPopular BrowseSort = "popular"
	BrowseSortRating  BrowseSort = "rating"
)

const (
	DefaultBrowseLimit = 20
	MaxBrowseLimit     = 100
)

type ChainSlot struct {
	Position     int          `json:"position" validate:"min=0"`
	PluginName   string       `json:"plugin_name" validate:"required,max=200"`
	Manufacturer string       `json:"manufacturer" validate:"max=200"`
	Format       PluginFormat `json:"format" validate:"required,oneof=vst3 au aax clap"`
	Bypassed     bool         `json:"bypassed"`
	// State is the host-encoded preset blob, opaque to the bridge.
	State string `json:"state,omitempty"`
}

type Chain struct {
	ID          string      `json:"id"`
	AuthorID    string      `json:"author_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category"`
	Tags        []string    `json:"tags,omitempty"`
	Slots       []ChainSlot `json:"slots"`
	IsPublic    bool        `json:"is_public"`

	LikeCount     int     `json:"like_count"`
	RatingAverage float64 `json:"rating_average"`
	RatingCount   int     `json:"rating_count"`
	CommentCount  int     `json:"comment_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SaveChainRequest struct {
	// ID is set when updating an existing chain.
	ID          string      `json:"id,omitempty" validate:"omitempty,uuid"`
	Name        string      `json:"name" validate:"required,max=120"`
	Description string      `json:"description" validate:"max=2000"`
	Category    string      `json:"category" validate:"required,max=60"`
	Tags        []string    `json:"tags" validate:"max=10,dive,required,max=40"`
	Slots       []ChainSlot `json:"slots" validate:"required,min=1,max=64,dive"`
	IsPublic    bool        `json:"is_public"`
}

type BrowseQuery struct {
	Category string     `json:"category" validate:"max=60"`
	Sort     BrowseSort `json:"sort" validate:"omitempty,oneof=recent popular rating"`
	Limit    int        `json:"limit" validate:"min=0,max=100"`
}

// Normalized fills defaults so equal queries share a cache key.
func (q BrowseQuery) Normalized() BrowseQuery {
	if q.Category == "" {
		q.Category = "all"
	}
	if q.Sort == "" {
		q.Sort = BrowseSortRecent
	}
	if q.Limit <= 0 {
		q.Limit = DefaultBrowseLimit
	}
	if q.Limit > MaxBrowseLimit {
		q.Limit = MaxBrowseLimit
	}
	return q
}
