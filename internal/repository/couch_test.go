package repository

import (
	"testing"
	"time"

	"prochain-bridge/internal/domain"
)

func TestDocIDs(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"chain", chainDocID("c1"), "chain:c1"},
		{"like", likeDocID("c1", "u1"), "like:c1:u1"},
		{"rating", ratingDocID("c1", "u1"), "rating:c1:u1"},
		{"comment", commentDocID("m1"), "comment:m1"},
		{"follow", followDocID("u1", "u2"), "follow:u1:u2"},
		{"plugins", pluginsDocID("u1"), "plugins:u1"},
		{"share", shareDocID("s1"), "share:s1"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s doc id = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestSortComments(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	comments := []*domain.Comment{
		{ID: "late", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "first-a", CreatedAt: base},
		{ID: "first-b", CreatedAt: base},
		{ID: "mid", CreatedAt: base.Add(time.Minute)},
	}

	sortComments(comments)

	want := []string{"first-a", "first-b", "mid", "late"}
	for i, id := range want {
		if comments[i].ID != id {
			t.Fatalf("order[%d] = %s, want %s", i, comments[i].ID, id)
		}
	}
}
