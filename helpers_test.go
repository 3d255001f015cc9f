package dossier

import (
	"reflect"
	"testing"

	"github.com/eringen/dossier/content"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://example.com", []string{"blog", "a-case"}, "https://example.com/blog/a-case/"},
		{"https://example.com/", []string{"timeline"}, "https://example.com/timeline/"},
		{"https://example.com", nil, "https://example.com"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" Election Law, ,Petitions,Election Law ")
	want := []string{"Election Law", "Petitions"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitList = %v, want %v", got, want)
	}
	if got := SplitList(""); got == nil || len(got) != 0 {
		t.Errorf("SplitList(\"\") = %#v, want an empty list", got)
	}
}

func TestRelatedPosts(t *testing.T) {
	current := content.Post{PostID: "a", Category: "Election Law", Tags: []string{"IEBC"}}
	posts := []content.Post{
		current,
		{PostID: "b", Category: "Constitutional Law", Tags: []string{"iebc"}},
		{PostID: "c", Category: "Election Law"},
		{PostID: "d", Category: "International Criminal Law"},
		{PostID: "e", Category: "Election Law"},
	}

	var ids []string
	for _, p := range RelatedPosts(current, posts, 2) {
		ids = append(ids, p.PostID)
	}
	if !reflect.DeepEqual(ids, []string{"b", "c"}) {
		t.Errorf("related = %v, want [b c]", ids)
	}
}
