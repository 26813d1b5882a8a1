package post

import (
	"context"
	"fmt"

	"blog/pkg/user"
)

// Populate expands post and comment authors with one lookup. Bio is kept
// for post authors only when withBio is set.
func Populate(ctx context.Context, users IUserLookup, posts []*Post, withBio bool) error {
	ids := []string{}
	seen := map[string]bool{}
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, p := range posts {
		add(p.AuthorId)
		for _, c := range p.Comments {
			add(c.AuthorId)
		}
	}

	found, err := users.GetPublicByIds(ctx, ids)
	if err != nil {
		return fmt.Errorf("post: can't load authors: %w", err)
	}

	for _, p := range posts {
		p.Author = publicCopy(found[p.AuthorId], withBio)
		for _, c := range p.Comments {
			c.Author = publicCopy(found[c.AuthorId], false)
		}
	}
	return nil
}

func publicCopy(u *user.Public, withBio bool) *user.Public {
	if u == nil {
		return nil
	}
	cp := *u
	if !withBio {
		cp.Bio = ""
	}
	return &cp
}
