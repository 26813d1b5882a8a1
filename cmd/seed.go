package main

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jaswdr/faker"

	"blog/pkg/comment"
	. "blog/pkg/common"
	"blog/pkg/post"
	"blog/pkg/user"
)

const seedPosts = 30

var (
	f             = faker.New()
	onePassForAll = HashPass("sdfsdfsdf", RandStringRunes(SaltLen))
	tagPool       = []string{"go", "mongodb", "postgres", "redis", "devops", "frontend", "career", "testing"}
)

type IUserRepo interface {
	Add(context.Context, *user.User) (string, error)
	GetAll(context.Context) ([]*user.User, error)
}

type IPostRepo interface {
	Add(context.Context, *post.Post) (string, error)
}

func createAuthors(ctx context.Context, userRepo IUserRepo) error {
	// User for experiments (not random)
	_, err := userRepo.Add(ctx, &user.User{
		Username: "pike",
		Email:    "pike@example.com",
		Password: onePassForAll,
		Bio:      "Seeded admin account",
		IsAdmin:  true,
	})
	if err != nil {
		return fmt.Errorf("seed: can't create default user: %w", err)
	}
	for i := 1; i <= 5; i++ {
		if err := genUser(ctx, userRepo, i); err != nil {
			return err
		}
	}
	return nil
}

// seed fills empty databases with fake authors and posts.
func seed(ctx context.Context, userRepo IUserRepo, postRepo IPostRepo) error {
	authors, err := userRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("seed: can't get all authors: %w", err)
	}
	if len(authors) > 0 {
		return nil
	}

	if err := createAuthors(ctx, userRepo); err != nil {
		return err
	}
	if authors, err = userRepo.GetAll(ctx); err != nil {
		return fmt.Errorf("seed: can't get all authors: %w", err)
	}

	for i := 0; i < seedPosts; i++ {
		if _, err := postRepo.Add(ctx, genPost(authors)); err != nil {
			return fmt.Errorf("seed: can't add post: %w", err)
		}
	}
	return nil
}

func genUser(ctx context.Context, userRepo IUserRepo, n int) error {
	username := fmt.Sprintf("%s%d", strings.ToLower(f.Person().FirstName()), n)
	u := user.User{
		Username: username,
		Email:    username + "@example.com",
		Password: onePassForAll,
		Bio:      f.Lorem().Sentence(8),
	}
	if _, err := userRepo.Add(ctx, &u); err != nil {
		return fmt.Errorf("seed: can't add user: %w", err)
	}
	return nil
}

func genComments(users []*user.User) []*comment.Comment {
	n := rand.Intn(6)
	comments := []*comment.Comment{}
	for i := 0; i < n; i++ {
		comments = append(comments, comment.New(randUser(users).Id, f.Lorem().Sentence(rand.Intn(10)+3)))
	}
	return comments
}

func genLikes(users []*user.User) []string {
	likes := []string{}
	for _, i := range rand.Perm(len(users))[:rand.Intn(len(users)+1)] {
		likes = append(likes, users[i].Id)
	}
	return likes
}

func genTitle() string {
	return strings.Join(f.Lorem().Words(rand.Intn(5)+3), " ")
}

func genText() string {
	return f.Lorem().Paragraph(rand.Intn(3) + 2)
}

func genTags() []string {
	n := rand.Intn(3) + 1
	tags := make([]string, 0, n)
	for _, i := range rand.Perm(len(tagPool))[:n] {
		tags = append(tags, tagPool[i])
	}
	return tags
}

func genPost(users []*user.User) *post.Post {
	status := post.StatusPublished
	if rand.Intn(5) == 0 {
		status = post.StatusDraft
	}

	p := post.New(randUser(users).Id, &post.Form{
		Title:   genTitle(),
		Content: genText(),
		Excerpt: f.Lorem().Sentence(12),
		Tags:    genTags(),
		Status:  status,
	})
	p.Views = rand.Intn(100)
	p.Likes = genLikes(users)
	p.Comments = genComments(users)
	p.Created = f.Time().Time(time.Now()).UTC().Truncate(time.Millisecond)
	p.Updated = p.Created
	return p
}

func randUser(users []*user.User) *user.User {
	return users[rand.Intn(len(users))]
}
