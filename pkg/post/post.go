package post

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"blog/pkg/comment"
	"blog/pkg/user"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

type Post struct {
	Id            primitive.ObjectID `bson:"_id" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Content       string             `bson:"content" json:"content"`
	Excerpt       string             `bson:"excerpt,omitempty" json:"excerpt,omitempty"`
	Tags          []string           `bson:"tags" json:"tags"`
	FeaturedImage string             `bson:"featuredImage,omitempty" json:"featuredImage,omitempty"`
	Status        Status             `bson:"status" json:"status"`

	AuthorId string       `bson:"author" json:"-"`
	Author   *user.Public `bson:"-" json:"author"`

	Views    int                `bson:"views" json:"views"`
	Likes    []string           `bson:"likes" json:"likes"`
	Comments []*comment.Comment `bson:"comments" json:"comments"`

	Created time.Time `bson:"createdAt" json:"createdAt"`
	Updated time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Form is the body of post create and update requests.
type Form struct {
	Title         string   `json:"title" validate:"notblank"`
	Content       string   `json:"content" validate:"notblank"`
	Excerpt       string   `json:"excerpt"`
	Tags          []string `json:"tags"`
	FeaturedImage string   `json:"featuredImage"`
	Status        Status   `json:"status" validate:"omitempty,oneof=draft published"`
}

type CommentForm struct {
	Content string `json:"content" validate:"notblank"`
}

type Page struct {
	Posts       []*Post `json:"posts"`
	CurrentPage int     `json:"currentPage"`
	TotalPages  int64   `json:"totalPages"`
	TotalPosts  int64   `json:"totalPosts"`
}

type SearchPage struct {
	Page
	SearchQuery string `json:"searchQuery"`
}

type LikeResult struct {
	Likes   int  `json:"likes"`
	IsLiked bool `json:"isLiked"`
}

// New builds a post of the author from a validated form.
func New(authorId string, f *Form) *Post {
	now := time.Now().UTC().Truncate(time.Millisecond)
	p := &Post{
		Id:       primitive.NewObjectID(),
		AuthorId: authorId,
		Likes:    []string{},
		Comments: []*comment.Comment{},
		Created:  now,
		Updated:  now,
	}
	f.apply(p)
	return p
}

func (f *Form) apply(p *Post) {
	p.Title = f.Title
	p.Content = f.Content
	p.Excerpt = f.Excerpt
	p.FeaturedImage = f.FeaturedImage
	p.Tags = f.Tags
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.Status = f.Status
	if p.Status == "" {
		p.Status = StatusDraft
	}
}

// CanModify tells whether u may update or delete the post.
func (p *Post) CanModify(u *user.User) bool {
	return u != nil && (u.IsAdmin || u.Id == p.AuthorId)
}

func (p *Post) LikedBy(userId string) bool {
	for _, id := range p.Likes {
		if id == userId {
			return true
		}
	}
	return false
}
