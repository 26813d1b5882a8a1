package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blog/pkg/comment"
	"blog/pkg/logger"
)

// likeAttempts bounds how often the like toggle retries when both of its
// conditional updates miss because another toggle got in between.
const likeAttempts = 3

type Repo struct {
	posts IMongoCollection
}

func NewPostRepo(postsCol *mongo.Collection) *Repo {
	posts := &MongoCollection{
		Coll: postsCol,
	}
	return &Repo{
		posts: posts,
	}
}

func (r *Repo) EnsureIndexes(ctx context.Context) error {
	names, err := r.posts.CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("post/repo: failed creating indexes: %w", err)
	}
	logger.Log(ctx).Infow("post indexes ready", "indexes", names)
	return nil
}

func (r *Repo) Add(ctx context.Context, p *Post) (string, error) {
	_, err := r.posts.InsertOne(ctx, p)
	if err != nil {
		return ``, fmt.Errorf("post/repo: failed inserting a post: %w", err)
	}
	return p.Id.Hex(), nil
}

func (r *Repo) GetById(ctx context.Context, id string) (*Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.decodeOne(r.posts.FindOne(ctx, bson.M{"_id": oid}))
}

// View increments the view counter and returns the post as it is afterwards.
func (r *Repo) View(ctx context.Context, id string) (*Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.decodeOne(r.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)))
}

// Update replaces the editable fields of the post with the form. Empty
// excerpt and featured image are removed from the document.
func (r *Repo) Update(ctx context.Context, id string, f *Form) (*Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	p := new(Post)
	f.apply(p)
	set := bson.M{
		"title":     p.Title,
		"content":   p.Content,
		"tags":      p.Tags,
		"status":    p.Status,
		"updatedAt": time.Now().UTC().Truncate(time.Millisecond),
	}
	unset := bson.M{}
	if p.Excerpt != "" {
		set["excerpt"] = p.Excerpt
	} else {
		unset["excerpt"] = ""
	}
	if p.FeaturedImage != "" {
		set["featuredImage"] = p.FeaturedImage
	} else {
		unset["featuredImage"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	return r.decodeOne(r.posts.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)))
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("post/repo: failed deleting post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleLike adds the user to the likes of the post, or removes them when
// they are already there. Each branch is a single conditional update.
func (r *Repo) ToggleLike(ctx context.Context, id, userId string) (*LikeResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	after := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likes": 1})

	for i := 0; i < likeAttempts; i++ {
		p := new(Post)
		err := r.posts.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "likes": bson.M{"$ne": userId}},
			bson.M{"$push": bson.M{"likes": userId}},
			after).Decode(p)
		if err == nil {
			return &LikeResult{Likes: len(p.Likes), IsLiked: true}, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("post/repo: failed liking post: %w", err)
		}

		err = r.posts.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "likes": userId},
			bson.M{"$pull": bson.M{"likes": userId}},
			after).Decode(p)
		if err == nil {
			return &LikeResult{Likes: len(p.Likes), IsLiked: false}, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("post/repo: failed unliking post: %w", err)
		}

		n, err := r.posts.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return nil, fmt.Errorf("post/repo: failed counting posts: %w", err)
		}
		if n == 0 {
			return nil, ErrNotFound
		}
	}
	return nil, ErrLikeConflict
}

// AddComment puts the comment in front of the post comments.
func (r *Repo) AddComment(ctx context.Context, id string, c *comment.Comment) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	update := bson.M{"$push": bson.M{"comments": bson.M{
		"$each":     bson.A{c},
		"$position": 0,
	}}}
	res, err := r.posts.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("post/repo: failed adding comment: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) ListPublished(ctx context.Context, p Pagination) ([]*Post, int64, error) {
	return r.page(ctx, publishedFilter(), p)
}

func (r *Repo) Search(ctx context.Context, q string, p Pagination) ([]*Post, int64, error) {
	return r.page(ctx, searchFilter(q), p)
}

// ListByAuthor returns posts of the author in any status.
func (r *Repo) ListByAuthor(ctx context.Context, authorId string, p Pagination) ([]*Post, int64, error) {
	return r.page(ctx, authorFilter(authorId), p)
}

// ListAll returns posts in any status of all authors.
func (r *Repo) ListAll(ctx context.Context, p Pagination) ([]*Post, int64, error) {
	return r.page(ctx, bson.M{}, p)
}

// RecentByAuthor returns at most n newest published posts of the author.
func (r *Repo) RecentByAuthor(ctx context.Context, authorId string, n int) ([]*Post, error) {
	filter := authorFilter(authorId)
	filter["status"] = StatusPublished
	return r.find(ctx, filter, options.Find().SetSort(newestFirst).SetLimit(int64(n)))
}

func (r *Repo) page(ctx context.Context, filter bson.M, p Pagination) ([]*Post, int64, error) {
	total, err := r.posts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("post/repo: failed counting posts: %w", err)
	}
	posts, err := r.find(ctx, filter, p.findOptions())
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *Repo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*Post, error) {
	cursor, err := r.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("post/repo: failed finding posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []*Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("post/repo: failed geting posts from cursor: %w", err)
	}
	return posts, nil
}

func (r *Repo) decodeOne(res IMongoSingleResult) (*Post, error) {
	p := new(Post)
	err := res.Decode(p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("post/repo: failed decoding post: %w", err)
	}
	return p, nil
}
