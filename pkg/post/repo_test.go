package post

import (
	"context"
	"fmt"
	"testing"

	gomock "github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blog/pkg/comment"
)

var (
	testOid = primitive.NewObjectID()
	testId  = testOid.Hex()
)

func newRepoMock(t *testing.T) (*Repo, *MockIMongoCollection, *gomock.Controller) {
	ctrl := gomock.NewController(t)
	mockMongoColl := NewMockIMongoCollection(ctrl)
	return &Repo{posts: mockMongoColl}, mockMongoColl, ctrl
}

// decodes returns a single result which decodes into p, or fails with err.
func decodes(ctrl *gomock.Controller, p *Post, err error) IMongoSingleResult {
	res := NewMockIMongoSingleResult(ctrl)
	call := res.EXPECT().Decode(gomock.AssignableToTypeOf(&Post{}))
	if p != nil {
		call.SetArg(0, *p)
	}
	call.Return(err)
	return res
}

func TestPostAdd(t *testing.T) {
	repo, mockMongoColl, _ := newRepoMock(t)
	testPost := &Post{Id: testOid}

	t.Run("success", func(t *testing.T) {
		mockMongoColl.EXPECT().
			InsertOne(gomock.Any(), testPost).
			Return(&mongo.InsertOneResult{InsertedID: testOid}, nil)

		insertedPostId, err := repo.Add(context.Background(), testPost)
		require.NoError(t, err)
		assert.Equal(t, testId, insertedPostId)
	})

	t.Run("insert error", func(t *testing.T) {
		expectedErr := fmt.Errorf("insert_failed")
		mockMongoColl.EXPECT().
			InsertOne(gomock.Any(), gomock.Any()).
			Return(nil, expectedErr)

		insertedPostId, err := repo.Add(context.Background(), &Post{})
		assert.Equal(t, ``, insertedPostId)
		assert.ErrorIs(t, err, expectedErr)
	})
}

func TestGetById(t *testing.T) {
	repo, mockMongoColl, ctrl := newRepoMock(t)

	t.Run("found", func(t *testing.T) {
		mockMongoColl.EXPECT().
			FindOne(gomock.Any(), bson.M{"_id": testOid}).
			Return(decodes(ctrl, &Post{Id: testOid, Title: "Go"}, nil))

		p, err := repo.GetById(context.Background(), testId)
		require.NoError(t, err)
		assert.Equal(t, "Go", p.Title)
	})

	t.Run("missing", func(t *testing.T) {
		mockMongoColl.EXPECT().FindOne(gomock.Any(), gomock.Any()).Return(decodes(ctrl, nil, mongo.ErrNoDocuments))

		_, err := repo.GetById(context.Background(), testId)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := repo.GetById(context.Background(), "not-an-object-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		expectedErr := fmt.Errorf("connection reset")
		mockMongoColl.EXPECT().FindOne(gomock.Any(), gomock.Any()).Return(decodes(ctrl, nil, expectedErr))

		_, err := repo.GetById(context.Background(), testId)
		assert.ErrorIs(t, err, expectedErr)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestView(t *testing.T) {
	repo, mockMongoColl, ctrl := newRepoMock(t)

	mockMongoColl.EXPECT().
		FindOneAndUpdate(gomock.Any(), bson.M{"_id": testOid}, bson.M{"$inc": bson.M{"views": 1}}, gomock.Any()).
		Return(decodes(ctrl, &Post{Id: testOid, Views: 8}, nil))

	p, err := repo.View(context.Background(), testId)
	require.NoError(t, err)
	assert.Equal(t, 8, p.Views)

	_, err = repo.View(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate(t *testing.T) {
	repo, mockMongoColl, ctrl := newRepoMock(t)

	t.Run("clears absent optional fields", func(t *testing.T) {
		var update bson.M
		mockMongoColl.EXPECT().
			FindOneAndUpdate(gomock.Any(), bson.M{"_id": testOid}, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ interface{}, u interface{}, _ ...*options.FindOneAndUpdateOptions) IMongoSingleResult {
				update = u.(bson.M)
				return decodes(ctrl, &Post{Id: testOid, Title: "T"}, nil)
			})

		_, err := repo.Update(context.Background(), testId, &Form{Title: "T", Content: "C"})
		require.NoError(t, err)

		set := update["$set"].(bson.M)
		assert.Equal(t, "T", set["title"])
		assert.Equal(t, StatusDraft, set["status"])
		assert.Equal(t, []string{}, set["tags"])
		assert.NotContains(t, set, "author")
		assert.Equal(t, bson.M{"excerpt": "", "featuredImage": ""}, update["$unset"])
	})

	t.Run("sets given optional fields", func(t *testing.T) {
		var update bson.M
		mockMongoColl.EXPECT().
			FindOneAndUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ interface{}, u interface{}, _ ...*options.FindOneAndUpdateOptions) IMongoSingleResult {
				update = u.(bson.M)
				return decodes(ctrl, &Post{Id: testOid}, nil)
			})

		form := &Form{Title: "T", Content: "C", Excerpt: "E", FeaturedImage: "/i.png", Status: StatusPublished}
		_, err := repo.Update(context.Background(), testId, form)
		require.NoError(t, err)

		set := update["$set"].(bson.M)
		assert.Equal(t, "E", set["excerpt"])
		assert.Equal(t, "/i.png", set["featuredImage"])
		assert.Equal(t, StatusPublished, set["status"])
		assert.NotContains(t, update, "$unset")
	})

	t.Run("missing", func(t *testing.T) {
		mockMongoColl.EXPECT().FindOneAndUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(decodes(ctrl, nil, mongo.ErrNoDocuments))

		_, err := repo.Update(context.Background(), testId, &Form{Title: "T", Content: "C"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	repo, mockMongoColl, _ := newRepoMock(t)

	mockMongoColl.EXPECT().DeleteOne(gomock.Any(), bson.M{"_id": testOid}).Return(&mongo.DeleteResult{DeletedCount: 1}, nil)
	assert.NoError(t, repo.Delete(context.Background(), testId))

	mockMongoColl.EXPECT().DeleteOne(gomock.Any(), gomock.Any()).Return(&mongo.DeleteResult{DeletedCount: 0}, nil)
	assert.ErrorIs(t, repo.Delete(context.Background(), testId), ErrNotFound)

	assert.ErrorIs(t, repo.Delete(context.Background(), "bad"), ErrNotFound)
}

func TestToggleLike(t *testing.T) {
	const uid = "7"
	likeFilter := bson.M{"_id": testOid, "likes": bson.M{"$ne": uid}}
	likeUpdate := bson.M{"$push": bson.M{"likes": uid}}
	unlikeFilter := bson.M{"_id": testOid, "likes": uid}
	unlikeUpdate := bson.M{"$pull": bson.M{"likes": uid}}

	t.Run("like", func(t *testing.T) {
		repo, mockMongoColl, ctrl := newRepoMock(t)
		mockMongoColl.EXPECT().
			FindOneAndUpdate(gomock.Any(), likeFilter, likeUpdate, gomock.Any()).
			Return(decodes(ctrl, &Post{Likes: []string{"1", uid}}, nil))

		res, err := repo.ToggleLike(context.Background(), testId, uid)
		require.NoError(t, err)
		assert.Equal(t, &LikeResult{Likes: 2, IsLiked: true}, res)
	})

	t.Run("unlike", func(t *testing.T) {
		repo, mockMongoColl, ctrl := newRepoMock(t)
		gomock.InOrder(
			mockMongoColl.EXPECT().
				FindOneAndUpdate(gomock.Any(), likeFilter, likeUpdate, gomock.Any()).
				Return(decodes(ctrl, nil, mongo.ErrNoDocuments)),
			mockMongoColl.EXPECT().
				FindOneAndUpdate(gomock.Any(), unlikeFilter, unlikeUpdate, gomock.Any()).
				Return(decodes(ctrl, &Post{Likes: []string{"1"}}, nil)),
		)

		res, err := repo.ToggleLike(context.Background(), testId, uid)
		require.NoError(t, err)
		assert.Equal(t, &LikeResult{Likes: 1, IsLiked: false}, res)
	})

	t.Run("missing post", func(t *testing.T) {
		repo, mockMongoColl, ctrl := newRepoMock(t)
		mockMongoColl.EXPECT().
			FindOneAndUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, interface{}, interface{}, ...*options.FindOneAndUpdateOptions) IMongoSingleResult {
				return decodes(ctrl, nil, mongo.ErrNoDocuments)
			}).
			Times(2)
		mockMongoColl.EXPECT().CountDocuments(gomock.Any(), bson.M{"_id": testOid}).Return(int64(0), nil)

		_, err := repo.ToggleLike(context.Background(), testId, uid)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("gives up after concurrent toggles", func(t *testing.T) {
		repo, mockMongoColl, ctrl := newRepoMock(t)
		mockMongoColl.EXPECT().
			FindOneAndUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, interface{}, interface{}, ...*options.FindOneAndUpdateOptions) IMongoSingleResult {
				return decodes(ctrl, nil, mongo.ErrNoDocuments)
			}).
			Times(2 * likeAttempts)
		mockMongoColl.EXPECT().CountDocuments(gomock.Any(), gomock.Any()).Return(int64(1), nil).Times(likeAttempts)

		_, err := repo.ToggleLike(context.Background(), testId, uid)
		assert.ErrorIs(t, err, ErrLikeConflict)
	})

	t.Run("malformed id", func(t *testing.T) {
		repo, _, _ := newRepoMock(t)
		_, err := repo.ToggleLike(context.Background(), "nope", uid)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAddComment(t *testing.T) {
	repo, mockMongoColl, _ := newRepoMock(t)
	c := comment.New("1", "hello")
	update := bson.M{"$push": bson.M{"comments": bson.M{
		"$each":     bson.A{c},
		"$position": 0,
	}}}

	mockMongoColl.EXPECT().UpdateOne(gomock.Any(), bson.M{"_id": testOid}, update).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
	assert.NoError(t, repo.AddComment(context.Background(), testId, c))

	mockMongoColl.EXPECT().UpdateOne(gomock.Any(), gomock.Any(), gomock.Any()).Return(&mongo.UpdateResult{MatchedCount: 0}, nil)
	assert.ErrorIs(t, repo.AddComment(context.Background(), testId, c), ErrNotFound)
}

func TestListPublished(t *testing.T) {
	repo, mockMongoColl, ctrl := newRepoMock(t)
	mockCursor := NewMockIMongoCursor(ctrl)
	expectedPosts := []*Post{{Title: "a"}, {Title: "b"}}

	t.Run("success", func(t *testing.T) {
		mockMongoColl.EXPECT().CountDocuments(gomock.Any(), publishedFilter()).Return(int64(12), nil)
		mockMongoColl.EXPECT().Find(gomock.Any(), publishedFilter(), gomock.Any()).Return(mockCursor, nil)
		mockCursor.EXPECT().
			All(gomock.Any(), gomock.AssignableToTypeOf(&expectedPosts)).
			SetArg(1, expectedPosts).
			Return(nil)
		mockCursor.EXPECT().Close(gomock.Any()).Return(nil)

		posts, total, err := repo.ListPublished(context.Background(), Pagination{Page: 2, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(12), total)
		assert.Equal(t, expectedPosts, posts)
	})

	t.Run("count error", func(t *testing.T) {
		expectedErr := fmt.Errorf("count failed")
		mockMongoColl.EXPECT().CountDocuments(gomock.Any(), gomock.Any()).Return(int64(0), expectedErr)

		_, _, err := repo.ListPublished(context.Background(), Pagination{Page: 1, Limit: 10})
		assert.ErrorIs(t, err, expectedErr)
	})

	t.Run("find error", func(t *testing.T) {
		expectedErr := fmt.Errorf("find failed")
		mockMongoColl.EXPECT().CountDocuments(gomock.Any(), gomock.Any()).Return(int64(3), nil)
		mockMongoColl.EXPECT().Find(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, expectedErr)

		_, _, err := repo.ListPublished(context.Background(), Pagination{Page: 1, Limit: 10})
		assert.ErrorIs(t, err, expectedErr)
	})
}

func TestRecentByAuthor(t *testing.T) {
	repo, mockMongoColl, ctrl := newRepoMock(t)
	mockCursor := NewMockIMongoCursor(ctrl)
	expectedPosts := []*Post{{Title: "a", AuthorId: "3"}}

	mockMongoColl.EXPECT().
		Find(gomock.Any(), bson.M{"author": "3", "status": StatusPublished}, gomock.Any()).
		Return(mockCursor, nil)
	mockCursor.EXPECT().All(gomock.Any(), gomock.Any()).SetArg(1, expectedPosts).Return(nil)
	mockCursor.EXPECT().Close(gomock.Any()).Return(nil)

	posts, err := repo.RecentByAuthor(context.Background(), "3", 5)
	require.NoError(t, err)
	assert.Equal(t, expectedPosts, posts)
}

func TestEnsureIndexes(t *testing.T) {
	repo, mockMongoColl, _ := newRepoMock(t)

	mockMongoColl.EXPECT().CreateIndexes(gomock.Any(), gomock.Any()).Return([]string{"status_1_createdAt_-1", "author_1_createdAt_-1"}, nil)
	assert.NoError(t, repo.EnsureIndexes(context.Background()))

	mockMongoColl.EXPECT().CreateIndexes(gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("no permission"))
	assert.Error(t, repo.EnsureIndexes(context.Background()))
}
