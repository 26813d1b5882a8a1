package comment

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"blog/pkg/user"
)

// Comment is stored inside its post and has no life of its own.
type Comment struct {
	Id       primitive.ObjectID `bson:"_id" json:"id"`
	AuthorId string             `bson:"user" json:"-"`
	Author   *user.Public       `bson:"-" json:"user"`
	Content  string             `bson:"content" json:"content"`
	Created  time.Time          `bson:"createdAt" json:"createdAt"`
}

func New(authorId, content string) *Comment {
	return &Comment{
		Id:       primitive.NewObjectID(),
		AuthorId: authorId,
		Content:  content,
		Created:  time.Now().UTC().Truncate(time.Millisecond),
	}
}
