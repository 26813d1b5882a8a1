package post

import "errors"

var (
	ErrNotFound     = errors.New("post: not found")
	ErrLikeConflict = errors.New("post: like toggle kept racing with concurrent updates")
)
