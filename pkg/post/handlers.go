package post

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"blog/pkg/comment"
	. "blog/pkg/common"
	"blog/pkg/logger"
	"blog/pkg/sessions"
	"blog/pkg/user"
	"blog/pkg/validation"
)

//go:generate mockgen -source=handlers.go -destination=handlers_mock.go -package=post

type IPostRepo interface {
	GetById(context.Context, string) (*Post, error)
	View(context.Context, string) (*Post, error)
	ListPublished(context.Context, Pagination) ([]*Post, int64, error)
	Search(context.Context, string, Pagination) ([]*Post, int64, error)
	ListAll(context.Context, Pagination) ([]*Post, int64, error)

	Add(context.Context, *Post) (string, error)
	Update(context.Context, string, *Form) (*Post, error)
	Delete(context.Context, string) error

	ToggleLike(context.Context, string, string) (*LikeResult, error)
	AddComment(context.Context, string, *comment.Comment) error
}

type IUserLookup interface {
	GetPublicByIds(context.Context, []string) (map[string]*user.Public, error)
}

type PostHandler struct {
	PostRepo IPostRepo
	Users    IUserLookup
}

func NewPostHandler(postRepo IPostRepo, users IUserLookup) *PostHandler {
	return &PostHandler{
		PostRepo: postRepo,
		Users:    users,
	}
}

func (ph *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r.URL.Query())
	posts, total, err := ph.PostRepo.ListPublished(r.Context(), p)
	if err != nil {
		logger.Log(r.Context()).Errorf("can't load posts from the repo: %v", err)
		WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}
	ph.writePage(w, r, posts, total, p)
}

func (ph *PostHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		WriteMsg(w, "Search query is required", http.StatusBadRequest)
		return
	}

	p := ParsePagination(r.URL.Query())
	posts, total, err := ph.PostRepo.Search(r.Context(), q, p)
	if err != nil {
		logger.Log(r.Context()).Errorf("can't search posts for %q: %v", q, err)
		WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := Populate(r.Context(), ph.Users, posts, false); err != nil {
		logger.Log(r.Context()).Errorf("can't populate posts: %v", err)
		WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}

	WriteRespJSON(w, SearchPage{
		Page:        NewPage(posts, total, p),
		SearchQuery: q,
	})
}

// ListAll lists posts of every status for administrators.
func (ph *PostHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r.URL.Query())
	posts, total, err := ph.PostRepo.ListAll(r.Context(), p)
	if err != nil {
		logger.Log(r.Context()).Errorf("can't load all posts from the repo: %v", err)
		WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}
	ph.writePage(w, r, posts, total, p)
}

// Get returns the post and counts the view.
func (ph *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	postId := mux.Vars(r)["post_id"]
	post, err := ph.PostRepo.View(r.Context(), postId)
	if err != nil {
		ph.writeRepoErr(w, r, err, "view post "+postId)
		return
	}
	if err := Populate(r.Context(), ph.Users, []*Post{post}, true); err != nil {
		logger.Log(r.Context()).Errorf("can't populate post %s: %v", postId, err)
		WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}

	WriteRespJSON(w, post)
}

func (ph *PostHandler) Add(w http.ResponseWriter, r *http.Request) {
	author, err := sessions.GetAuthUser(r.Context())
	if err != nil {
		WriteMsg(w, "not authorized", http.StatusUnauthorized)
		return
	}
	form, ok := validation.FromContext[Form](r.Context())
	if !ok {
		WriteMsg(w, "bad request format", http.StatusBadRequest)
		return
	}

	post := New(author.Id, form)
	if _, err := ph.PostRepo.Add(r.Context(), post); err != nil {
		logger.Log(r.Context()).Errorf("can't add post to the repo: %v", err)
		WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}
	post.Author = author.Public()

	WriteJSON(w, post, http.StatusCreated)
}

func (ph *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	postId := mux.Vars(r)["post_id"]
	if !ph.authorize(w, r, postId, "update") {
		return
	}
	form, ok := validation.FromContext[Form](r.Context())
	if !ok {
		WriteMsg(w, "bad request format", http.StatusBadRequest)
		return
	}

	post, err := ph.PostRepo.Update(r.Context(), postId, form)
	if err != nil {
		ph.writeRepoErr(w, r, err, "update post "+postId)
		return
	}
	if err := Populate(r.Context(), ph.Users, []*Post{post}, false); err != nil {
		logger.Log(r.Context()).Errorf("can't populate post %s: %v", postId, err)
		WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}

	WriteRespJSON(w, post)
}

func (ph *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	postId := mux.Vars(r)["post_id"]
	if !ph.authorize(w, r, postId, "delete") {
		return
	}

	if err := ph.PostRepo.Delete(r.Context(), postId); err != nil {
		ph.writeRepoErr(w, r, err, "delete post "+postId)
		return
	}

	WriteMsg(w, "post deleted", http.StatusOK)
}

// Like toggles the like of the current user.
func (ph *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	postId := mux.Vars(r)["post_id"]
	u, err := sessions.GetAuthUser(r.Context())
	if err != nil {
		WriteMsg(w, "not authorized", http.StatusUnauthorized)
		return
	}

	res, err := ph.PostRepo.ToggleLike(r.Context(), postId, u.Id)
	if err != nil {
		ph.writeRepoErr(w, r, err, "toggle like on post "+postId)
		return
	}

	WriteRespJSON(w, res)
}

func (ph *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	postId := mux.Vars(r)["post_id"]
	commenter, err := sessions.GetAuthUser(r.Context())
	if err != nil {
		WriteMsg(w, "not authorized", http.StatusUnauthorized)
		return
	}
	form, ok := validation.FromContext[CommentForm](r.Context())
	if !ok {
		WriteMsg(w, "bad request format", http.StatusBadRequest)
		return
	}

	c := comment.New(commenter.Id, form.Content)
	if err := ph.PostRepo.AddComment(r.Context(), postId, c); err != nil {
		ph.writeRepoErr(w, r, err, "add comment to post "+postId)
		return
	}
	c.Author = commenter.Public()

	WriteRespJSON(w, c)
}

// authorize writes the error response and returns false unless the current
// user may modify the post.
func (ph *PostHandler) authorize(w http.ResponseWriter, r *http.Request, postId, action string) bool {
	u, err := sessions.GetAuthUser(r.Context())
	if err != nil {
		WriteMsg(w, "not authorized", http.StatusUnauthorized)
		return false
	}

	post, err := ph.PostRepo.GetById(r.Context(), postId)
	if err != nil {
		ph.writeRepoErr(w, r, err, "get post "+postId)
		return false
	}

	if !post.CanModify(u) {
		logger.Log(r.Context()).Infof("user %s tried to %s post %s of %s", u.Id, action, postId, post.AuthorId)
		WriteMsg(w, "not authorized to "+action+" this post", http.StatusUnauthorized)
		return false
	}
	return true
}

func (ph *PostHandler) writePage(w http.ResponseWriter, r *http.Request, posts []*Post, total int64, p Pagination) {
	if err := Populate(r.Context(), ph.Users, posts, false); err != nil {
		logger.Log(r.Context()).Errorf("can't populate posts: %v", err)
		WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}
	WriteRespJSON(w, NewPage(posts, total, p))
}

func (ph *PostHandler) writeRepoErr(w http.ResponseWriter, r *http.Request, err error, action string) {
	if errors.Is(err, ErrNotFound) {
		WriteMsg(w, "post not found", http.StatusNotFound)
		return
	}
	logger.Log(r.Context()).Errorf("can't %s: %v", action, err)
	WriteMsg(w, "server error", http.StatusInternalServerError)
}

func NewPage(posts []*Post, total int64, p Pagination) Page {
	return Page{
		Posts:       posts,
		CurrentPage: p.Page,
		TotalPages:  p.TotalPages(total),
		TotalPosts:  total,
	}
}
