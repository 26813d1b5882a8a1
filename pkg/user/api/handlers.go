package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"blog/pkg/common"
	"blog/pkg/logger"
	"blog/pkg/post"
	"blog/pkg/sessions"
	"blog/pkg/user"
	"blog/pkg/validation"
)

//go:generate mockgen -source=handlers.go -destination=handlers_mock.go -package=api

const profilePosts = 5

type (
	UserRepo interface {
		Add(context.Context, *user.User) (string, error)
		Exists(ctx context.Context, username, email string) (bool, error)
		GetByEmailAndPass(ctx context.Context, email, pass string) (*user.User, error)
		GetById(context.Context, string) (*user.User, error)
		GetPublicByIds(context.Context, []string) (map[string]*user.Public, error)
		UsernameTaken(ctx context.Context, username, exceptId string) (bool, error)
		UpdateProfile(context.Context, *user.User) error
	}

	SessionManager interface {
		CreateToken(*user.User) (string, error)
		CleanupUserSessions(userId string) error
		Revoke(authHeader string) error
	}

	PostRepo interface {
		RecentByAuthor(ctx context.Context, authorId string, n int) ([]*post.Post, error)
		ListByAuthor(context.Context, string, post.Pagination) ([]*post.Post, int64, error)
	}

	UserHandler struct {
		Repo           UserRepo
		SessionManager SessionManager
		Posts          PostRepo
	}

	RegisterForm struct {
		Username string `json:"username" validate:"notblank,min=3"`
		Email    string `json:"email" validate:"notblank,email"`
		Password string `json:"password" validate:"notblank,min=6"`
	}

	LoginForm struct {
		Email    string `json:"email" validate:"notblank"`
		Password string `json:"password" validate:"notblank"`
	}

	// ProfileForm fields are optional. An empty username or avatar is
	// ignored while an empty bio clears it.
	ProfileForm struct {
		Username *string `json:"username" validate:"omitempty,min=3"`
		Bio      *string `json:"bio" validate:"omitempty,max=500"`
		Avatar   *string `json:"avatar"`
	}

	authResp struct {
		Token string     `json:"token"`
		User  *user.User `json:"user"`
	}

	profileResp struct {
		User  *user.User   `json:"user"`
		Posts []*post.Post `json:"posts"`
	}
)

func NewUserHandler(r UserRepo, sm SessionManager, posts PostRepo) *UserHandler {
	return &UserHandler{
		Repo:           r,
		SessionManager: sm,
		Posts:          posts,
	}
}

func (uh UserHandler) LogIn(w http.ResponseWriter, r *http.Request) {
	form, ok := validation.FromContext[LoginForm](r.Context())
	if !ok {
		common.WriteMsg(w, "bad request format", http.StatusBadRequest)
		return
	}

	u, err := uh.Repo.GetByEmailAndPass(r.Context(), form.Email, form.Password)
	if errors.Is(err, user.ErrInvalidCredentials) {
		logger.Log(r.Context()).Infof("failed login for `%s`", form.Email)
		common.WriteMsg(w, "invalid credentials", http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Log(r.Context()).Errorf("can't get the user by email `%s` and password: %v", form.Email, err)
		common.WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}

	// Remove expired user session if there are any
	if err := uh.SessionManager.CleanupUserSessions(u.Id); err != nil {
		logger.Log(r.Context()).Errorf("user/handlers: can't cleanup sessions for user `%s`, %v", u.Username, err)
		common.WriteMsg(w, "failed managing user sessions", http.StatusInternalServerError)
		return
	}

	uh.sendToken(w, r, u, http.StatusOK)
}

func (uh UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	form, ok := validation.FromContext[RegisterForm](r.Context())
	if !ok {
		common.WriteMsg(w, "bad request format", http.StatusBadRequest)
		return
	}

	exists, err := uh.Repo.Exists(r.Context(), form.Username, form.Email)
	if err != nil {
		logger.Log(r.Context()).Errorf("can't check if user `%s` exists: %v", form.Username, err)
		common.WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}
	if exists {
		common.WriteMsg(w, "user already exists", http.StatusBadRequest)
		return
	}

	u := &user.User{
		Username: form.Username,
		Email:    form.Email,
		Password: common.HashPass(form.Password, common.RandStringRunes(common.SaltLen)),
		// Id and Created are filled by the repo
	}
	if _, err := uh.Repo.Add(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrAlreadyExists) {
			common.WriteMsg(w, "user already exists", http.StatusBadRequest)
			return
		}
		logger.Log(r.Context()).Errorf("can't add user `%s`: %v", form.Username, err)
		common.WriteMsg(w, "can't add user", http.StatusInternalServerError)
		return
	}

	uh.sendToken(w, r, u, http.StatusCreated)
}

// LogOut revokes the session of the token the request came with.
func (uh UserHandler) LogOut(w http.ResponseWriter, r *http.Request) {
	if err := uh.SessionManager.Revoke(r.Header.Get("Authorization")); err != nil {
		logger.Log(r.Context()).Errorf("can't revoke session: %v", err)
		common.WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}
	common.WriteMsg(w, "logged out", http.StatusOK)
}

func (uh UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := sessions.GetAuthUser(r.Context())
	if err != nil {
		common.WriteMsg(w, "not authorized", http.StatusUnauthorized)
		return
	}
	common.WriteRespJSON(w, u)
}

// Profile shows the user with their newest published posts.
func (uh UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userId := mux.Vars(r)["user_id"]
	u, err := uh.Repo.GetById(r.Context(), userId)
	if errors.Is(err, user.ErrNotFound) {
		common.WriteMsg(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log(r.Context()).Errorf("can't get user %s: %v", userId, err)
		common.WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}

	posts, err := uh.Posts.RecentByAuthor(r.Context(), u.Id, profilePosts)
	if err == nil {
		err = post.Populate(r.Context(), uh.Repo, posts, false)
	}
	if err != nil {
		logger.Log(r.Context()).Errorf("can't load posts of user %s: %v", userId, err)
		common.WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}

	common.WriteRespJSON(w, profileResp{User: u, Posts: posts})
}

func (uh UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	authUser, err := sessions.GetAuthUser(r.Context())
	if err != nil {
		common.WriteMsg(w, "not authorized", http.StatusUnauthorized)
		return
	}
	form, ok := validation.FromContext[ProfileForm](r.Context())
	if !ok {
		common.WriteMsg(w, "bad request format", http.StatusBadRequest)
		return
	}

	u := *authUser
	if form.Username != nil && *form.Username != "" && *form.Username != u.Username {
		taken, err := uh.Repo.UsernameTaken(r.Context(), *form.Username, u.Id)
		if err != nil {
			logger.Log(r.Context()).Errorf("can't check username `%s`: %v", *form.Username, err)
			common.WriteMsg(w, "server error", http.StatusInternalServerError)
			return
		}
		if taken {
			common.WriteMsg(w, "username is already taken", http.StatusBadRequest)
			return
		}
		u.Username = *form.Username
	}
	if form.Bio != nil {
		u.Bio = *form.Bio
	}
	if form.Avatar != nil && *form.Avatar != "" {
		u.Avatar = *form.Avatar
	}

	err = uh.Repo.UpdateProfile(r.Context(), &u)
	if errors.Is(err, user.ErrUsernameTaken) {
		common.WriteMsg(w, "username is already taken", http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Log(r.Context()).Errorf("can't update profile of user %s: %v", u.Id, err)
		common.WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}

	common.WriteRespJSON(w, &u)
}

// MyPosts lists posts of the current user in any status.
func (uh UserHandler) MyPosts(w http.ResponseWriter, r *http.Request) {
	u, err := sessions.GetAuthUser(r.Context())
	if err != nil {
		common.WriteMsg(w, "not authorized", http.StatusUnauthorized)
		return
	}

	p := post.ParsePagination(r.URL.Query())
	posts, total, err := uh.Posts.ListByAuthor(r.Context(), u.Id, p)
	if err == nil {
		err = post.Populate(r.Context(), uh.Repo, posts, false)
	}
	if err != nil {
		logger.Log(r.Context()).Errorf("can't load posts of user %s: %v", u.Id, err)
		common.WriteMsg(w, "server error", http.StatusInternalServerError)
		return
	}

	common.WriteRespJSON(w, post.NewPage(posts, total, p))
}

func (uh *UserHandler) sendToken(w http.ResponseWriter, r *http.Request, u *user.User, code int) {
	token, err := uh.SessionManager.CreateToken(u)
	if err != nil {
		logger.Log(r.Context()).Errorf("can't create JWT token from user: %v", err)
		common.WriteMsg(w, "user authentication failed", http.StatusInternalServerError)
		return
	}

	common.WriteJSON(w, authResp{Token: token, User: u}, code)
}
