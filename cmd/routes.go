package main

import (
	"context"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	. "blog/pkg/common"
	"blog/pkg/config"
	"blog/pkg/middleware"
	"blog/pkg/post"
	"blog/pkg/sessions"
	"blog/pkg/user"
	userapi "blog/pkg/user/api"
	"blog/pkg/validation"
)

func newRouter(
	ctx context.Context,
	cfg *config.Config,
	l *zap.SugaredLogger,
	usersRepo *user.UserRepo,
	postsRepo *post.Repo,
	sessionManager *sessions.SessionManager,
) http.Handler {
	postHandler := post.NewPostHandler(postsRepo, usersRepo)
	userHandler := userapi.NewUserHandler(usersRepo, sessionManager, postsRepo)

	// 10 register/login attempts per minute per IP
	authLimiter := middleware.NewRateLimiter(ctx, 10, 5)
	authLimiter.TrustProxy = cfg.TrustProxy

	authed := func(h http.HandlerFunc, mws ...middleware.Middleware) http.Handler {
		return middleware.Chain(h, append([]middleware.Middleware{middleware.RequireAuth}, mws...)...)
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		WriteMsg(w, "ok", http.StatusOK)
	}).Methods("GET")

	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteMsg(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	r.MethodNotAllowedHandler = methodNotAllowed

	api := r.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteMsg(w, "not found", http.StatusNotFound)
	})
	api.MethodNotAllowedHandler = methodNotAllowed

	// Posts
	api.HandleFunc("/posts", postHandler.List).Methods("GET")
	api.HandleFunc("/posts/search", postHandler.Search).Methods("GET")
	api.HandleFunc("/posts/{post_id}", postHandler.Get).Methods("GET")
	api.Handle("/posts", authed(postHandler.Add, validation.Body[post.Form])).Methods("POST")
	api.Handle("/posts/{post_id}", authed(postHandler.Update, validation.Body[post.Form])).Methods("PUT")
	api.Handle("/posts/{post_id}", authed(postHandler.Delete)).Methods("DELETE")
	api.Handle("/posts/{post_id}/like", authed(postHandler.Like)).Methods("POST")
	api.Handle("/posts/{post_id}/comments", authed(postHandler.AddComment, validation.Body[post.CommentForm])).Methods("POST")

	// Auth
	api.Handle("/auth/register", middleware.Chain(http.HandlerFunc(userHandler.Register),
		authLimiter.Middleware, validation.Body[userapi.RegisterForm])).Methods("POST")
	api.Handle("/auth/login", middleware.Chain(http.HandlerFunc(userHandler.LogIn),
		authLimiter.Middleware, validation.Body[userapi.LoginForm])).Methods("POST")
	api.Handle("/auth/logout", authed(userHandler.LogOut)).Methods("POST")
	api.Handle("/auth/me", authed(userHandler.Me)).Methods("GET")

	// Users
	api.HandleFunc("/users/profile/{user_id}", userHandler.Profile).Methods("GET")
	api.Handle("/users/profile", authed(userHandler.UpdateProfile, validation.Body[userapi.ProfileForm])).Methods("PUT")
	api.Handle("/users/posts", authed(userHandler.MyPosts)).Methods("GET")

	// Admin
	api.Handle("/admin/posts", middleware.Chain(http.HandlerFunc(postHandler.ListAll), middleware.RequireAdmin)).Methods("GET")

	if cfg.StaticDir != "" {
		r.PathPrefix("/").Handler(spaHandler{staticPath: cfg.StaticDir, indexPath: "index.html"})
	}

	logMiddleware := middleware.NewLoggingMiddleware(l)
	auth := middleware.NewAuthMiddleware(sessionManager, usersRepo)
	r.Use(logMiddleware.SetupTracing)
	r.Use(logMiddleware.SetupLogging)
	r.Use(logMiddleware.AccessLog)
	r.Use(logMiddleware.Recover)
	r.Use(auth.Middleware)

	return cors.New(cors.Options{
		AllowedOrigins: cfg.CorsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}).Handler(r)
}
