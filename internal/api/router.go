package api

import (
	"net/http"
	"time"
	"vote_zone/internal/api/handler"
	"vote_zone/internal/api/middleware"
	"vote_zone/internal/app/service"
	"vote_zone/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	authService *service.AuthService,
	submissionService *service.SubmissionService,
	voteService *service.VoteService,
	groupService *service.SubmissionGroupService,
	fileService *service.FileService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifier only parses "Authorization: Bearer T" into the context; middleware.Authenticator
	// rejects requests on the protected routes.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Route("/auth", authHandler.RegisterRoutes)

		submissionHandler := handler.NewSubmissionHandler(submissionService)
		voteHandler := handler.NewVoteHandler(voteService)
		groupHandler := handler.NewSubmissionGroupHandler(groupService)
		fileHandler := handler.NewFileHandler(fileService)

		v1.Group(func(protected chi.Router) {
			protected.Use(middleware.Authenticator)

			protected.Route("/submissions", func(sr chi.Router) {
				submissionHandler.RegisterRoutes(sr)
				sr.Route("/{submissionID}/votes", voteHandler.RegisterRoutes)
			})
			protected.Route("/submission-groups", groupHandler.RegisterRoutes)
			protected.Route("/files", fileHandler.RegisterRoutes)
		})
	})

	return r
}
