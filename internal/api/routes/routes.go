package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/aicruiter/internal/api/handlers"
	"github.com/yoockh/aicruiter/internal/api/middleware"
	"github.com/yoockh/aicruiter/internal/authz"
)

type Deps struct {
	JWT       middleware.JWTConfig
	Auth      *handlers.AuthHandler
	Profile   *handlers.ProfileHandler
	Interview *handlers.InterviewHandler
	WS        *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Public: landing page checks and the candidate join flow
	public := r.Group("/")
	public.Use(middleware.OptionalJWT(d.JWT))

	public.GET("/auth/check", d.Auth.Check)
	public.GET("/interviews/:interview_id", d.Interview.Get)
	public.GET("/ws/interview/:interview_id", middleware.Guard(authz.ViewInterviewRoom), d.WS.InterviewWS)

	// Dashboard (JWT)
	dash := r.Group("/")
	dash.Use(middleware.JWTAuth(d.JWT), middleware.Guard(authz.ViewDashboard))

	dash.GET("/profile/me", d.Profile.Me)
	dash.GET("/interviews", d.Interview.ListLatest)
	dash.GET("/interviews/:interview_id/calls", d.Interview.ListCalls)

	create := r.Group("/interviews")
	create.Use(middleware.JWTAuth(d.JWT), middleware.Guard(authz.ViewCreateInterview))

	create.POST("", d.Interview.Create)
	create.POST("/questions", d.Interview.GenerateQuestions)
}
