package routes

import (
	"net/http"

	"clientdesk/handlers"
	"clientdesk/middlewares"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Users     *handlers.UserHandler
	Projects  *handlers.ProjectHandler
	Tasks     *handlers.TaskHandler
	Files     *handlers.FileHandler
	Brochures *handlers.BrochureHandler
	Leads     *handlers.LeadHandler
	Events    *handlers.EventHandler
	Health    *handlers.HealthHandler
}

func SetupRoutes(h Handlers, jwtSecret string) *http.ServeMux {
	mux := http.NewServeMux()

	jwtMiddleware := middlewares.JWTMiddleware(jwtSecret)
	protect := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, jwtMiddleware(fn))
	}

	// Public routes
	mux.HandleFunc("POST /api/auth/signup", h.Auth.Signup)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/public/leads", h.Auth.CaptureLead)
	mux.HandleFunc("GET /healthz", h.Health.Check)

	protect("GET /api/auth/me", h.Auth.Me)

	// Users
	protect("GET /api/users", h.Users.GetUsers)
	protect("POST /api/users", h.Users.CreateUser)
	protect("PUT /api/users/{id}", h.Users.UpdateUser)

	// Projects and stages
	protect("GET /api/projects", h.Projects.GetProjects)
	protect("POST /api/projects", h.Projects.CreateProject)
	protect("GET /api/projects/{id}", h.Projects.GetProject)
	protect("PUT /api/projects/{id}", h.Projects.UpdateProject)
	protect("GET /api/projects/{id}/stages", h.Projects.GetStages)
	protect("PUT /api/stages/{id}", h.Projects.UpdateStage)
	protect("POST /api/stages/{id}/approval", h.Projects.SetStageApproval)

	// Tasks and comment tasks
	protect("GET /api/projects/{id}/tasks", h.Tasks.GetTasks)
	protect("POST /api/projects/{id}/tasks", h.Tasks.CreateTask)
	protect("PUT /api/tasks/{id}", h.Tasks.UpdateTask)
	protect("DELETE /api/tasks/{id}", h.Tasks.DeleteTask)
	protect("GET /api/projects/{id}/comments", h.Tasks.GetComments)
	protect("POST /api/projects/{id}/comments", h.Tasks.CreateComment)
	protect("PUT /api/comments/{id}", h.Tasks.UpdateComment)
	protect("DELETE /api/comments/{id}", h.Tasks.DeleteComment)

	// Files
	protect("GET /api/files", h.Files.GetFiles)
	protect("GET /api/projects/{id}/files", h.Files.GetProjectFiles)
	protect("POST /api/projects/{id}/files", h.Files.UploadFiles)
	protect("GET /api/files/{id}/download", h.Files.DownloadFile)
	protect("PUT /api/files/{id}", h.Files.UpdateFile)
	protect("DELETE /api/files/{id}", h.Files.DeleteFile)
	protect("GET /api/files/{id}/history", h.Files.GetDownloadHistory)

	// Brochures
	protect("GET /api/brochures", h.Brochures.GetBrochures)
	protect("POST /api/projects/{id}/brochures", h.Brochures.CreateBrochure)
	protect("GET /api/brochures/{id}/pages", h.Brochures.GetPages)
	protect("POST /api/brochures/{id}/pages", h.Brochures.AddPage)
	protect("PUT /api/pages/{id}", h.Brochures.UpdatePage)
	protect("POST /api/pages/{id}/lock", h.Brochures.LockPage)
	protect("DELETE /api/pages/{id}/lock", h.Brochures.UnlockPage)
	protect("POST /api/pages/{id}/status", h.Brochures.SetPageStatus)
	protect("GET /api/pages/{id}/preview", h.Brochures.PreviewPage)
	protect("POST /api/pages/{id}/images", h.Brochures.UploadImage)
	protect("GET /api/images/{id}", h.Brochures.GetImage)
	protect("GET /api/pages/{id}/comments", h.Brochures.GetPageComments)
	protect("POST /api/pages/{id}/comments", h.Brochures.AddPageComment)
	protect("POST /api/page-comments/{id}/resolve", h.Brochures.ResolvePageComment)

	// Leads and meetings
	protect("GET /api/leads", h.Leads.GetLeads)
	protect("POST /api/leads", h.Leads.CreateLead)
	protect("PUT /api/leads/{id}", h.Leads.UpdateLead)
	protect("DELETE /api/leads/{id}", h.Leads.DeleteLead)
	protect("GET /api/meetings", h.Leads.GetMeetings)
	protect("POST /api/meetings", h.Leads.CreateMeeting)
	protect("DELETE /api/meetings/{id}", h.Leads.DeleteMeeting)

	// Change notifications
	protect("GET /api/events", h.Events.Stream)

	return mux
}
