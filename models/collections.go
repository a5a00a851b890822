package models

// Mongo collection names. Also used as the collection key in change
// notifications and workspace reloads.
const (
	CollUsers        = "users"
	CollProjects     = "projects"
	CollStages       = "stages"
	CollTasks        = "tasks"
	CollComments     = "comment_tasks"
	CollFiles        = "files"
	CollDownloads    = "download_history"
	CollBrochures    = "brochure_projects"
	CollPages        = "brochure_pages"
	CollPageComments = "page_comments"
	CollLeads        = "leads"
	CollMeetings     = "meetings"
)

// WatchedCollections are the collections mirrored into workspaces.
var WatchedCollections = []string{
	CollUsers, CollProjects, CollStages, CollTasks, CollComments, CollFiles,
	CollDownloads, CollBrochures, CollPages, CollPageComments, CollLeads, CollMeetings,
}
