package access

import "clientdesk/models"

type Action string

const (
	CreateProject   Action = "project.create"
	UpdateProject   Action = "project.update"
	AssignEmployees Action = "project.assign"
	UpdateStage     Action = "stage.update"
	ApproveStage    Action = "stage.approve"
	ManageTasks     Action = "task.manage"
	CreateComment   Action = "comment.create"
	UpdateComment   Action = "comment.update"
	UploadFile      Action = "file.upload"
	ManageFiles     Action = "file.manage"
	ViewDownloads   Action = "file.history"
	CreateBrochure  Action = "brochure.create"
	EditPage        Action = "page.edit"
	ApprovePage     Action = "page.approve"
	CommentPage     Action = "page.comment"
	ManageLeads     Action = "lead.manage"
	ScheduleMeeting Action = "meeting.manage"
	ManageUsers     Action = "user.manage"
)

var rights = map[Action][]models.Role{
	CreateProject:   {models.RoleManager},
	UpdateProject:   {models.RoleManager, models.RoleEmployee},
	AssignEmployees: {models.RoleManager},
	UpdateStage:     {models.RoleManager, models.RoleEmployee},
	ApproveStage:    {models.RoleManager, models.RoleClient},
	ManageTasks:     {models.RoleManager, models.RoleEmployee},
	CreateComment:   {models.RoleManager, models.RoleEmployee, models.RoleClient},
	UpdateComment:   {models.RoleManager, models.RoleEmployee},
	UploadFile:      {models.RoleManager, models.RoleEmployee, models.RoleClient},
	ManageFiles:     {models.RoleManager, models.RoleEmployee},
	ViewDownloads:   {models.RoleManager},
	CreateBrochure:  {models.RoleManager},
	EditPage:        {models.RoleManager, models.RoleEmployee},
	ApprovePage:     {models.RoleManager, models.RoleClient},
	CommentPage:     {models.RoleManager, models.RoleEmployee, models.RoleClient},
	ManageLeads:     {models.RoleManager, models.RoleEmployee},
	ScheduleMeeting: {models.RoleManager, models.RoleEmployee},
	ManageUsers:     {models.RoleManager},
}

// Can reports whether the viewer's role permits the action. Row visibility
// is checked separately.
func Can(v Viewer, a Action) bool {
	for _, r := range rights[a] {
		if r == v.Role {
			return true
		}
	}
	return false
}

// Require returns models.ErrForbidden when the action is not permitted.
func Require(v Viewer, a Action) error {
	if !Can(v, a) {
		return models.ErrForbidden
	}
	return nil
}
