package fallback

import (
	"context"
	"fmt"
	"time"

	"clientdesk/models"
	repository "clientdesk/repositories"

	"golang.org/x/crypto/bcrypt"
)

// SamplePassword is the password of every seeded account.
const SamplePassword = "changeme123"

// Seed fills an empty offline store with sample rows.
func Seed(ctx context.Context, store *repository.Store) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(SamplePassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash sample password: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	deadline := now.AddDate(0, 1, 0)

	users := []models.User{
		{ID: "sample-manager", Email: "manager@example.com", Name: "Morgan Manager", Role: models.RoleManager},
		{ID: "sample-employee", Email: "designer@example.com", Name: "Dana Designer", Role: models.RoleEmployee},
		{ID: "sample-client-a", Email: "client.a@example.com", Name: "Acme Bakery", Role: models.RoleClient},
		{ID: "sample-client-b", Email: "client.b@example.com", Name: "Birch Dental", Role: models.RoleClient},
	}
	for i := range users {
		users[i].PasswordHash = string(hash)
		users[i].CreatedAt = now
		if err := store.Users.Insert(ctx, &users[i]); err != nil {
			return fmt.Errorf("seed user %s: %w", users[i].Email, err)
		}
	}

	projects := []models.Project{
		{
			ID:                "sample-project-a",
			Title:             "Acme spring brochure",
			Description:       "Eight-page print brochure for the spring menu.",
			ClientID:          "sample-client-a",
			ClientName:        "Acme Bakery",
			AssignedEmployees: []string{"sample-employee"},
			Deadline:          &deadline,
			Progress:          35,
			Status:            models.ProjectActive,
			Priority:          "high",
		},
		{
			ID:                "sample-project-b",
			Title:             "Birch Dental website refresh",
			Description:       "Landing page and appointment flow.",
			ClientID:          "sample-client-b",
			ClientName:        "Birch Dental",
			AssignedEmployees: []string{},
			Progress:          10,
			Status:            models.ProjectPlanning,
			Priority:          "medium",
		},
	}
	for i := range projects {
		projects[i].CreatedAt = now
		projects[i].UpdatedAt = now
		if err := store.Projects.Insert(ctx, &projects[i]); err != nil {
			return fmt.Errorf("seed project %s: %w", projects[i].ID, err)
		}
	}

	brochure := models.BrochureProject{
		ID:        "sample-brochure-a",
		ProjectID: "sample-project-a",
		ClientID:  "sample-client-a",
		Title:     "Spring menu",
		Status:    models.BrochureInReview,
		CreatedAt: now,
	}
	if err := store.Brochures.Insert(ctx, &brochure); err != nil {
		return fmt.Errorf("seed brochure: %w", err)
	}
	for n := 1; n <= 3; n++ {
		page := models.BrochurePage{
			ID:         fmt.Sprintf("sample-page-%d", n),
			BrochureID: brochure.ID,
			PageNumber: n,
			Content:    models.PageContent{Text: fmt.Sprintf("# Page %d\n\nDraft copy.", n), Images: []string{}},
			Status:     models.ApprovalPending,
			UpdatedAt:  now,
		}
		if err := store.Pages.Insert(ctx, &page); err != nil {
			return fmt.Errorf("seed page %d: %w", n, err)
		}
	}

	lead := models.Lead{
		ID:        "sample-lead",
		Name:      "Casey Prospect",
		Email:     "casey@example.org",
		Company:   "Prospect Florists",
		Source:    "website",
		Status:    "new",
		CreatedAt: now,
	}
	if err := store.Leads.Insert(ctx, &lead); err != nil {
		return fmt.Errorf("seed lead: %w", err)
	}
	return nil
}
