package models

import "time"

const (
	BrochureDraft    = "draft"
	BrochureInReview = "in_review"
	BrochureApproved = "approved"
)

type BrochureProject struct {
	ID        string    `json:"id" bson:"_id"`
	ProjectID string    `json:"project_id" bson:"project_id"`
	ClientID  string    `json:"client_id" bson:"client_id"`
	Title     string    `json:"title" bson:"title"`
	Status    string    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type PageContent struct {
	Text   string   `json:"text" bson:"text"`
	Images []string `json:"images" bson:"images"`
}

type BrochurePage struct {
	ID           string      `json:"id" bson:"_id"`
	BrochureID   string      `json:"brochure_id" bson:"brochure_id"`
	PageNumber   int         `json:"page_number" bson:"page_number"`
	Content      PageContent `json:"content" bson:"content"`
	Status       string      `json:"status" bson:"status"`
	LockedBy     string      `json:"locked_by,omitempty" bson:"locked_by"`
	LockedByName string      `json:"locked_by_name,omitempty" bson:"locked_by_name"`
	LockedAt     *time.Time  `json:"locked_at,omitempty" bson:"locked_at"`
	UpdatedAt    time.Time   `json:"updated_at" bson:"updated_at"`
}

func (p *BrochurePage) Locked() bool { return p.LockedBy != "" }

// LockedByOther reports whether someone other than userID holds the lock.
func (p *BrochurePage) LockedByOther(userID string) bool {
	return p.LockedBy != "" && p.LockedBy != userID
}

type PageComment struct {
	ID         string    `json:"id" bson:"_id"`
	PageID     string    `json:"page_id" bson:"page_id"`
	AuthorID   string    `json:"author_id" bson:"author_id"`
	AuthorName string    `json:"author_name" bson:"author_name"`
	Text       string    `json:"text" bson:"text"`
	Resolved   bool      `json:"resolved" bson:"resolved"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
