package models

import "time"

const (
	CategoryDocument = "document"
	CategoryImage    = "image"
	CategoryDesign   = "design"
	CategoryContract = "contract"
	CategoryOther    = "other"
)

type File struct {
	ID            string    `json:"id" bson:"_id"`
	ProjectID     string    `json:"project_id" bson:"project_id"`
	Filename      string    `json:"filename" bson:"filename"`
	StoragePath   string    `json:"storage_path" bson:"storage_path"` // GridFS file ID
	ContentType   string    `json:"content_type" bson:"content_type"`
	UploadedBy    string    `json:"uploaded_by" bson:"uploaded_by"`
	UploaderName  string    `json:"uploader_name" bson:"uploader_name"`
	Size          int64     `json:"size" bson:"size"`
	Category      string    `json:"category" bson:"category"`
	DownloadCount int       `json:"download_count" bson:"download_count"`
	Archived      bool      `json:"archived" bson:"archived"`
	Tags          []string  `json:"tags" bson:"tags"`
	UploadedAt    time.Time `json:"uploaded_at" bson:"uploaded_at"`
	Pending       bool      `json:"pending,omitempty" bson:"-"`
}

type DownloadHistory struct {
	ID           string    `json:"id" bson:"_id"`
	FileID       string    `json:"file_id" bson:"file_id"`
	UserID       string    `json:"user_id" bson:"user_id"`
	UserName     string    `json:"user_name" bson:"user_name"`
	DownloadedAt time.Time `json:"downloaded_at" bson:"downloaded_at"`
}
