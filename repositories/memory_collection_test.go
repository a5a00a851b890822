package repository

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"clientdesk/models"
	"clientdesk/realtime"

	"go.mongodb.org/mongo-driver/bson"
)

type recorder struct {
	changes []realtime.Change
}

func (r *recorder) Publish(c realtime.Change) { r.changes = append(r.changes, c) }

func TestMemoryCollectionFilters(t *testing.T) {
	ctx := context.Background()
	projects := NewMemoryCollection[models.Project](models.CollProjects, nil)
	for _, p := range []models.Project{
		{ID: "p1", ClientID: "c1", AssignedEmployees: []string{"e1", "e2"}},
		{ID: "p2", ClientID: "c2", AssignedEmployees: []string{}},
		{ID: "p3", ClientID: "c1"},
	} {
		if err := projects.Insert(ctx, &p); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter bson.M
		want   []string
	}{
		{"all", bson.M{}, []string{"p1", "p2", "p3"}},
		{"equality", bson.M{"client_id": "c1"}, []string{"p1", "p3"}},
		{"array contains", bson.M{"assigned_employees": "e2"}, []string{"p1"}},
		{"$in", bson.M{"_id": bson.M{"$in": []string{"p2", "p3", "missing"}}}, []string{"p2", "p3"}},
		{"empty $in", bson.M{"_id": bson.M{"$in": []string{}}}, nil},
		{"$ne", bson.M{"client_id": bson.M{"$ne": "c1"}}, []string{"p2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := projects.Find(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, r := range rows {
				got = append(got, r.ID)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Find(%v) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestMemoryCollectionUniqueIndex(t *testing.T) {
	ctx := context.Background()
	stages := NewMemoryCollection[models.Stage](models.CollStages, nil, []string{"project_id", "name"})

	if err := stages.Insert(ctx, &models.Stage{ID: "s1", ProjectID: "p1", Name: "Design"}); err != nil {
		t.Fatal(err)
	}
	if err := stages.Insert(ctx, &models.Stage{ID: "s2", ProjectID: "p2", Name: "Design"}); err != nil {
		t.Fatalf("same name on another project: %v", err)
	}
	err := stages.Insert(ctx, &models.Stage{ID: "s3", ProjectID: "p1", Name: "Design"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	err = stages.Insert(ctx, &models.Stage{ID: "s1", ProjectID: "p9", Name: "Concept"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("reused id: err = %v, want ErrDuplicate", err)
	}
}

func TestMemoryCollectionUpdate(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	pages := NewMemoryCollection[models.BrochurePage](models.CollPages, rec)
	if err := pages.Insert(ctx, &models.BrochurePage{ID: "pg1", BrochureID: "b1", PageNumber: 1}); err != nil {
		t.Fatal(err)
	}

	lockedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	lockable := bson.M{"_id": "pg1", "locked_by": bson.M{"$in": bson.A{"", nil, "u1"}}}
	n, err := pages.Update(ctx, lockable, bson.M{"$set": bson.M{"locked_by": "u1", "locked_at": lockedAt}})
	if err != nil || n != 1 {
		t.Fatalf("first lock = %d, %v", n, err)
	}

	other := bson.M{"_id": "pg1", "locked_by": bson.M{"$in": bson.A{"", nil, "u2"}}}
	if n, _ := pages.Update(ctx, other, bson.M{"$set": bson.M{"locked_by": "u2"}}); n != 0 {
		t.Fatalf("second locker matched %d rows", n)
	}

	got, err := pages.FindOne(ctx, ByID("pg1"))
	if err != nil {
		t.Fatal(err)
	}
	if got.LockedBy != "u1" || got.LockedAt == nil || !got.LockedAt.Equal(lockedAt) {
		t.Errorf("page = %+v", got)
	}

	if _, err := pages.Update(ctx, ByID("pg1"), bson.M{"$set": bson.M{"locked_by": "", "locked_at": nil}}); err != nil {
		t.Fatal(err)
	}
	got, _ = pages.FindOne(ctx, ByID("pg1"))
	if got.Locked() || got.LockedAt != nil {
		t.Errorf("unlock left %+v", got)
	}

	if len(rec.changes) != 3 {
		t.Fatalf("published %d changes, want 3", len(rec.changes))
	}
	if c := rec.changes[1]; c.Operation != realtime.OpUpdate || c.DocumentID != "pg1" || c.Collection != models.CollPages {
		t.Errorf("change = %+v", c)
	}
}

func TestMemoryCollectionIncrement(t *testing.T) {
	ctx := context.Background()
	files := NewMemoryCollection[models.File](models.CollFiles, nil)
	if err := files.Insert(ctx, &models.File{ID: "f1"}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := files.Update(ctx, ByID("f1"), bson.M{"$inc": bson.M{"download_count": 1}}); err != nil {
			t.Fatal(err)
		}
	}
	f, _ := files.FindOne(ctx, ByID("f1"))
	if f.DownloadCount != 3 {
		t.Errorf("download_count = %d, want 3", f.DownloadCount)
	}
	if _, err := files.Update(ctx, ByID("f1"), bson.M{"$push": bson.M{"tags": "x"}}); err == nil {
		t.Error("expected an error for an unsupported operator")
	}
}

func TestMemoryCollectionNotFound(t *testing.T) {
	ctx := context.Background()
	leads := NewMemoryCollection[models.Lead](models.CollLeads, nil)

	if _, err := leads.FindOne(ctx, ByID("nope")); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("FindOne: %v", err)
	}
	if err := leads.Delete(ctx, "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Delete: %v", err)
	}
	if err := leads.Replace(ctx, "nope", &models.Lead{ID: "nope"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Replace: %v", err)
	}
	if n, err := leads.Update(ctx, ByID("nope"), bson.M{"$set": bson.M{"notes": "x"}}); n != 0 || err != nil {
		t.Errorf("Update = %d, %v", n, err)
	}
}

func TestMemoryBlobStore(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobStore()

	info, err := blobs.Upload(ctx, "logo.svg", "image/svg+xml", "u1", strings.NewReader("<svg/>"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size != 6 {
		t.Errorf("size = %d", info.Size)
	}
	rc, got, err := blobs.Open(ctx, info.ID)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "<svg/>" || got.ContentType != "image/svg+xml" {
		t.Errorf("open = %q, %+v", body, got)
	}
	if err := blobs.Delete(ctx, info.ID); err != nil {
		t.Fatal(err)
	}
	if _, _, err := blobs.Open(ctx, info.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("open after delete: %v", err)
	}
}
