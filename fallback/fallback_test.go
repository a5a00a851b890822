package fallback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"clientdesk/models"
	repository "clientdesk/repositories"

	"go.mongodb.org/mongo-driver/bson"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKVPutGet(t *testing.T) {
	kv, err := OpenKV(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("OpenKV: %v", err)
	}
	defer kv.Close()

	if _, ok, err := kv.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}
	if err := kv.Put("k", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := kv.Put("k", []byte("two")); err != nil {
		t.Fatal(err)
	}
	v, ok, err := kv.Get("k")
	if err != nil || !ok || string(v) != "two" {
		t.Fatalf("Get(k) = %q, %v, %v", v, ok, err)
	}
}

func TestFileListSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "offline.db")

	kv, err := OpenKV(path)
	if err != nil {
		t.Fatal(err)
	}
	files, err := PersistFiles(ctx, repository.NewMemoryCollection[models.File](models.CollFiles, nil), kv, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	f := models.File{ID: "f1", ProjectID: "p1", Filename: "logo.png", Tags: []string{"brand"}}
	if err := files.Insert(ctx, &f); err != nil {
		t.Fatal(err)
	}
	if _, err := files.Update(ctx, repository.ByID("f1"), bson.M{"$inc": bson.M{"download_count": 1}}); err != nil {
		t.Fatal(err)
	}
	kv.Close()

	kv, err = OpenKV(path)
	if err != nil {
		t.Fatal(err)
	}
	defer kv.Close()
	restored, err := PersistFiles(ctx, repository.NewMemoryCollection[models.File](models.CollFiles, nil), kv, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	got, err := restored.FindOne(ctx, repository.ByID("f1"))
	if err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if got.Filename != "logo.png" || got.DownloadCount != 1 || len(got.Tags) != 1 {
		t.Errorf("restored file = %+v", got)
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(nil)
	if err := Seed(ctx, store); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	users, _ := store.Users.Find(ctx, bson.M{})
	if len(users) != 4 {
		t.Errorf("users = %d, want 4", len(users))
	}
	pages, _ := store.Pages.Find(ctx, bson.M{"brochure_id": "sample-brochure-a"})
	if len(pages) != 3 {
		t.Errorf("pages = %d, want 3", len(pages))
	}
}

func TestKVBlobStoreSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "blobs.db")

	kv, err := OpenKV(path)
	if err != nil {
		t.Fatal(err)
	}
	info, err := NewKVBlobStore(kv, "files").Upload(ctx, "brief.txt", "text/plain", "u1", strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	kv.Close()

	kv, err = OpenKV(path)
	if err != nil {
		t.Fatal(err)
	}
	defer kv.Close()
	blobs := NewKVBlobStore(kv, "files")

	rc, got, err := blobs.Open(ctx, info.ID)
	if err != nil {
		t.Fatalf("Open after restart: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "hello" || got.Name != "brief.txt" || got.Size != 5 {
		t.Errorf("blob = %q, %+v", body, got)
	}

	if _, _, err := NewKVBlobStore(kv, "images").Open(ctx, info.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("other bucket: err = %v", err)
	}
	if err := blobs.Delete(ctx, info.ID); err != nil {
		t.Fatal(err)
	}
	if _, _, err := blobs.Open(ctx, info.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("after delete: err = %v", err)
	}
}
