package repository

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"clientdesk/models"
	"clientdesk/realtime"

	"go.mongodb.org/mongo-driver/bson"
)

// memoryCollection is the offline stand-in for a Mongo collection. Rows are
// kept as BSON documents so filters and updates see the same field names the
// Mongo implementation does.
type memoryCollection[T any] struct {
	mu     sync.RWMutex
	name   string
	rows   map[string]bson.M
	order  []string
	unique [][]string
	pub    realtime.Publisher
}

// NewMemoryCollection creates an empty collection. Each entry of unique is a
// set of fields that must be unique together. Writes are announced on pub
// when it is non-nil.
func NewMemoryCollection[T any](name string, pub realtime.Publisher, unique ...[]string) Collection[T] {
	return &memoryCollection[T]{
		name:   name,
		rows:   make(map[string]bson.M),
		unique: unique,
		pub:    pub,
	}
}

func toDocument(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument[T any](doc bson.M) (T, error) {
	var out T
	raw, err := bson.Marshal(doc)
	if err != nil {
		return out, err
	}
	err = bson.Unmarshal(raw, &out)
	return out, err
}

func (c *memoryCollection[T]) publish(op, id string) {
	if c.pub != nil {
		c.pub.Publish(realtime.Change{Collection: c.name, Operation: op, DocumentID: id, At: time.Now()})
	}
}

func (c *memoryCollection[T]) Find(ctx context.Context, filter bson.M) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []T{}
	for _, id := range c.order {
		doc := c.rows[id]
		if !matches(doc, filter) {
			continue
		}
		row, err := fromDocument[T](doc)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.name, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func (c *memoryCollection[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.order {
		doc := c.rows[id]
		if matches(doc, filter) {
			row, err := fromDocument[T](doc)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", c.name, err)
			}
			return &row, nil
		}
	}
	return nil, models.ErrNotFound
}

func (c *memoryCollection[T]) violatesUnique(doc bson.M, skipID string) bool {
	for _, fields := range c.unique {
		for id, other := range c.rows {
			if id == skipID {
				continue
			}
			same := true
			for _, f := range fields {
				if !reflect.DeepEqual(doc[f], other[f]) {
					same = false
					break
				}
			}
			if same {
				return true
			}
		}
	}
	return false
}

func (c *memoryCollection[T]) Insert(ctx context.Context, row *T) error {
	doc, err := toDocument(row)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	id, _ := doc["_id"].(string)
	if id == "" {
		return fmt.Errorf("insert %s: missing _id", c.name)
	}

	c.mu.Lock()
	if _, exists := c.rows[id]; exists || c.violatesUnique(doc, "") {
		c.mu.Unlock()
		return fmt.Errorf("insert %s: %w", c.name, ErrDuplicate)
	}
	c.rows[id] = doc
	c.order = append(c.order, id)
	c.mu.Unlock()

	c.publish(realtime.OpInsert, id)
	return nil
}

func (c *memoryCollection[T]) Replace(ctx context.Context, id string, row *T) error {
	doc, err := toDocument(row)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	doc["_id"] = id

	c.mu.Lock()
	if _, exists := c.rows[id]; !exists {
		c.mu.Unlock()
		return fmt.Errorf("no document found with id %s: %w", id, models.ErrNotFound)
	}
	if c.violatesUnique(doc, id) {
		c.mu.Unlock()
		return fmt.Errorf("replace %s: %w", c.name, ErrDuplicate)
	}
	c.rows[id] = doc
	c.mu.Unlock()

	c.publish(realtime.OpReplace, id)
	return nil
}

func (c *memoryCollection[T]) Update(ctx context.Context, filter bson.M, update bson.M) (int64, error) {
	c.mu.Lock()
	var target string
	for _, id := range c.order {
		if matches(c.rows[id], filter) {
			target = id
			break
		}
	}
	if target == "" {
		c.mu.Unlock()
		return 0, nil
	}
	if err := applyUpdate(c.rows[target], update); err != nil {
		c.mu.Unlock()
		return 0, fmt.Errorf("update %s: %w", c.name, err)
	}
	c.mu.Unlock()

	c.publish(realtime.OpUpdate, target)
	return 1, nil
}

func (c *memoryCollection[T]) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	if _, exists := c.rows[id]; !exists {
		c.mu.Unlock()
		return fmt.Errorf("no document found with id %s: %w", id, models.ErrNotFound)
	}
	delete(c.rows, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.publish(realtime.OpDelete, id)
	return nil
}

// NewMemoryStore builds a fully in-memory store; writes are announced on pub.
func NewMemoryStore(pub realtime.Publisher) *Store {
	return &Store{
		Users:        NewMemoryCollection[models.User](models.CollUsers, pub, []string{"email"}),
		Projects:     NewMemoryCollection[models.Project](models.CollProjects, pub),
		Stages:       NewMemoryCollection[models.Stage](models.CollStages, pub, []string{"project_id", "name"}),
		Tasks:        NewMemoryCollection[models.Task](models.CollTasks, pub),
		Comments:     NewMemoryCollection[models.CommentTask](models.CollComments, pub),
		Files:        NewMemoryCollection[models.File](models.CollFiles, pub),
		Downloads:    NewMemoryCollection[models.DownloadHistory](models.CollDownloads, pub),
		Brochures:    NewMemoryCollection[models.BrochureProject](models.CollBrochures, pub),
		Pages:        NewMemoryCollection[models.BrochurePage](models.CollPages, pub, []string{"brochure_id", "page_number"}),
		PageComments: NewMemoryCollection[models.PageComment](models.CollPageComments, pub),
		Leads:        NewMemoryCollection[models.Lead](models.CollLeads, pub),
		Meetings:     NewMemoryCollection[models.Meeting](models.CollMeetings, pub),
		FileBlobs:    NewMemoryBlobStore(),
		ImageBlobs:   NewMemoryBlobStore(),
	}
}
