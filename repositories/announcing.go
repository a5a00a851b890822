package repository

import (
	"context"

	"clientdesk/models"
	"clientdesk/realtime"

	"go.mongodb.org/mongo-driver/bson"
)

type identified interface {
	GetID() string
}

// announcing publishes every successful write of the wrapped collection.
// It stands in for the change stream when the deployment cannot provide one.
type announcing[T identified] struct {
	Collection[T]
	name string
	pub  realtime.Publisher
}

func announce[T identified](c Collection[T], name string, pub realtime.Publisher) Collection[T] {
	return &announcing[T]{Collection: c, name: name, pub: pub}
}

func (a *announcing[T]) publish(op, id string) {
	a.pub.Publish(realtime.Change{Collection: a.name, Operation: op, DocumentID: id})
}

func (a *announcing[T]) Insert(ctx context.Context, doc *T) error {
	if err := a.Collection.Insert(ctx, doc); err != nil {
		return err
	}
	a.publish(realtime.OpInsert, (*doc).GetID())
	return nil
}

func (a *announcing[T]) Replace(ctx context.Context, id string, doc *T) error {
	if err := a.Collection.Replace(ctx, id, doc); err != nil {
		return err
	}
	a.publish(realtime.OpReplace, id)
	return nil
}

func (a *announcing[T]) Update(ctx context.Context, filter, update bson.M) (int64, error) {
	n, err := a.Collection.Update(ctx, filter, update)
	if err != nil || n == 0 {
		return n, err
	}
	id, _ := filter["_id"].(string)
	a.publish(realtime.OpUpdate, id)
	return n, nil
}

func (a *announcing[T]) Delete(ctx context.Context, id string) error {
	if err := a.Collection.Delete(ctx, id); err != nil {
		return err
	}
	a.publish(realtime.OpDelete, id)
	return nil
}

// AnnounceWrites makes the store publish its own row writes on pub. Use it
// for a remote store when no change stream is running.
func (s *Store) AnnounceWrites(pub realtime.Publisher) {
	s.Users = announce(s.Users, models.CollUsers, pub)
	s.Projects = announce(s.Projects, models.CollProjects, pub)
	s.Stages = announce(s.Stages, models.CollStages, pub)
	s.Tasks = announce(s.Tasks, models.CollTasks, pub)
	s.Comments = announce(s.Comments, models.CollComments, pub)
	s.Files = announce(s.Files, models.CollFiles, pub)
	s.Downloads = announce(s.Downloads, models.CollDownloads, pub)
	s.Brochures = announce(s.Brochures, models.CollBrochures, pub)
	s.Pages = announce(s.Pages, models.CollPages, pub)
	s.PageComments = announce(s.PageComments, models.CollPageComments, pub)
	s.Leads = announce(s.Leads, models.CollLeads, pub)
	s.Meetings = announce(s.Meetings, models.CollMeetings, pub)
}
