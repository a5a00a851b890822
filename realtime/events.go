package realtime

import (
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

const eventSource = "/clientdesk"

// ToCloudEvent wraps a change in a CloudEvents envelope for streaming
// clients, e.g. type "com.clientdesk.projects.update".
func ToCloudEvent(c Change) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(eventSource + "/" + c.Collection)
	e.SetType(fmt.Sprintf("com.clientdesk.%s.%s", c.Collection, c.Operation))
	e.SetSubject(c.DocumentID)
	e.SetTime(c.At)
	if err := e.SetData(cloudevents.ApplicationJSON, c); err != nil {
		return e, fmt.Errorf("set event data: %w", err)
	}
	return e, nil
}
