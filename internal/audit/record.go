package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/hopekit/targeting/internal/auth"
)

// SystemActor is the actor of events not caused by an API request.
const SystemActor = "system"

func requestEvent(r *http.Request) Event {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		actor = "anonymous"
	}
	return Event{
		RequestID: middleware.GetReqID(r.Context()),
		Actor:     actor,
		Source:    Source{IPAddress: r.RemoteAddr, UserAgent: r.UserAgent()},
		Status:    StatusSuccess,
	}
}

// TargetingChange records a create, update or delete of a saved targeting.
// before is nil for a create and after is nil for a delete.
func TargetingChange(r *http.Request, action, id, programmeID string, before, after map[string]any) Event {
	e := requestEvent(r)
	e.Action = action
	e.ResourceType = ResourceTypeTargeting
	e.ResourceID = id
	e.ProgrammeID = programmeID
	e.BeforeState = before
	e.AfterState = after
	return e
}

// CatalogReload records a catalog swap identified by the new ETag. A non-nil
// err marks the attempt as failed; the running catalog stays in place.
func CatalogReload(path, etag string, err error) Event {
	e := Event{
		Actor:        SystemActor,
		Action:       ActionReloaded,
		ResourceType: ResourceTypeCatalog,
		ResourceID:   path,
		Status:       StatusSuccess,
	}
	if err != nil {
		e.Status = StatusFailure
		e.ErrorMessage = err.Error()
		return e
	}
	e.AfterState = map[string]any{"etag": etag}
	return e
}
