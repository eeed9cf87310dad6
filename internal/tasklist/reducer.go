package tasklist

import (
	"slices"

	"github.com/taskwiz/taskwiz/internal/cli/client"
)

// Mirror is the in-memory copy of one page of server tasks. Page is whatever
// the server echoed for the last load, so after a request past the last page
// it can exceed TotalPages while Items is empty.
type Mirror struct {
	Items      []client.Task
	Page       int
	PageSize   int
	Total      int
	TotalPages int
	Loading    bool
	Err        string
}

// Empty is the mirror before the first page load.
func Empty() Mirror {
	return Mirror{Items: []client.Task{}, Page: 1, TotalPages: 1}
}

// Find returns the mirrored task with id.
func (m Mirror) Find(id string) (client.Task, bool) {
	i := m.index(id)
	if i < 0 {
		return client.Task{}, false
	}
	return m.Items[i], true
}

func (m Mirror) index(id string) int {
	return slices.IndexFunc(m.Items, func(t client.Task) bool { return t.ID == id })
}

// The reducers below are pure: they never modify prev or its Items slice, and
// they carry the server's objects verbatim.

// ApplyPage replaces the mirror's page wholesale. requested stands in for a
// response that omits its page number.
func ApplyPage(prev Mirror, requested int, page client.TaskPage) Mirror {
	next := prev
	next.Items = slices.Clone(page.Items)
	if next.Items == nil {
		next.Items = []client.Task{}
	}
	next.Page = page.Page
	if next.Page < 1 {
		next.Page = max(requested, 1)
	}
	next.PageSize = page.PageSize
	next.Total = page.Total
	next.TotalPages = page.TotalPages
	if next.TotalPages < 1 {
		next.TotalPages = 1
	}
	return next
}

// ApplyCreated appends the server-assigned task. Totals are left alone until
// the next page load.
func ApplyCreated(prev Mirror, task client.Task) Mirror {
	next := prev
	next.Items = append(slices.Clone(prev.Items), task)
	return next
}

// ApplyUpdated replaces the entry with the same id. An id that is no longer
// mirrored (removed or paged away meanwhile) leaves the mirror unchanged.
func ApplyUpdated(prev Mirror, task client.Task) Mirror {
	i := prev.index(task.ID)
	if i < 0 {
		return prev
	}
	next := prev
	next.Items = slices.Clone(prev.Items)
	next.Items[i] = task
	return next
}

// ApplyRemoved drops the entry with id.
func ApplyRemoved(prev Mirror, id string) Mirror {
	if prev.index(id) < 0 {
		return prev
	}
	next := prev
	next.Items = slices.DeleteFunc(slices.Clone(prev.Items), func(t client.Task) bool { return t.ID == id })
	return next
}

// ApplyUpserted replaces the entry with the same id or appends it.
func ApplyUpserted(prev Mirror, task client.Task) Mirror {
	if prev.index(task.ID) < 0 {
		return ApplyCreated(prev, task)
	}
	return ApplyUpdated(prev, task)
}
