package main

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

const pageSize = 3

type taskStatus string

const (
	statusAny       taskStatus = ""
	statusCompleted taskStatus = "completed"
	statusPending   taskStatus = "pending"
)

type taskFilter struct {
	Status taskStatus
	Search string
}

// taskQuery is a listing request. Page 0 means "no pagination".
type taskQuery struct {
	taskFilter
	Page int
}

type taskPage struct {
	Tasks       []*task
	Total       int
	PerPage     int
	CurrentPage int
	LastPage    int
}

func (p *taskPage) HasPrev() bool { return p.CurrentPage > 1 }
func (p *taskPage) HasNext() bool { return p.CurrentPage < p.LastPage }

// parseTaskQuery reads status, search and page from the query string.
// "completed" wins when several status values are sent. When paginate is
// false a missing page parameter leaves the query unpaginated.
func parseTaskQuery(values url.Values, paginate bool) taskQuery {
	var q taskQuery
	for _, s := range values["status"] {
		if s == string(statusCompleted) {
			q.Status = statusCompleted
			break
		}
		if s == string(statusPending) && q.Status == statusAny {
			q.Status = statusPending
		}
	}
	q.Search = strings.TrimSpace(values.Get("search"))

	raw, ok := values["page"]
	if !ok && !paginate {
		return q
	}
	q.Page = 1
	if ok && len(raw) > 0 {
		if n, err := strconv.Atoi(raw[0]); err == nil && n > 0 {
			q.Page = n
		}
	}
	return q
}

// listTasks runs the shared filter/search/sort/paginate pipeline for u.
func (app *application) listTasks(ctx context.Context, u *user, q taskQuery) (*taskPage, error) {
	limit, offset := 0, 0
	if q.Page > 0 {
		limit = pageSize
		offset = (q.Page - 1) * pageSize
	}
	tasks, total, err := app.storage.findTasks(ctx, u.ID, q.taskFilter, limit, offset)
	if err != nil {
		return nil, err
	}

	page := &taskPage{
		Tasks:       tasks,
		Total:       int(total),
		PerPage:     pageSize,
		CurrentPage: q.Page,
		LastPage:    1,
	}
	if q.Page == 0 {
		page.PerPage = int(total)
		page.CurrentPage = 1
		return page, nil
	}
	if total > 0 {
		page.LastPage = (int(total) + pageSize - 1) / pageSize
	}
	return page, nil
}
