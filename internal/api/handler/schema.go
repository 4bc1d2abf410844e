package handler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// listResponse is the pagination envelope shared by every listing.
type listResponse[T any] struct {
	Items       []T   `json:"items"`
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
}

func toListResponse[T any](p *ports.Page[T]) listResponse[T] {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{
		Items:       items,
		CurrentPage: p.CurrentPage,
		TotalPages:  p.TotalPages,
		TotalItems:  p.TotalItems,
	}
}

type pageQuery struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

// bindQuery binds query parameters only, so a GET with a stray body cannot
// override them.
func bindQuery(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, dst); err != nil {
		return fmt.Errorf("%w: invalid query parameters", domain.ErrValidation)
	}
	return nil
}

// flexTime accepts either a calendar date ("2006-01-02", as sent by date
// pickers) or a full RFC 3339 timestamp.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("dueDate must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		t.Time = d.UTC()
		return nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("dueDate must be YYYY-MM-DD or RFC 3339")
	}
	t.Time = ts.UTC()
	return nil
}

func (t *flexTime) ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}
