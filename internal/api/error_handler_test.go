package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", fmt.Errorf("%w: title is required", domain.ErrValidation), http.StatusBadRequest, "title is required"},
		{"bare validation", domain.ErrValidation, http.StatusBadRequest, domain.ErrValidation.Error()},
		{"task not found", domain.ErrTaskNotFound, http.StatusNotFound, "task not found"},
		{"user not found", fmt.Errorf("lookup: %w", domain.ErrUserNotFound), http.StatusNotFound, "user not found"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "access forbidden"},
		{"credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"email taken", domain.ErrEmailExists, http.StatusConflict, "email already exists"},
		{"last admin", domain.ErrLastAdmin, http.StatusConflict, domain.ErrLastAdmin.Error()},
		{"in use", fmt.Errorf("%w (2 tasks)", domain.ErrUserInUse), http.StatusConflict, domain.ErrUserInUse.Error() + " (2 tasks)"},
		{"self delete", domain.ErrSelfDelete, http.StatusBadRequest, domain.ErrSelfDelete.Error()},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload"},
		{"unexpected", errors.New("mongo: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	handler := NewHTTPErrorHandler(zerolog.Nop())
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), rec)

			handler(tc.err, c)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Error != tc.msg {
				t.Errorf("expected %q, got %q", tc.msg, body.Error)
			}
		})
	}
}

func TestHTTPErrorHandler_HeadHasNoBody(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodHead, "/x", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(domain.ErrTaskNotFound, c)

	if rec.Code != http.StatusNotFound || rec.Body.Len() != 0 {
		t.Fatalf("expected bare 404, got %d %q", rec.Code, rec.Body.String())
	}
}
