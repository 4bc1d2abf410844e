package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

func TestClient_LoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ann@example.com", body["email"])
			_ = json.NewEncoder(w).Encode(map[string]any{
				"token": "jwt-1",
				"user":  map[string]string{"_id": "u1", "email": "ann@example.com", "role": "user"},
			})
		case "/tasks/my-tasks":
			assert.Equal(t, "Bearer jwt-1", r.Header.Get("Authorization"))
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			assert.Empty(t, r.URL.Query().Get("limit"))
			_ = json.NewEncoder(w).Encode(map[string]any{"items": []any{}, "currentPage": 2, "totalPages": 2, "totalItems": 11})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	token, user, err := c.Login(context.Background(), "ann@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", token)
	assert.Equal(t, "u1", user.ID)

	page, err := c.ListMyTasks(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(11), page.TotalItems)
	assert.Equal(t, 2, page.CurrentPage)
}

func TestClient_CreateTaskReportsReplay(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2030-05-06", body["dueDate"])
		assert.NotContains(t, body, "priority")

		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.WriteHeader(http.StatusCreated)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"_id": "t1", "title": body["title"]})
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("tok"))
	in := NewTask{Title: "Ship", DueDate: time.Date(2030, 5, 6, 0, 0, 0, 0, time.UTC), AssignedTo: "u1", IdempotencyKey: "key-1"}

	task, replayed, err := c.CreateTask(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "t1", task.ID)

	_, replayed, err = c.CreateTask(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, replayed)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"cannot delete the last admin"}`))
	}))
	defer srv.Close()

	err := New(srv.URL).DeleteUser(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusConflict))

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "cannot delete the last admin", ae.Message)
}

func TestClient_APIErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetTask(context.Background(), "t1")
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), ae.Message)
}

func TestClient_UpdateStatusPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/tasks/t1/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"_id": "t1", "status": "completed"})
	}))
	defer srv.Close()

	task, err := New(srv.URL).UpdateTaskStatus(context.Background(), "t1", domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, task.Status)
}
