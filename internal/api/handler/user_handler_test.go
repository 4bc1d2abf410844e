package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

type stubUserService struct {
	created   ports.CreateUserInput
	profile   ports.UpdateProfileInput
	actor     ports.Actor
	page      int
	limit     int
	deletedID string
	err       error
}

func (s *stubUserService) ListUsers(_ context.Context, page, limit int) (*ports.Page[domain.User], error) {
	s.page, s.limit = page, limit
	return &ports.Page[domain.User]{Items: []domain.User{{ID: "u1"}}, CurrentPage: 1, TotalPages: 1, TotalItems: 1}, s.err
}

func (s *stubUserService) GetUser(_ context.Context, id string) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.User{ID: id}, nil
}

func (s *stubUserService) CreateUser(_ context.Context, in ports.CreateUserInput) (*domain.User, error) {
	s.created = in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.User{ID: "u9", Name: in.Name, Email: in.Email, Role: domain.RoleUser, PasswordHash: "hash"}, nil
}

func (s *stubUserService) UpdateProfile(_ context.Context, actor ports.Actor, in ports.UpdateProfileInput) (*domain.User, error) {
	s.actor, s.profile = actor, in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.User{ID: actor.ID, Name: in.Name, Email: in.Email}, nil
}

func (s *stubUserService) DeleteUser(_ context.Context, actor ports.Actor, id string) error {
	s.actor, s.deletedID = actor, id
	return s.err
}

func TestUserHandler_CreateHidesPassword(t *testing.T) {
	svc := &stubUserService{}
	h := NewUserHandler(svc)
	c, rec := newContext(http.MethodPost, "/users", `{"name":"Bob","email":"bob@example.com","password":"secret1"}`)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["message"] != "User created successfully" {
		t.Errorf("unexpected message: %v", body["message"])
	}
	user := body["user"].(map[string]any)
	if _, leaked := user["password"]; leaked {
		t.Error("password hash must not be serialized")
	}
	if _, leaked := user["PasswordHash"]; leaked {
		t.Error("password hash must not be serialized")
	}
}

func TestUserHandler_CreateValidation(t *testing.T) {
	h := NewUserHandler(&stubUserService{})
	c, _ := newContext(http.MethodPost, "/users", `{"name":"Bob","email":"nope","password":"123","role":"root"}`)

	err := h.Create(c)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUserHandler_ListPassesPaging(t *testing.T) {
	svc := &stubUserService{}
	h := NewUserHandler(svc)
	c, rec := newContext(http.MethodGet, "/users?limit=20", "")

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.page != 0 || svc.limit != 20 {
		t.Errorf("expected page 0 limit 20 passed through, got %d %d", svc.page, svc.limit)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUserHandler_UpdateProfileUsesCaller(t *testing.T) {
	svc := &stubUserService{}
	h := NewUserHandler(svc)
	c, rec := newContext(http.MethodPut, "/users/profile", `{"name":"New","email":"new@example.com"}`)
	withActor(c, "u1", domain.RoleUser)

	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.actor.ID != "u1" || svc.profile.Password != "" {
		t.Errorf("unexpected call: %+v %+v", svc.actor, svc.profile)
	}
}

func TestUserHandler_DeleteConflicts(t *testing.T) {
	for _, sentinel := range []error{domain.ErrLastAdmin, domain.ErrSelfDelete, domain.ErrUserInUse} {
		svc := &stubUserService{err: sentinel}
		h := NewUserHandler(svc)
		c, _ := newContext(http.MethodDelete, "/users/u2", "")
		c.SetParamNames("id")
		c.SetParamValues("u2")
		withActor(c, "admin1", domain.RoleAdmin)

		if err := h.Delete(c); !errors.Is(err, sentinel) {
			t.Errorf("expected %v, got %v", sentinel, err)
		}
		if svc.deletedID != "u2" || svc.actor.ID != "admin1" {
			t.Errorf("unexpected delete call: %q by %+v", svc.deletedID, svc.actor)
		}
	}
}
