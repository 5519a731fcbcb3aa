package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"minuteman/pkg/faults"
	"minuteman/pkg/logger"
	"minuteman/pkg/models"
)

func TestListProjectsCached(t *testing.T) {
	logger.InitWithLevel("error")
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		json.NewEncoder(w).Encode(map[string]any{
			"projects": []models.Project{{ID: "P1", Name: "Apollo"}},
		})
	}))
	defer srv.Close()

	now := time.Unix(1_700_000_000, 0)
	c := New(srv.URL, "tok", 0, time.Minute)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ps, err := c.ListProjects(ctx)
		if err != nil {
			t.Fatalf("ListProjects: %v", err)
		}
		if len(ps) != 1 || ps[0].ID != "P1" {
			t.Fatalf("unexpected projects %+v", ps)
		}
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("cache not used: %d fetches", hits)
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.ListProjects(ctx); err != nil {
		t.Fatalf("ListProjects after expiry: %v", err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expired cache not refetched: %d fetches", hits)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	logger.InitWithLevel("error")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 0, 0)
	if _, err := c.GetProject(context.Background(), "nope"); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateTask(t *testing.T) {
	logger.InitWithLevel("error")
	var got models.Task
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tasks" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 0, 0)
	task := models.Task{ID: "TASK-2608-001", ProjectID: "P1", Title: "Minutes: notes"}
	if err := c.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if got.ID != task.ID || got.ProjectID != "P1" {
		t.Fatalf("task not transmitted: %+v", got)
	}
}

func TestCreateTaskServerErrorTransient(t *testing.T) {
	logger.InitWithLevel("error")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 0, 0)
	if err := c.CreateTask(context.Background(), models.Task{ID: "T"}); !faults.IsTransient(err) {
		t.Fatalf("5xx not transient: %v", err)
	}
}
