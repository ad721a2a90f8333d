// Package fakeapi is an in-memory implementation of the task REST surface for tests.
// It records every call and can be told to fail the next request of a given method.
package fakeapi

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"taskflow-cli/internal/model"

	"github.com/gin-gonic/gin"
)

type Call struct {
	Method    string
	Path      string
	RequestID string
}

type failure struct {
	status int
	detail string
}

type Server struct {
	token string

	mu       sync.Mutex
	tasks    []model.Task
	nextID   int64
	calls    []Call
	failures map[string][]failure
	gates    map[string]chan struct{}
	now      func() time.Time

	engine *gin.Engine
}

func New(token string) *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		token:    token,
		nextID:   1,
		failures: map[string][]failure{},
		gates:    map[string]chan struct{}{},
		now:      func() time.Time { return time.Now().UTC() },
	}

	r := gin.New()
	r.Use(s.record, s.authenticate, s.injectFailure)
	api := r.Group("/api")
	{
		api.GET("/tasks", s.handleList)
		api.POST("/tasks", s.handleCreate)
		api.PUT("/tasks/:id", s.handleUpdate)
		api.DELETE("/tasks/:id", s.handleDelete)
		api.PATCH("/tasks/:id/complete", s.handleToggle)
	}
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Listen starts an httptest server; callers Close it.
func (s *Server) Listen() *httptest.Server {
	return httptest.NewServer(s.engine)
}

func (s *Server) Seed(tasks ...model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		if t.ID == 0 {
			t.ID = s.nextID
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = s.now()
		}
		if t.UpdatedAt == nil {
			ts := t.CreatedAt
			t.UpdatedAt = &ts
		}
		s.tasks = append(s.tasks, t)
		if t.ID >= s.nextID {
			s.nextID = t.ID + 1
		}
	}
}

func (s *Server) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Task(nil), s.tasks...)
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CountCalls counts recorded calls with the given method whose path has prefix.
func (s *Server) CountCalls(method, prefix string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && strings.HasPrefix(c.Path, prefix) {
			n++
		}
	}
	return n
}

// FailNext makes the next request with method fail with status and detail.
func (s *Server) FailNext(method string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = append(s.failures[method], failure{status: status, detail: detail})
}

// Hold blocks requests with method until the returned release func is called.
func (s *Server) Hold(method string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[method] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, method)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: c.Request.Method, Path: c.Request.URL.Path, RequestID: c.GetHeader("X-Request-ID")})
	gate := s.gates[c.Request.Method]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	c.Next()
}

func (s *Server) authenticate(c *gin.Context) {
	if s.token == "" {
		c.Next()
		return
	}
	if c.GetHeader("Authorization") != "Bearer "+s.token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}
	c.Next()
}

func (s *Server) injectFailure(c *gin.Context) {
	s.mu.Lock()
	queue := s.failures[c.Request.Method]
	var f *failure
	if len(queue) > 0 {
		f = &queue[0]
		s.failures[c.Request.Method] = queue[1:]
	}
	s.mu.Unlock()
	if f != nil {
		c.AbortWithStatusJSON(f.status, gin.H{"detail": f.detail})
		return
	}
	c.Next()
}

func (s *Server) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, s.Tasks())
}

func (s *Server) handleCreate(c *gin.Context) {
	var in model.TaskCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	desc := ""
	if in.Description != nil {
		desc = *in.Description
	}
	if detail := validate(&in.Title, &desc); detail != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": detail})
		return
	}

	s.mu.Lock()
	now := s.now()
	t := model.Task{ID: s.nextID, Title: in.Title, Description: desc, CreatedAt: now, UpdatedAt: &now}
	s.nextID++
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()

	c.JSON(http.StatusCreated, t)
}

func (s *Server) handleUpdate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var up model.TaskUpdate
	if err := c.ShouldBindJSON(&up); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	if detail := validate(up.Title, up.Description); detail != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": detail})
		return
	}
	s.mutate(c, id, func(t *model.Task) { *t = up.Apply(*t) })
}

func (s *Server) handleToggle(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s.mutate(c, id, func(t *model.Task) { t.Completed = !t.Completed })
}

func (s *Server) handleDelete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx >= 0 {
		s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	}
	s.mu.Unlock()
	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Task not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) mutate(c *gin.Context, id int64, fn func(t *model.Task)) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"detail": "Task not found"})
		return
	}
	fn(&s.tasks[idx])
	now := s.now()
	s.tasks[idx].UpdatedAt = &now
	t := s.tasks[idx]
	s.mu.Unlock()
	c.JSON(http.StatusOK, t)
}

func (s *Server) indexLocked(id int64) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid task id"})
		return 0, false
	}
	return id, true
}

func validate(title, description *string) string {
	if title != nil {
		n := utf8.RuneCountInString(*title)
		if n < 1 {
			return "title: String should have at least 1 character"
		}
		if n > model.TitleMaxLength {
			return "title: String should have at most 200 characters"
		}
	}
	if description != nil && utf8.RuneCountInString(*description) > model.DescriptionMaxLength {
		return "description: String should have at most 1000 characters"
	}
	return ""
}
