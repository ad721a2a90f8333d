// Package localstore keeps the device-local task list for the signed-out mode. The
// whole list is one JSON record under a fixed key in a small sqlite file, so it
// survives restarts but is never shared or synced.
package localstore

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"taskflow-cli/internal/apperr"
	"taskflow-cli/internal/logging"
	"taskflow-cli/internal/model"

	"github.com/charmbracelet/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
	_ "modernc.org/sqlite"
)

// RecordKey is the kv key holding the serialized record.
const RecordKey = "taskflow_tasks"

const schemaURL = "https://taskflow.local/schemas/local-record.json"

//go:embed record.schema.json
var recordSchema []byte

type record struct {
	Tasks  []model.Task `json:"tasks"`
	NextID int64        `json:"nextId"`
}

type Store struct {
	path   string
	db     *sql.DB
	schema *jsonschema.Schema
	logger *log.Logger
	now    func() time.Time

	mu sync.Mutex
}

type Options struct {
	Logger *log.Logger
	Now    func() time.Time
}

// Open opens (creating if needed) the sqlite file at path.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("localstore: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}

	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{path: path, db: db, schema: schema, logger: opts.Logger, now: opts.Now}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat = true
	if err := c.AddResource(schemaURL, bytes.NewReader(recordSchema)); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) List(ctx context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return rec.Tasks, nil
}

func (s *Store) Create(ctx context.Context, in model.TaskCreate) (model.Task, error) {
	desc := ""
	if in.Description != nil {
		desc = *in.Description
	}
	norm, err := model.NormalizeCreate(in.Title, desc)
	if err != nil {
		return model.Task{}, invalid(err)
	}

	var out model.Task
	err = s.mutate(ctx, func(rec *record) error {
		out = model.Task{ID: rec.NextID, Title: norm.Title, CreatedAt: s.now()}
		if norm.Description != nil {
			out.Description = *norm.Description
		}
		rec.NextID++
		rec.Tasks = append(rec.Tasks, out)
		return nil
	})
	return out, err
}

func (s *Store) Update(ctx context.Context, id int64, up model.TaskUpdate) (model.Task, error) {
	norm, err := model.NormalizeEdit(up.Title, up.Description)
	if err != nil {
		return model.Task{}, invalid(err)
	}
	norm.Completed = up.Completed
	return s.modify(ctx, id, func(t *model.Task) { *t = norm.Apply(*t) })
}

func (s *Store) Toggle(ctx context.Context, id int64) (model.Task, error) {
	return s.modify(ctx, id, func(t *model.Task) { t.Completed = !t.Completed })
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, func(rec *record) error {
		i := indexOf(rec.Tasks, id)
		if i < 0 {
			return notFound(id)
		}
		rec.Tasks = append(rec.Tasks[:i], rec.Tasks[i+1:]...)
		return nil
	})
}

func (s *Store) modify(ctx context.Context, id int64, fn func(t *model.Task)) (model.Task, error) {
	var out model.Task
	err := s.mutate(ctx, func(rec *record) error {
		i := indexOf(rec.Tasks, id)
		if i < 0 {
			return notFound(id)
		}
		fn(&rec.Tasks[i])
		out = rec.Tasks[i]
		return nil
	})
	return out, err
}

func (s *Store) mutate(ctx context.Context, fn func(rec *record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(&rec); err != nil {
		return err
	}
	return s.save(ctx, rec)
}

// load reads the record. Missing data yields an empty list; data that fails to parse
// or validate is discarded with a warning.
func (s *Store) load(ctx context.Context) (record, error) {
	empty := record{Tasks: []model.Task{}, NextID: 1}

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, RecordKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return empty, nil
	}
	if err != nil {
		return record{}, fmt.Errorf("read local tasks: %w", err)
	}

	rec, err := s.decode([]byte(raw))
	if err != nil {
		s.logger.Warn("discarding malformed local tasks", "path", s.path, "err", err)
		return empty, nil
	}
	return rec, nil
}

func (s *Store) decode(raw []byte) (record, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return record{}, err
	}
	if err := s.schema.Validate(doc); err != nil {
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return record{}, err
	}
	if rec.Tasks == nil {
		rec.Tasks = []model.Task{}
	}
	// An absent or stale counter must never hand out an id already in use.
	var maxID int64
	seen := make(map[int64]bool, len(rec.Tasks))
	for i := range rec.Tasks {
		id := rec.Tasks[i].ID
		if seen[id] {
			return record{}, fmt.Errorf("duplicate task id %d", id)
		}
		seen[id] = true
		rec.Tasks[i].UpdatedAt = nil
		if rec.Tasks[i].ID > maxID {
			maxID = rec.Tasks[i].ID
		}
	}
	if rec.NextID <= maxID {
		rec.NextID = maxID + 1
	}
	return rec, nil
}

func (s *Store) save(ctx context.Context, rec record) error {
	for i := range rec.Tasks {
		rec.Tasks[i].UpdatedAt = nil
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO kv(k, v) VALUES(?, ?)`, RecordKey, string(b)); err != nil {
		return fmt.Errorf("write local tasks: %w", err)
	}
	return nil
}

// Raw returns the stored record as written, or "" when nothing is stored.
func (s *Store) Raw(ctx context.Context) (string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, RecordKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return raw, err
}

// PutRaw overwrites the stored record without validation.
func (s *Store) PutRaw(ctx context.Context, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO kv(k, v) VALUES(?, ?)`, RecordKey, raw)
	return err
}

// Reset removes every local task and restarts ids at 1.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE k = ?`, RecordKey)
	return err
}

func indexOf(tasks []model.Task, id int64) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(id int64) error {
	return apperr.NotFoundError(fmt.Sprintf("task %d not found", id))
}

func invalid(err error) error {
	return &apperr.Error{Kind: apperr.InvalidInput, Message: err.Error(), UserMessage: err.Error(), Err: err}
}
