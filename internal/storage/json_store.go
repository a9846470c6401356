package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	schemaVersion = "1.0"
	lockTimeout   = 5 * time.Second
)

// JSONStore implements Store using a single JSON file. The file is locked
// for as long as the store is open.
type JSONStore struct {
	path string
	lock *fileLock
	data *storeData
	mu   sync.RWMutex
}

// storeData is the top-level JSON structure.
type storeData struct {
	Version   string               `json:"version"`
	UpdatedAt time.Time            `json:"updated_at"`
	Playlists map[string]*Playlist `json:"playlists"`
	Videos    map[string]*Video    `json:"videos"`
	Routines  map[string]*Routine  `json:"routines"`
	Tasks     map[string]*Task     `json:"tasks"`
	Indexes   *indexes             `json:"indexes"`
}

// indexes maintains lookup tables for efficient queries.
type indexes struct {
	VideosByPlaylist map[string][]string `json:"videos_by_playlist"` // playlist_id -> []video_id
	TasksByRoutine   map[string][]string `json:"tasks_by_routine"`   // routine_id -> []task_id
	TasksByDate      map[string][]string `json:"tasks_by_date"`      // YYYY-MM-DD -> []task_id
}

// NewJSONStore opens the store at path, creating an empty one if the file
// does not exist.
func NewJSONStore(path string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &StorageError{Op: "open", Entity: "store", Err: fmt.Errorf("create store dir: %w", err)}
	}
	s := &JSONStore{
		path: path,
		lock: newFileLock(path),
	}

	if err := s.lock.lock(lockTimeout); err != nil {
		return nil, err
	}
	if err := s.load(); err != nil {
		s.lock.unlock()
		return nil, err
	}
	return s, nil
}

// load reads the JSON file into memory. Creates empty data if file doesn't exist.
func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = newStoreData()
			// Save immediately to catch permission errors early
			return s.write(s.data)
		}
		return &StorageError{Op: "read", Entity: "store", Err: err}
	}

	s.data = &storeData{}
	if err := json.Unmarshal(data, s.data); err != nil {
		return &StorageError{Op: "read", Entity: "store", Err: ErrStorageCorrupt}
	}
	s.data.ensureMaps()
	return nil
}

// update applies fn to a copy of the data and keeps the copy only once it
// is on disk. The caller holds s.mu.
func (s *JSONStore) update(fn func(d *storeData) error) error {
	next := s.data.clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// write persists d to disk atomically.
func (s *JSONStore) write(d *storeData) error {
	d.UpdatedAt = time.Now()

	w, err := newAtomicWriter(s.path)
	if err != nil {
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		w.abort()
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}
	if err := w.commit(); err != nil {
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}
	return nil
}

// Close releases the file lock.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.unlock()
}

func newStoreData() *storeData {
	d := &storeData{Version: schemaVersion, UpdatedAt: time.Now()}
	d.ensureMaps()
	return d
}

// clone deep-copies d so a failed write can be dropped.
func (d *storeData) clone() *storeData {
	cp := &storeData{
		Version:   d.Version,
		UpdatedAt: d.UpdatedAt,
		Playlists: make(map[string]*Playlist, len(d.Playlists)),
		Videos:    make(map[string]*Video, len(d.Videos)),
		Routines:  make(map[string]*Routine, len(d.Routines)),
		Tasks:     make(map[string]*Task, len(d.Tasks)),
		Indexes: &indexes{
			VideosByPlaylist: cloneIndex(d.Indexes.VideosByPlaylist),
			TasksByRoutine:   cloneIndex(d.Indexes.TasksByRoutine),
			TasksByDate:      cloneIndex(d.Indexes.TasksByDate),
		},
	}
	for id, p := range d.Playlists {
		c := *p
		cp.Playlists[id] = &c
	}
	for id, v := range d.Videos {
		c := *v
		cp.Videos[id] = &c
	}
	for id, r := range d.Routines {
		cp.Routines[id] = cloneRoutine(r)
	}
	for id, t := range d.Tasks {
		cp.Tasks[id] = cloneTask(t)
	}
	return cp
}

func cloneIndex(idx map[string][]string) map[string][]string {
	cp := make(map[string][]string, len(idx))
	for k, ids := range idx {
		cp[k] = append([]string(nil), ids...)
	}
	return cp
}

func (d *storeData) ensureMaps() {
	if d.Playlists == nil {
		d.Playlists = make(map[string]*Playlist)
	}
	if d.Videos == nil {
		d.Videos = make(map[string]*Video)
	}
	if d.Routines == nil {
		d.Routines = make(map[string]*Routine)
	}
	if d.Tasks == nil {
		d.Tasks = make(map[string]*Task)
	}
	if d.Indexes == nil {
		d.Indexes = &indexes{}
	}
	if d.Indexes.VideosByPlaylist == nil {
		d.Indexes.VideosByPlaylist = make(map[string][]string)
	}
	if d.Indexes.TasksByRoutine == nil {
		d.Indexes.TasksByRoutine = make(map[string][]string)
	}
	if d.Indexes.TasksByDate == nil {
		d.Indexes.TasksByDate = make(map[string][]string)
	}
}

func (s *JSONStore) CreateRoutine(ctx context.Context, plan *RoutinePlan) error {
	if err := validatePlan(plan); err != nil {
		return err
	}
	assignIDs(plan)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.Routines[plan.Routine.ID]; exists {
		return &StorageError{Op: "create", Entity: "routine", ID: plan.Routine.ID, Err: ErrAlreadyExists}
	}
	if _, exists := s.data.Playlists[plan.Playlist.ID]; exists {
		return &StorageError{Op: "create", Entity: "playlist", ID: plan.Playlist.ID, Err: ErrAlreadyExists}
	}

	return s.update(func(d *storeData) error {
		p := *plan.Playlist
		d.Playlists[p.ID] = &p
		for _, v := range plan.Videos {
			cp := *v
			d.Videos[cp.ID] = &cp
			d.Indexes.VideosByPlaylist[p.ID] = append(d.Indexes.VideosByPlaylist[p.ID], cp.ID)
		}
		r := cloneRoutine(plan.Routine)
		d.Routines[r.ID] = r
		for _, t := range plan.Tasks {
			cp := cloneTask(t)
			d.Tasks[cp.ID] = cp
			d.Indexes.TasksByRoutine[r.ID] = append(d.Indexes.TasksByRoutine[r.ID], cp.ID)
			d.Indexes.TasksByDate[cp.ScheduledDate] = append(d.Indexes.TasksByDate[cp.ScheduledDate], cp.ID)
		}
		return nil
	})
}

func (s *JSONStore) GetRoutine(ctx context.Context, id string) (*RoutinePlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data.Routines[id]
	if !exists {
		return nil, &StorageError{Op: "read", Entity: "routine", ID: id, Err: ErrNotFound}
	}
	p, exists := s.data.Playlists[r.PlaylistID]
	if !exists {
		return nil, &StorageError{Op: "read", Entity: "playlist", ID: r.PlaylistID, Err: ErrStorageCorrupt}
	}

	plan := &RoutinePlan{Routine: cloneRoutine(r)}
	cp := *p
	plan.Playlist = &cp

	for _, vid := range s.data.Indexes.VideosByPlaylist[p.ID] {
		if v, ok := s.data.Videos[vid]; ok {
			cv := *v
			plan.Videos = append(plan.Videos, &cv)
		}
	}
	sort.Slice(plan.Videos, func(i, j int) bool { return plan.Videos[i].Position < plan.Videos[j].Position })

	for _, tid := range s.data.Indexes.TasksByRoutine[id] {
		if t, ok := s.data.Tasks[tid]; ok {
			plan.Tasks = append(plan.Tasks, cloneTask(t))
		}
	}
	sortTasks(plan.Tasks)
	return plan, nil
}

func (s *JSONStore) ListRoutines(ctx context.Context) ([]*Routine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	routines := make([]*Routine, 0, len(s.data.Routines))
	for _, r := range s.data.Routines {
		routines = append(routines, cloneRoutine(r))
	}
	sort.Slice(routines, func(i, j int) bool {
		if !routines[i].CreatedAt.Equal(routines[j].CreatedAt) {
			return routines[i].CreatedAt.After(routines[j].CreatedAt)
		}
		return routines[i].ID < routines[j].ID
	})
	return routines, nil
}

func (s *JSONStore) DeleteRoutine(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data.Routines[id]
	if !exists {
		return &StorageError{Op: "delete", Entity: "routine", ID: id, Err: ErrNotFound}
	}

	return s.update(func(d *storeData) error {
		for _, tid := range d.Indexes.TasksByRoutine[id] {
			if t, ok := d.Tasks[tid]; ok {
				d.Indexes.TasksByDate[t.ScheduledDate] = removeID(d.Indexes.TasksByDate[t.ScheduledDate], tid)
				if len(d.Indexes.TasksByDate[t.ScheduledDate]) == 0 {
					delete(d.Indexes.TasksByDate, t.ScheduledDate)
				}
			}
			delete(d.Tasks, tid)
		}
		delete(d.Indexes.TasksByRoutine, id)

		for _, vid := range d.Indexes.VideosByPlaylist[r.PlaylistID] {
			delete(d.Videos, vid)
		}
		delete(d.Indexes.VideosByPlaylist, r.PlaylistID)
		delete(d.Playlists, r.PlaylistID)
		delete(d.Routines, id)
		return nil
	})
}

func (s *JSONStore) SetTaskCompleted(ctx context.Context, taskID string, completed bool, at time.Time) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.Tasks[taskID]; !exists {
		return nil, &StorageError{Op: "update", Entity: "task", ID: taskID, Err: ErrNotFound}
	}

	var updated *Task
	err := s.update(func(d *storeData) error {
		t := d.Tasks[taskID]
		t.IsCompleted = completed
		t.CompletedAt = nil
		if completed {
			t.CompletedAt = &at
		}
		updated = cloneTask(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *JSONStore) ListTasksForDate(ctx context.Context, date string) ([]*Task, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, &StorageError{Op: "read", Entity: "task", ID: date, Err: ErrInvalidInput}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []*Task
	for _, tid := range s.data.Indexes.TasksByDate[date] {
		t, ok := s.data.Tasks[tid]
		if !ok {
			continue
		}
		if r, ok := s.data.Routines[t.RoutineID]; !ok || !r.IsActive {
			continue
		}
		tasks = append(tasks, cloneTask(t))
	}
	sortTasks(tasks)
	return tasks, nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// validatePlan rejects plans whose references do not line up.
func validatePlan(plan *RoutinePlan) error {
	if plan == nil || plan.Routine == nil || plan.Playlist == nil {
		return &StorageError{Op: "create", Entity: "routine", Err: ErrInvalidInput}
	}
	videoIDs := make(map[string]bool, len(plan.Videos))
	for _, v := range plan.Videos {
		if v.ID != "" {
			videoIDs[v.ID] = true
		}
	}
	for _, t := range plan.Tasks {
		if t.VideoID == "" || !videoIDs[t.VideoID] {
			return &StorageError{Op: "create", Entity: "task", ID: t.ID, Err: ErrInvalidInput}
		}
		if _, err := time.Parse(DateLayout, t.ScheduledDate); err != nil {
			return &StorageError{Op: "create", Entity: "task", ID: t.ID, Err: ErrInvalidInput}
		}
	}
	return nil
}

// assignIDs fills empty IDs and the foreign keys that follow from them.
func assignIDs(plan *RoutinePlan) {
	if plan.Playlist.ID == "" {
		plan.Playlist.ID = uuid.NewString()
	}
	if plan.Routine.ID == "" {
		plan.Routine.ID = uuid.NewString()
	}
	plan.Routine.PlaylistID = plan.Playlist.ID
	for _, v := range plan.Videos {
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		v.PlaylistID = plan.Playlist.ID
	}
	for _, t := range plan.Tasks {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.RoutineID = plan.Routine.ID
	}
}

func cloneRoutine(r *Routine) *Routine {
	cp := *r
	cp.Tips = append([]string(nil), r.Tips...)
	return &cp
}

func cloneTask(t *Task) *Task {
	cp := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

func sortTasks(tasks []*Task) {
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.ScheduledDate != b.ScheduledDate {
			return a.ScheduledDate < b.ScheduledDate
		}
		if a.RoutineID != b.RoutineID {
			return a.RoutineID < b.RoutineID
		}
		return a.Position < b.Position
	})
}
