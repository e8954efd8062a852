package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lojf/dancestudio/internal/models"
)

// UndoEntry is the snapshot taken right before an archive batch ran.
type UndoEntry struct {
	ID    string
	At    time.Time
	Label string
	Rows  []models.Student
}

// History is a bounded undo stack. When full, the oldest entry is dropped.
type History struct {
	mu      sync.Mutex
	cap     int
	entries []UndoEntry
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{cap: capacity}
}

func (h *History) Push(label string, rows []models.Student) UndoEntry {
	e := UndoEntry{
		ID:    uuid.NewString(),
		At:    time.Now(),
		Label: label,
		Rows:  append([]models.Student(nil), rows...),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	if over := len(h.entries) - h.cap; over > 0 {
		h.entries = append([]UndoEntry(nil), h.entries[over:]...)
	}
	return e
}

// Pop removes and returns the newest entry.
func (h *History) Pop() (UndoEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return UndoEntry{}, false
	}
	e := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	return e, true
}

func (h *History) Peek() (UndoEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return UndoEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// requeue puts back an entry whose undo failed.
func (h *History) requeue(e UndoEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	if over := len(h.entries) - h.cap; over > 0 {
		h.entries = h.entries[over:]
	}
}
