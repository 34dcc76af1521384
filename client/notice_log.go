package client

import (
	"sync"

	"github.com/Dosada05/court-scheduler/models"
)

const DefaultNoticeCapacity = 20

type NoticeEntry struct {
	Room string `json:"room"`
	models.Notice
}

// NoticeLog keeps the most recent notices, oldest first.
type NoticeLog struct {
	mu       sync.Mutex
	capacity int
	entries  []NoticeEntry
}

func NewNoticeLog(capacity int) *NoticeLog {
	if capacity <= 0 {
		capacity = DefaultNoticeCapacity
	}
	return &NoticeLog{capacity: capacity, entries: make([]NoticeEntry, 0, capacity)}
}

func (l *NoticeLog) Add(e NoticeEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, e)
}

func (l *NoticeLog) Entries() []NoticeEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]NoticeEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *NoticeLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
