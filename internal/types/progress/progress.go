package progress

// DateLayout is the calendar-date form used everywhere in the engine:
// lastCompletedDate, task deadlines and streak arithmetic all work at
// day granularity, no time component.
const DateLayout = "2006-01-02"

// DefaultCategory is applied when a task is added without one.
const DefaultCategory = "General"

// Task is a single unit of work in a user's ledger. Tasks are never
// deleted; undo flips Completed back to false and the entry stays.
type Task struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Points    int    `json:"points" db:"points"`
	Category  string `json:"category" db:"category"`
	Deadline  string `json:"deadline,omitempty" db:"deadline"`
	Completed bool   `json:"completed" db:"completed"`

	// CompletedOn records the calendar day the task was last marked
	// done. Cleared on undo; used to decide streak rollback when
	// UNDO_REVERTS_STREAK is enabled.
	CompletedOn string `json:"completedOn,omitempty" db:"completed_on"`
}

// UserProgress is the per-user record the store persists. TotalPoints
// always equals the sum of Points over tasks with Completed == true.
type UserProgress struct {
	TotalPoints       int             `json:"totalPoints" db:"total_points"`
	CurrentStreak     int             `json:"currentStreak" db:"current_streak"`
	LastCompletedDate string          `json:"lastCompletedDate,omitempty" db:"last_completed_date"`
	Tasks             map[string]Task `json:"tasks"`
}

// NewUserProgress returns the zero-value record created on a user's
// first interaction.
func NewUserProgress() *UserProgress {
	return &UserProgress{
		Tasks: make(map[string]Task),
	}
}

// Normalize repairs a record loaded from an external medium: a nil task
// map becomes an empty one, missing categories get the default, and
// TotalPoints is recomputed from the completed tasks so a hand-edited
// or partially written file cannot smuggle in an inconsistent total.
func (p *UserProgress) Normalize() {
	if p.Tasks == nil {
		p.Tasks = make(map[string]Task)
	}

	total := 0
	for id, task := range p.Tasks {
		if task.Category == "" {
			task.Category = DefaultCategory
			p.Tasks[id] = task
		}
		if task.Completed {
			total += task.Points
		}
	}
	p.TotalPoints = total

	if p.CurrentStreak < 0 {
		p.CurrentStreak = 0
	}
}

// Clone returns a deep copy. Snapshots handed to read-only consumers
// (leaderboard, deadline sweep) must not alias live store state.
func (p *UserProgress) Clone() *UserProgress {
	c := *p
	c.Tasks = make(map[string]Task, len(p.Tasks))
	for id, task := range p.Tasks {
		c.Tasks[id] = task
	}
	return &c
}

// CompletedCount returns how many tasks in the ledger are done.
func (p *UserProgress) CompletedCount() int {
	n := 0
	for _, task := range p.Tasks {
		if task.Completed {
			n++
		}
	}
	return n
}
