package ticktick

// Task statuses as the Open API encodes them.
const (
	StatusNormal    = 0
	StatusCompleted = 2
)

// Task priorities as the Open API encodes them.
const (
	PriorityNone   = 0
	PriorityLow    = 1
	PriorityMedium = 3
	PriorityHigh   = 5
)

// Task is a TickTick task as exposed by the Open API.
type Task struct {
	ID            string          `json:"id,omitempty"`
	ProjectID     string          `json:"projectId,omitempty"`
	Title         string          `json:"title"`
	IsAllDay      *bool           `json:"isAllDay,omitempty"`
	CompletedTime string          `json:"completedTime,omitempty"`
	Content       string          `json:"content,omitempty"`
	Desc          string          `json:"desc,omitempty"`
	DueDate       string          `json:"dueDate,omitempty"`
	Items         []ChecklistItem `json:"items,omitempty"`
	Priority      int             `json:"priority,omitempty"`
	Reminders     []string        `json:"reminders,omitempty"`
	RepeatFlag    string          `json:"repeatFlag,omitempty"`
	SortOrder     int64           `json:"sortOrder,omitempty"`
	StartDate     string          `json:"startDate,omitempty"`
	Status        int             `json:"status,omitempty"`
	TimeZone      string          `json:"timeZone,omitempty"`
	Kind          string          `json:"kind,omitempty"`
}

// ChecklistItem is a subtask line within a checklist task.
type ChecklistItem struct {
	ID            string `json:"id,omitempty"`
	Title         string `json:"title,omitempty"`
	Status        int    `json:"status,omitempty"`
	CompletedTime string `json:"completedTime,omitempty"`
	IsAllDay      *bool  `json:"isAllDay,omitempty"`
	SortOrder     int64  `json:"sortOrder,omitempty"`
	StartDate     string `json:"startDate,omitempty"`
	TimeZone      string `json:"timeZone,omitempty"`
}

// Project is a TickTick project (list).
type Project struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	SortOrder int64  `json:"sortOrder,omitempty"`
	Closed    *bool  `json:"closed,omitempty"`
	GroupID   string `json:"groupId,omitempty"`
	ViewMode  string `json:"viewMode,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

// Column is a kanban column within a project.
type Column struct {
	ID        string `json:"id,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	Name      string `json:"name,omitempty"`
	SortOrder int64  `json:"sortOrder,omitempty"`
}

// ProjectData is a project together with its tasks and columns.
type ProjectData struct {
	Project *Project `json:"project,omitempty"`
	Tasks   []Task   `json:"tasks,omitempty"`
	Columns []Column `json:"columns,omitempty"`
}
