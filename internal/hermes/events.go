package hermes

// QueueGroup is shared by every petpal instance.
const QueueGroup = "petpal"

const (
	SubjectSplitRequested = "petpal.tasks.split.requested"
	SubjectSplitCompleted = "petpal.tasks.split.completed"
	SubjectRegistered     = "petpal.agent.registered"
)

// SplitRequest asks a worker to split Task into sub-tasks. With Save set and
// a store configured, the result is also appended to the owner's to-do list.
type SplitRequest struct {
	RequestID string `json:"request_id"`
	OwnerID   string `json:"owner_id,omitempty"`
	Task      string `json:"task"`
	Save      bool   `json:"save,omitempty"`
}

// SplitResult answers a SplitRequest. Error is set instead of Tasks on failure.
type SplitResult struct {
	RequestID string   `json:"request_id"`
	OwnerID   string   `json:"owner_id,omitempty"`
	Task      string   `json:"task"`
	Tasks     []string `json:"tasks"`
	TodoIDs   []string `json:"todo_ids,omitempty"`
	Error     string   `json:"error,omitempty"`
}
