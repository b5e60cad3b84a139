package domain

// TestFailure represents a failed test attempt as persisted for later viewing
type TestFailure struct {
	TestName    string       `json:"test_name"`
	FilePath    string       `json:"file_path"`
	Line        int          `json:"line"`
	Column      int          `json:"column,omitempty"`
	Status      Status       `json:"status"`
	Retry       int          `json:"retry,omitempty"`
	Message     string       `json:"message"`
	StackTrace  []string     `json:"stack_trace"`
	Diff        string       `json:"diff,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Resolved    bool         `json:"resolved,omitempty"` // Track if test case is marked as resolved
}
