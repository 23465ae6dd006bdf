package streams

// Stream name constants
const (
	StreamMeetingsProcessed = "meetings:processed"
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// MeetingProcessed announces a transcript that finished processing.
type MeetingProcessed struct {
	MeetingID   string `json:"meeting_id"`
	Username    string `json:"username"`
	MemoryID    string `json:"memory_id,omitempty"` // empty in ghost mode
	EventCount  int    `json:"event_count"`
	GhostMode   bool   `json:"ghost_mode"`
	ProcessedAt int64  `json:"processed_at"`
}
