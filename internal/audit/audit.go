package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Entry represents an audit log entry.
type Entry struct {
	CompanyID string
	Actor     string
	Action    string
	Entity    string
	EntityID  string
	Detail    json.RawMessage
	CreatedAt time.Time
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}
