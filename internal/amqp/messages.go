package amqp

import (
	"encoding/json"
	"time"

	"gymops/internal/core"
)

// ImportCompletedMessage announces a finished import batch. It carries the
// batch stats so the export worker can log them, but workers recompute report
// snapshots from the database rather than trusting the payload.
type ImportCompletedMessage struct {
	SourceFile string           `json:"source_file"`
	Stats      core.ImportStats `json:"stats"`
	Timestamp  time.Time        `json:"timestamp"`
}

func NewImportCompletedMessage(sourceFile string, stats core.ImportStats) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		SourceFile: sourceFile,
		Stats:      stats,
		Timestamp:  time.Now(),
	}
}

func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
