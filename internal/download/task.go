package download

import (
	"segfetch/internal/download/types"
	"segfetch/internal/logger"
)

// taskTracker records lifecycle transitions of one task.
type taskTracker struct {
	fileID string
	state  types.TaskState
}

func newTaskTracker(fileID string) *taskTracker {
	return &taskTracker{fileID: fileID, state: types.StateCreated}
}

func (t *taskTracker) to(next types.TaskState) {
	if !t.state.CanTransition(next) {
		logger.Warn("ignoring illegal task transition", logger.Fields{
			"file_id": t.fileID,
			"from":    t.state.String(),
			"to":      next.String(),
		})
		return
	}
	logger.Debug("task state", logger.Fields{"file_id": t.fileID, "from": t.state.String(), "to": next.String()})
	t.state = next
}

func (t *taskTracker) current() types.TaskState { return t.state }
