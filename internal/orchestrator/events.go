// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"fmt"
	"time"
)

// state names events.log records, matching the state machine spec.md
// §4.9 enumerates.
type state string

const (
	stateInit     state = "INIT"
	stateDraft    state = "DRAFT"
	stateAnalyze  state = "ANALYZE"
	stateExecute  state = "EXECUTE"
	stateCritique state = "CRITIQUE"
	stateRoute    state = "ROUTE"
	stateRefine   state = "REFINE"
	stateFinish   state = "FINISH"
)

const eventsLogName = "events.log"

// eventLogger appends one line per state transition to events.log
// (spec.md §6): "t=<unix_ms> run=<id> attempt=<k> state=<name>
// status=<ok|err> cov=<number> mut=<number>".
type eventLogger struct {
	writer *ArtifactWriter
	runID  string
}

func newEventLogger(writer *ArtifactWriter, runID string) *eventLogger {
	return &eventLogger{writer: writer, runID: runID}
}

func (l *eventLogger) record(attempt int, s state, ok bool, coverage, mutation float64) {
	status := "ok"
	if !ok {
		status = "err"
	}
	line := fmt.Sprintf("t=%d run=%s attempt=%d state=%s status=%s cov=%.2f mut=%.2f",
		time.Now().UnixMilli(), l.runID, attempt, s, status, coverage, mutation)
	_ = l.writer.AppendLine(eventsLogName, line)
}

// finish appends the run's terminal line: "finish reason=<reason> iter=<k>".
func (l *eventLogger) finish(reason string, lastAttempt int) {
	_ = l.writer.AppendLine(eventsLogName, fmt.Sprintf("finish reason=%s iter=%d", reason, lastAttempt))
}
