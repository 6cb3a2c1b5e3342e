package background

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"canales-taurinos/internal/logging"
)

// RunCompletionLogger reports finished scheduled runs both to the
// application logger and as one JSON line on stdout, which log collectors
// pick up without parsing the application format.
type RunCompletionLogger struct {
	logger logging.Logger
	out    io.Writer
}

func NewRunCompletionLogger(logger logging.Logger) *RunCompletionLogger {
	return &RunCompletionLogger{logger: logger, out: os.Stdout}
}

// RunCompletionLog is the stdout line of a finished run
type RunCompletionLog struct {
	RunID          string    `json:"runId"`
	Source         string    `json:"source"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	Outcome        string    `json:"outcome,omitempty"`
	Records        int       `json:"records"`
	Timestamp      time.Time `json:"timestamp"`
	Operation      string    `json:"operation"`
	ProcessingTime string    `json:"processing_time"`
}

func (l *RunCompletionLogger) LogRunStart(runID, source string) {
	l.logger.Debug("Scheduled run started", map[string]interface{}{
		"run_id": runID,
		"source": source,
	})
}

// LogRunCompletion writes the stdout line, then the application log entry
func (l *RunCompletionLogger) LogRunCompletion(r RunRecord) error {
	entry := RunCompletionLog{
		RunID:          r.RunID,
		Source:         r.Source,
		Status:         string(r.Status),
		Reason:         r.Reason,
		Outcome:        r.Outcome,
		Records:        r.Records,
		Timestamp:      r.CompletedAt,
		Operation:      "scheduled_refresh",
		ProcessingTime: r.ProcessingTime.String(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal run completion log: %w", err)
	}
	if _, err := l.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write run completion log: %w", err)
	}

	fields := map[string]interface{}{
		"run_id":          r.RunID,
		"source":          r.Source,
		"status":          r.Status,
		"records":         r.Records,
		"processing_time": r.ProcessingTime,
	}
	switch r.Status {
	case RunStatusFailure:
		fields["outcome"] = r.Outcome
		fields["reason"] = r.Reason
		l.logger.Warn("Scheduled run failed", fields)
	case RunStatusSkipped:
		fields["reason"] = r.Reason
		l.logger.Info("Scheduled run skipped", fields)
	default:
		l.logger.Info("Scheduled run completed", fields)
	}
	return nil
}
