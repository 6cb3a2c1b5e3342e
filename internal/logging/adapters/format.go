package adapters

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"canales-taurinos/internal/logging/types"
)

func formatJSON(entry *types.LogEntry) (string, error) {
	record := make(map[string]interface{}, len(entry.Fields)+3)
	for k, v := range entry.Fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		record[k] = v
	}
	record["level"] = entry.Level.String()
	record["message"] = entry.Message
	record["time"] = entry.Timestamp.Format(time.RFC3339)

	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func formatText(entry *types.LogEntry, level string) string {
	var b strings.Builder
	b.WriteString(entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
	fmt.Fprintf(&b, " [%s] %s", level, entry.Message)

	for _, k := range entry.FieldKeys() {
		fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
	}
	return b.String()
}
