package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type entry struct {
	Level   string         `json:"level"`
	Time    string         `json:"time"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

var debugEnabled = os.Getenv("REPLYFORGE_DEBUG") == "1"

func Log(level, msg string, fields map[string]any) {
	e := entry{Level: level, Time: time.Now().UTC().Format(time.RFC3339Nano), Message: msg, Fields: fields}
	b, _ := json.Marshal(e)
	fmt.Fprintln(os.Stdout, string(b))
}

func Info(msg string, fields map[string]any)  { Log("info", msg, fields) }
func Error(msg string, fields map[string]any) { Log("error", msg, fields) }

// Debug logs only when REPLYFORGE_DEBUG=1. Filter rejections and pattern
// bank rejections go here; they are expected and frequent, not errors.
func Debug(msg string, fields map[string]any) {
	if !debugEnabled {
		return
	}
	Log("debug", msg, fields)
}
