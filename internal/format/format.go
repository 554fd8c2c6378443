// Package format renders hub API payloads as compact, model-readable text.
//
// Known endpoint families (task lists, message lists, drop lists) get a
// line-oriented summary. Anything else is rendered as JSON: indented when
// small, compact when large. Format never modifies its input.
package format

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// PrettyThreshold is the compact-size limit below which JSON is indented.
const PrettyThreshold = 2000

// opsPaths always render as indented JSON regardless of size.
var opsPaths = map[string]bool{
	"/api/health":  true,
	"/api/status":  true,
	"/api/stats":   true,
	"/api/metrics": true,
}

// Format renders body (a JSON document returned by path) as text. Invalid
// JSON is returned unchanged.
func Format(path string, body []byte) string {
	if !gjson.ValidBytes(body) {
		return string(body)
	}
	root := gjson.ParseBytes(body)
	route := routeOf(path)

	if strings.Contains(route, "/tasks") {
		if tasks, ok := decodeTasks(root); ok {
			return renderTasks(tasks)
		}
	}
	if strings.Contains(route, "/messages") {
		if msgs, ok := decodeMessages(root); ok {
			return renderMessages(msgs)
		}
	}
	if strings.Contains(route, "drops") {
		if drops, ok := decodeDrops(root); ok {
			return renderDrops(drops)
		}
	}
	if opsPaths[strings.TrimSuffix(route, "/")] {
		return prettyJSON(body)
	}

	compact := pretty.Ugly(body)
	if utf8.RuneCount(compact) < PrettyThreshold {
		return prettyJSON(body)
	}
	return string(compact)
}

// routeOf strips any query string from path.
func routeOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

func prettyJSON(body []byte) string {
	return strings.TrimRight(string(pretty.Pretty(body)), "\n")
}

// Variants

type task struct {
	ID          string
	Title       string
	Status      string
	Priority    string
	Assignee    string
	Repo        string
	CreatedBy   string
	Description string
	Result      string
	CreatedAt   string
}

type message struct {
	Priority  string
	From      string
	Timestamp string
	Body      string
}

type dropItem struct {
	Type      string
	From      string
	Timestamp string
	Content   string
}

// listOf returns root.key when it is an array of objects.
func listOf(root gjson.Result, key string) ([]gjson.Result, bool) {
	if !root.IsObject() {
		return nil, false
	}
	list := root.Get(key)
	if !list.IsArray() {
		return nil, false
	}
	items := list.Array()
	for _, it := range items {
		if !it.IsObject() {
			return nil, false
		}
	}
	return items, true
}

// field returns the first non-empty string among keys.
func field(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.Type != gjson.Null {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

func decodeTasks(root gjson.Result) ([]task, bool) {
	items, ok := listOf(root, "tasks")
	if !ok {
		return nil, false
	}
	tasks := make([]task, len(items))
	for i, it := range items {
		tasks[i] = task{
			ID:          field(it, "id"),
			Title:       field(it, "title", "name"),
			Status:      field(it, "status"),
			Priority:    field(it, "priority"),
			Assignee:    field(it, "assignee", "assigned_to"),
			Repo:        field(it, "repo", "repository"),
			CreatedBy:   field(it, "created_by", "creator"),
			Description: field(it, "description"),
			Result:      field(it, "result"),
			CreatedAt:   field(it, "created_at", "timestamp"),
		}
	}
	return tasks, true
}

func decodeMessages(root gjson.Result) ([]message, bool) {
	items, ok := listOf(root, "messages")
	if !ok {
		return nil, false
	}
	msgs := make([]message, len(items))
	for i, it := range items {
		msgs[i] = message{
			Priority:  field(it, "priority"),
			From:      field(it, "from", "from_agent", "sender"),
			Timestamp: field(it, "timestamp", "created_at"),
			Body:      field(it, "body", "content", "text"),
		}
	}
	return msgs, true
}

func decodeDrops(root gjson.Result) ([]dropItem, bool) {
	items, ok := listOf(root, "drops")
	if !ok {
		return nil, false
	}
	drops := make([]dropItem, len(items))
	for i, it := range items {
		drops[i] = dropItem{
			Type:      field(it, "type", "drop_type"),
			From:      field(it, "from", "from_agent", "source"),
			Timestamp: field(it, "timestamp", "created_at"),
			Content:   field(it, "content", "title"),
		}
	}
	return drops, true
}

// Rendering

func renderTasks(tasks []task) string {
	if len(tasks) == 0 {
		return "No tasks."
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(tasks)) + " task(s):\n")
	for i, t := range tasks {
		b.WriteString("\n" + strconv.Itoa(i+1) + ". ")
		if t.Priority != "" {
			b.WriteString("[" + t.Priority + "] ")
		}
		if t.Status != "" {
			b.WriteString("[" + t.Status + "] ")
		}
		b.WriteString(orDefault(t.Title, "(untitled)") + "\n")

		if who := joinNonEmpty(" | ",
			labeled("assignee", t.Assignee),
			labeled("repo", t.Repo),
			labeled("by", t.CreatedBy)); who != "" {
			b.WriteString("   " + who + "\n")
		}
		if t.Description != "" {
			b.WriteString("   " + clip(flatten(t.Description), 200) + "\n")
		}
		if t.Result != "" {
			b.WriteString("   result: " + clip(flatten(t.Result), 200) + "\n")
		}
		if meta := joinNonEmpty(" | ", labeled("id", t.ID), labeled("created", t.CreatedAt)); meta != "" {
			b.WriteString("   " + meta + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderMessages(msgs []message) string {
	if len(msgs) == 0 {
		return "No messages."
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(msgs)) + " message(s):\n")
	for _, m := range msgs {
		b.WriteString("\n")
		if m.Priority != "" {
			b.WriteString("[" + m.Priority + "] ")
		}
		b.WriteString(orDefault(m.From, "unknown"))
		if m.Timestamp != "" {
			b.WriteString(" @ " + m.Timestamp)
		}
		b.WriteString("\n")
		if m.Body != "" {
			b.WriteString("  " + clip(m.Body, 300) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDrops(drops []dropItem) string {
	if len(drops) == 0 {
		return "No drops."
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(drops)) + " drop(s):\n")
	for _, d := range drops {
		b.WriteString("\n[" + orDefault(d.Type, "?") + "] " + orDefault(d.From, "unknown"))
		if d.Timestamp != "" {
			b.WriteString(" @ " + d.Timestamp)
		}
		b.WriteString("\n")
		if d.Content != "" {
			b.WriteString("  " + clip(d.Content, 300) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func labeled(label, v string) string {
	if v == "" {
		return ""
	}
	return label + ": " + v
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
