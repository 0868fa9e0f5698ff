package replica

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tasksquire/taskbridge/lib/storage"
)

// --------------------------------------------------------------------------
// Status
// --------------------------------------------------------------------------

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusDeleted   Status = "deleted"
)

// ErrInvalidStatus is returned by ParseStatus for unknown status values.
var ErrInvalidStatus = errors.New("replica: invalid status")

// ParseStatus validates a caller-supplied status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusCompleted, StatusDeleted:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// --------------------------------------------------------------------------
// Tags
// --------------------------------------------------------------------------

// Tag is a validated task tag: a letter followed by letters, digits or
// underscores.
type Tag string

// ErrInvalidTag is returned by ParseTag for malformed tags.
var ErrInvalidTag = errors.New("replica: invalid tag")

// ParseTag validates a caller-supplied tag string.
func ParseTag(s string) (Tag, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTag)
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r == '_', r >= '0' && r <= '9':
			if i == 0 {
				return "", fmt.Errorf("%w: %q must start with a letter", ErrInvalidTag, s)
			}
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidTag, s)
		}
	}
	return Tag(s), nil
}

func tagProperty(tag Tag) string { return "tag_" + string(tag) }

func isTagProperty(key string) bool { return strings.HasPrefix(key, "tag_") }

// --------------------------------------------------------------------------
// Annotations
// --------------------------------------------------------------------------

// Annotation is a timestamped note attached to a task. Entry is truncated
// to whole seconds, matching the annotation property encoding.
type Annotation struct {
	Entry       time.Time
	Description string
}

func annotationProperty(entry time.Time) string {
	return "annotation_" + strconv.FormatInt(entry.Unix(), 10)
}

func isAnnotationProperty(key string) bool { return strings.HasPrefix(key, "annotation_") }

// --------------------------------------------------------------------------
// Task
// --------------------------------------------------------------------------

// Task is a mutable view over one task's property map. Mutators record
// their changes as operations; the view is only consistent until the
// owning replica commits or discards those operations.
type Task struct {
	id    uuid.UUID
	props map[string]string
}

// ID returns the task id.
func (t *Task) ID() uuid.UUID { return t.id }

// Description returns the task description, or "" if unset.
func (t *Task) Description() string { return t.props["description"] }

// Status returns the task status. Tasks without an explicit status are
// pending.
func (t *Task) Status() Status {
	if s, ok := t.props["status"]; ok {
		return Status(s)
	}
	return StatusPending
}

// Value returns a raw property value. The boolean indicates presence.
func (t *Task) Value(key string) (string, bool) {
	v, ok := t.props[key]
	return v, ok
}

// Tags returns the task's tags in sorted order.
func (t *Task) Tags() []Tag {
	tags := []Tag{}
	for key := range t.props {
		if name, ok := strings.CutPrefix(key, "tag_"); ok {
			tags = append(tags, Tag(name))
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Annotations returns the task's annotations ordered by entry time.
func (t *Task) Annotations() []Annotation {
	anns := []Annotation{}
	for key, desc := range t.props {
		ts, ok := strings.CutPrefix(key, "annotation_")
		if !ok {
			continue
		}
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			continue
		}
		anns = append(anns, Annotation{Entry: time.Unix(unix, 0).UTC(), Description: desc})
	}
	sort.Slice(anns, func(i, j int) bool { return anns[i].Entry.Before(anns[j].Entry) })
	return anns
}

// --------------------------------------------------------------------------
// Task Mutators
// --------------------------------------------------------------------------

// setProperty records a property transition and updates the local view so
// later mutations in the same batch see the new value.
func (t *Task) setProperty(key string, value *string, ops *[]storage.Operation) {
	var old *string
	if v, ok := t.props[key]; ok {
		old = &v
	}
	// No-op transitions are not recorded.
	if old == nil && value == nil {
		return
	}
	if old != nil && value != nil && *old == *value {
		return
	}
	*ops = append(*ops, storage.NewUpdate(t.id, key, old, value))
	if value == nil {
		delete(t.props, key)
	} else {
		t.props[key] = *value
	}
}

// SetValue sets or removes (value == nil) a raw property.
func (t *Task) SetValue(key string, value *string, ops *[]storage.Operation) {
	t.setProperty(key, value, ops)
}

// SetDescription sets the task description.
func (t *Task) SetDescription(desc string, ops *[]storage.Operation) {
	t.setProperty("description", &desc, ops)
}

// SetStatus sets the task status.
func (t *Task) SetStatus(status Status, ops *[]storage.Operation) {
	s := string(status)
	t.setProperty("status", &s, ops)
}

// AddTag marks the task with a tag. Adding a present tag is a no-op.
func (t *Task) AddTag(tag Tag, ops *[]storage.Operation) {
	empty := ""
	t.setProperty(tagProperty(tag), &empty, ops)
}

// RemoveTag removes a tag. Removing an absent tag is a no-op.
func (t *Task) RemoveTag(tag Tag, ops *[]storage.Operation) {
	t.setProperty(tagProperty(tag), nil, ops)
}

// AddAnnotation attaches a timestamped note to the task.
func (t *Task) AddAnnotation(ann Annotation, ops *[]storage.Operation) {
	t.setProperty(annotationProperty(ann.Entry), &ann.Description, ops)
}

// RemoveAnnotation removes the annotation with the given entry time.
// Removing an absent annotation is a no-op.
func (t *Task) RemoveAnnotation(entry time.Time, ops *[]storage.Operation) {
	t.setProperty(annotationProperty(entry), nil, ops)
}
