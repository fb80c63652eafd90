package normalize

import (
	"github.com/agentstation/usagesync/pkg/session"
)

// ContainerStrategy locates the collection of session entries inside an
// export document.
type ContainerStrategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// Find returns the container value when the strategy matches.
	Find(doc *session.Object) (any, bool)
}

// keyContainer matches a well-known container key.
type keyContainer struct {
	key      string
	listOnly bool
}

// KeyContainer matches when key is present in the document.
func KeyContainer(key string) ContainerStrategy {
	return &keyContainer{key: key}
}

// ListKeyContainer matches when key is present and holds a list.
func ListKeyContainer(key string) ContainerStrategy {
	return &keyContainer{key: key, listOnly: true}
}

func (c *keyContainer) Name() string {
	return "key:" + c.key
}

func (c *keyContainer) Find(doc *session.Object) (any, bool) {
	v, ok := doc.Get(c.key)
	if !ok {
		return nil, false
	}
	if c.listOnly {
		if _, isList := v.([]any); !isList {
			return nil, false
		}
	}
	return v, true
}

// recordListContainer matches the first value, in key order, that is a
// non-empty list whose first element is an object.
type recordListContainer struct{}

// RecordListContainer scans the document for the first list of objects.
func RecordListContainer() ContainerStrategy {
	return recordListContainer{}
}

func (recordListContainer) Name() string {
	return "first-record-list"
}

func (recordListContainer) Find(doc *session.Object) (any, bool) {
	for _, v := range doc.All() {
		list, ok := v.([]any)
		if !ok || len(list) == 0 {
			continue
		}
		if _, ok := list[0].(*session.Object); ok {
			return list, true
		}
	}
	return nil, false
}

// DefaultContainers returns the container strategies in priority order.
func DefaultContainers() []ContainerStrategy {
	return []ContainerStrategy{
		KeyContainer("sessions"),
		KeyContainer("usage_data"),
		KeyContainer("conversations"),
		ListKeyContainer("data"),
		RecordListContainer(),
	}
}

// entries returns the raw session entries of a document.
func entries(raw any, strategies []ContainerStrategy) []any {
	switch doc := raw.(type) {
	case []any:
		return doc
	case *session.Object:
		for _, strategy := range strategies {
			v, ok := strategy.Find(doc)
			if !ok {
				continue
			}
			if list, isList := v.([]any); isList {
				return list
			}
			return []any{v}
		}
		return []any{doc}
	default:
		return nil
	}
}

// Entries returns the raw session entries of a document using the default
// container strategies.
func Entries(raw any) []any {
	return entries(raw, DefaultContainers())
}
