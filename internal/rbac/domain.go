package rbac

import (
	"encoding/json"
	"strings"
)

// Permission is an atomic capability drawn from the registry in permissions.go.
// Unregistered values are accepted as query input and simply never match.
type Permission string

// wildcardToken is the serialized form of the "all" variant. It is not a
// Permission and never appears inside a set's item list.
const wildcardToken = "all"

// PermissionSet is an ordered, deduplicated permission collection. The zero
// value is the empty set. All() is a distinct variant that satisfies every
// membership check and is tested before any item lookup.
type PermissionSet struct {
	all   bool
	items []Permission
	index map[Permission]struct{}
}

// All returns the wildcard set.
func All() PermissionSet {
	return PermissionSet{all: true}
}

// NewPermissionSet builds a set preserving first-seen order. Empty values and
// the wildcard token are dropped; use All for the wildcard.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := PermissionSet{index: make(map[Permission]struct{}, len(perms))}
	for _, p := range perms {
		if p == "" || string(p) == wildcardToken {
			continue
		}
		if _, ok := set.index[p]; ok {
			continue
		}
		set.index[p] = struct{}{}
		set.items = append(set.items, p)
	}
	return set
}

// ParsePermissions converts raw names. A "all" entry anywhere yields All().
func ParsePermissions(names []string) PermissionSet {
	perms := make([]Permission, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == wildcardToken {
			return All()
		}
		perms = append(perms, Permission(name))
	}
	return NewPermissionSet(perms...)
}

// IsAll reports whether the set is the wildcard variant.
func (s PermissionSet) IsAll() bool {
	return s.all
}

// Contains reports whether p is granted by the set.
func (s PermissionSet) Contains(p Permission) bool {
	if s.all {
		return true
	}
	_, ok := s.index[p]
	return ok
}

// ContainsAny reports whether at least one of perms is granted.
// An empty list is never satisfied unless the set is the wildcard.
func (s PermissionSet) ContainsAny(perms []Permission) bool {
	if s.all {
		return true
	}
	for _, p := range perms {
		if _, ok := s.index[p]; ok {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every element of perms is granted. An empty
// list is vacuously satisfied.
func (s PermissionSet) ContainsAll(perms []Permission) bool {
	if s.all {
		return true
	}
	for _, p := range perms {
		if _, ok := s.index[p]; !ok {
			return false
		}
	}
	return true
}

// List returns a copy of the explicit items in order. The wildcard has none.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of explicit items.
func (s PermissionSet) Len() int {
	return len(s.items)
}

// Strings returns the serialized names, ["all"] for the wildcard.
func (s PermissionSet) Strings() []string {
	if s.all {
		return []string{wildcardToken}
	}
	out := make([]string, len(s.items))
	for i, p := range s.items {
		out[i] = string(p)
	}
	return out
}

// MarshalJSON writes the set as a list of names.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON reads a list of names.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = ParsePermissions(names)
	return nil
}
