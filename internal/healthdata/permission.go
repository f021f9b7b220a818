package healthdata

import (
	"errors"
	"fmt"
	"sort"
)

// Permission errors.
var (
	ErrPartitionOverlap    = errors.New("permission granted and denied at the same time")
	ErrPartitionIncomplete = errors.New("permission result does not cover the requested set")
)

// Permission is a (data type, access) pair. It is a comparable value type
// and may be used directly as a map key.
type Permission struct {
	DataType DataType   `json:"dataType"`
	Access   AccessType `json:"access"`
}

func (p Permission) String() string {
	return string(p.DataType) + ":" + string(p.Access)
}

// PermissionSet is a set of permissions with structural membership.
type PermissionSet map[Permission]struct{}

// NewPermissionSet creates a set holding perms.
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Add inserts p into the set.
func (s PermissionSet) Add(p Permission) {
	s[p] = struct{}{}
}

// Contains reports whether p is a member.
func (s PermissionSet) Contains(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Len returns the number of members.
func (s PermissionSet) Len() int {
	return len(s)
}

// Union returns a new set holding the members of s and other.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	out := make(PermissionSet, len(s)+len(other))
	for p := range s {
		out[p] = struct{}{}
	}
	for p := range other {
		out[p] = struct{}{}
	}
	return out
}

// Intersect returns a new set holding the members present in both sets.
func (s PermissionSet) Intersect(other PermissionSet) PermissionSet {
	out := make(PermissionSet)
	for p := range s {
		if other.Contains(p) {
			out[p] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold the same members.
func (s PermissionSet) Equal(other PermissionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

// Slice returns the members ordered by data type then access.
func (s PermissionSet) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DataType != out[j].DataType {
			return out[i].DataType < out[j].DataType
		}
		return out[i].Access < out[j].Access
	})
	return out
}

// PermissionResult is the outcome of a permission check or request: a
// partition of the requested set into granted and denied permissions.
type PermissionResult struct {
	Granted PermissionSet
	Denied  PermissionSet
}

// Partition splits requested into granted and denied using isGranted.
func Partition(requested PermissionSet, isGranted func(Permission) bool) PermissionResult {
	res := PermissionResult{Granted: NewPermissionSet(), Denied: NewPermissionSet()}
	for p := range requested {
		if isGranted(p) {
			res.Granted.Add(p)
		} else {
			res.Denied.Add(p)
		}
	}
	return res
}

// Validate checks that the result is a partition of requested: the union of
// granted and denied equals requested and the two never intersect.
func (r PermissionResult) Validate(requested PermissionSet) error {
	if overlap := r.Granted.Intersect(r.Denied); overlap.Len() > 0 {
		return fmt.Errorf("%w: %v", ErrPartitionOverlap, overlap.Slice())
	}
	if !r.Granted.Union(r.Denied).Equal(requested) {
		return ErrPartitionIncomplete
	}
	return nil
}

// AllGranted reports whether nothing was denied.
func (r PermissionResult) AllGranted() bool {
	return r.Denied.Len() == 0
}
