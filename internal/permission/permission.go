// Package permission decides whether a principal may act on a resource.
//
// A Predicate is evaluated twice per request: once with a nil object before
// anything is loaded (collection level), and once with the loaded object
// (object level). Predicates compose with All.
package permission

import (
	"errors"
	"net/http"
)

var (
	ErrNotAuthenticated = errors.New("authentication required")
	ErrForbidden        = errors.New("permission denied")
)

// Principal is the actor making a request. The zero value is anonymous.
type Principal struct {
	UserID   int64
	Username string
}

func (p Principal) Authenticated() bool { return p.UserID > 0 }

// Object is a resource with a single owning user.
type Object interface {
	OwnedBy() int64
}

// Predicate reports whether p may perform method on obj. obj is nil for
// collection-level checks.
type Predicate func(p Principal, method string, obj Object) bool

func SafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func AllowAny(Principal, string, Object) bool { return true }

func IsAuthenticated(p Principal, _ string, _ Object) bool { return p.Authenticated() }

func IsAuthenticatedOrReadOnly(p Principal, method string, _ Object) bool {
	return SafeMethod(method) || p.Authenticated()
}

// IsOwnerOrReadOnly lets anyone read and only the owner write. It never
// denies at collection level.
func IsOwnerOrReadOnly(p Principal, method string, obj Object) bool {
	if obj == nil || SafeMethod(method) {
		return true
	}
	return p.Authenticated() && obj.OwnedBy() == p.UserID
}

// All is satisfied only when every predicate is.
func All(preds ...Predicate) Predicate {
	return func(p Principal, method string, obj Object) bool {
		for _, pred := range preds {
			if !pred(p, method, obj) {
				return false
			}
		}
		return true
	}
}

// Check evaluates pred and classifies a denial: anonymous callers get
// ErrNotAuthenticated, everyone else ErrForbidden.
func Check(pred Predicate, p Principal, method string, obj Object) error {
	if pred(p, method, obj) {
		return nil
	}
	if !p.Authenticated() {
		return ErrNotAuthenticated
	}
	return ErrForbidden
}
