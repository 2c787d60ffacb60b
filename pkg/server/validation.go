package server

import (
	"errors"
	"slices"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/David-Botos/tag-remediation/pkg/filter"
	"github.com/David-Botos/tag-remediation/pkg/remediation"
)

const (
	snapshotOriginal = "original"
	snapshotEdited   = "edited"
)

// viewQuery selects a snapshot and narrows it with the filter predicates
type viewQuery struct {
	filter.Predicates
	Snapshot string `form:"snapshot" binding:"omitempty,oneof=original edited"`
}

// snapshotOr returns the requested snapshot name, or fallback when none was given
func (q viewQuery) snapshotOr(fallback string) string {
	if q.Snapshot == "" {
		return fallback
	}
	return q.Snapshot
}

// filterColumnURI names a column that offers selector options
type filterColumnURI struct {
	Column string `uri:"column" binding:"required,filterable"`
}

// groupColumnURI names any column to group costs by
type groupColumnURI struct {
	Column string `uri:"column" binding:"required"`
}

// exportURI names one of the three exports
type exportURI struct {
	Kind string `uri:"kind" binding:"required,oneof=untagged edited original"`
}

// applyRequest is a batch of proposed edits. An empty list is a valid no-op;
// invalid edits are rejected one by one by the session.
type applyRequest struct {
	Edits []remediation.Edit `json:"edits" binding:"required"`
}

var (
	registerOnce sync.Once
	registerErr  error
)

// registerValidations adds the custom rules to gin's validator engine once per process
func registerValidations() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("binding validator is not a go-playground validator")
			return
		}
		registerErr = v.RegisterValidation("filterable", validateFilterable)
	})
	return registerErr
}

// validateFilterable accepts only the columns that carry a filter predicate
func validateFilterable(fl validator.FieldLevel) bool {
	return slices.Contains(filter.Columns, fl.Field().String())
}
