package api

import (
	"errors"

	"github.com/xraph/forge"

	"github.com/xraph/sentinel"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrRuleNotFound) || errors.Is(err, sentinel.ErrAuditEntryNotFound) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, sentinel.ErrConfiguration) || errors.Is(err, sentinel.ErrInvalidInvocation) ||
		errors.Is(err, sentinel.ErrCredentialsNotFound) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, sentinel.ErrAccessDenied) {
		return forge.Forbidden(err.Error())
	}
	return err
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

// validateGroups rejects rules whose groups contain empty authority names.
func validateGroups(groups [][]string) error {
	for _, g := range groups {
		for _, a := range g {
			if a == "" {
				return forge.BadRequest("groups must not contain empty authorities")
			}
		}
	}
	return nil
}
