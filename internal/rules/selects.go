package rules

import (
	"strings"

	"github.com/veform/veform/internal/models"
)

// SelectReply is the verdict of the single-select validator. Valid only when
// exactly one option label matched.
type SelectReply struct {
	Valid  bool
	Option *models.SelectOption
}

// selectReply matches option labels as case-insensitive substrings of the
// input. Zero or multiple matches are both invalid; ambiguity defers to
// remote resolution.
func selectReply(input string, field *models.Field) SelectReply {
	matched := matchOptions(input, field.Validation.SelectOptions)
	if len(matched) == 1 {
		return SelectReply{Valid: true, Option: &matched[0]}
	}
	return SelectReply{}
}

// MultiselectReply is the verdict of the multiselect validator.
type MultiselectReply struct {
	Valid   bool
	Options []models.SelectOption
}

// multiselectReply matches option labels as substrings and rejects if the
// matched count falls outside the field's configured selection bounds.
func multiselectReply(input string, field *models.Field) MultiselectReply {
	matched := matchOptions(input, field.Validation.SelectOptions)
	if len(matched) == 0 {
		return MultiselectReply{}
	}
	if max := field.Validation.MaxSelections; max != nil && len(matched) > *max {
		return MultiselectReply{}
	}
	if min := field.Validation.MinSelections; min != nil && len(matched) < *min {
		return MultiselectReply{}
	}
	return MultiselectReply{Valid: true, Options: matched}
}

func matchOptions(input string, options []models.SelectOption) []models.SelectOption {
	var matched []models.SelectOption
	for _, opt := range options {
		if strings.Contains(input, strings.ToLower(opt.Label)) {
			matched = append(matched, opt)
		}
	}
	return matched
}
