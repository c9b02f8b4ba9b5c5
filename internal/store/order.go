package store

import (
	"slices"

	"qms/hospital-service/internal/models"
)

// CompareQueue orders pending calls: manual order ascending with unset values last,
// then priority rank, then creation time, then id.
func CompareQueue(a, b models.Call) int {
	switch {
	case a.ManualOrder != nil && b.ManualOrder == nil:
		return -1
	case a.ManualOrder == nil && b.ManualOrder != nil:
		return 1
	case a.ManualOrder != nil && b.ManualOrder != nil && *a.ManualOrder != *b.ManualOrder:
		if *a.ManualOrder < *b.ManualOrder {
			return -1
		}
		return 1
	}
	if a.PriorityRank != b.PriorityRank {
		if a.PriorityRank < b.PriorityRank {
			return -1
		}
		return 1
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.CallID < b.CallID:
		return -1
	case a.CallID > b.CallID:
		return 1
	}
	return 0
}

func SortQueue(calls []models.Call) {
	slices.SortFunc(calls, CompareQueue)
}
