package calls

import "qms/hospital-service/internal/models"

// transitionMap lists, per target state, the states a call may leave to reach it.
var transitionMap = map[string][]string{
	models.StatusPending:   {},
	models.StatusCalled:    {models.StatusPending},
	models.StatusAttended:  {models.StatusPending, models.StatusCalled},
	models.StatusCancelled: {models.StatusPending},
}

func ValidState(state string) bool {
	_, ok := transitionMap[state]
	return ok
}

func ValidTransition(target, fromStatus string) bool {
	allowed, ok := transitionMap[target]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
