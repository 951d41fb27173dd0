package threshold

// evaluate reports whether current breaches the condition. A condition/value
// shape mismatch evaluates to false: a misconfigured threshold fails closed
// and never fires rather than erroring mid-check.
func evaluate(cond Condition, current float64, value Value) bool {
	switch cond {
	case ConditionGreaterThan:
		return len(value) == 1 && current > value[0]
	case ConditionLessThan:
		return len(value) == 1 && current < value[0]
	case ConditionEquals:
		return len(value) == 1 && current == value[0]
	case ConditionNotEquals:
		return len(value) == 1 && current != value[0]
	case ConditionBetween:
		return len(value) == 2 && current >= value[0] && current <= value[1]
	case ConditionOutside:
		return len(value) == 2 && (current < value[0] || current > value[1])
	default:
		return false
	}
}
