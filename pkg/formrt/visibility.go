package formrt

// IsVisible reports whether a field's own conditional logic currently permits display.
// Fields without logic are visible. Malformed logic fails open.
func IsVisible(field Field, answers AnswerMap) bool {
	if field.ConditionalLogic == nil {
		return true
	}
	logic, ok := field.ConditionalLogic.Logic()
	if !ok {
		return true
	}
	return EvaluateLogic(logic, answers)
}

// VisibleFields returns the fields that are currently visible, in declaration order.
func VisibleFields(fields []Field, answers AnswerMap) []Field {
	visible := make([]Field, 0, len(fields))
	for _, f := range fields {
		if IsVisible(f, answers) {
			visible = append(visible, f)
		}
	}
	return visible
}

// EvaluateLogic folds the condition chain strictly left to right. The
// operator stored on condition i-1 joins condition i (AND when absent).
// There is no precedence: [a AND b OR c] is (a AND b) OR c.
func EvaluateLogic(logic ConditionalLogic, answers AnswerMap) bool {
	if len(logic.Conditions) == 0 {
		return true
	}

	result := evaluateCondition(logic.Conditions[0], answers)
	for i := 1; i < len(logic.Conditions); i++ {
		c := evaluateCondition(logic.Conditions[i], answers)
		if logic.Conditions[i-1].LogicOperator == LogicOr {
			result = result || c
		} else {
			result = result && c
		}
	}

	if logic.Action == ActionHide {
		return !result
	}
	return result
}

func evaluateCondition(c LogicCondition, answers AnswerMap) bool {
	return c.Operator.Apply(answers[c.FieldID], c.Value)
}
