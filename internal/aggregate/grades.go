package aggregate

// gradeSteps maps success-percentage floors to letter grades, best first.
var gradeSteps = []struct {
	min   float64
	grade string
}{
	{95, "A+"},
	{90, "A"},
	{85, "A-"},
	{80, "B+"},
	{75, "B"},
	{70, "B-"},
	{65, "C+"},
	{60, "C"},
	{55, "C-"},
	{50, "D+"},
	{45, "D"},
	{40, "D-"},
}

// GradeFor converts a success percentage to a letter grade.
func GradeFor(percent float64) string {
	for _, step := range gradeSteps {
		if percent >= step.min {
			return step.grade
		}
	}

	return "F"
}

// successPercent is the share of tests that passed, as a percentage. A
// category that ran no tests scores zero.
func successPercent(errs, total int) float64 {
	if total == 0 {
		return 0
	}

	return float64(total-errs) / float64(total) * 100
}
