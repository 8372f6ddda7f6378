// Package interactive provides terminal user interface components
package interactive

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
)

// ErrNoSelection is returned when the picker closes without any choice
var ErrNoSelection = errors.New("no terminals selected")

// PickTerminals asks the user to choose from the detected terminal names.
// Every terminal starts checked.
func PickTerminals(available []string) ([]string, error) {
	var selected []string

	prompt := &survey.MultiSelect{
		Message: "Which terminals should be tested?",
		Options: available,
		Default: available,
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return nil, err
	}

	if len(selected) == 0 {
		return nil, ErrNoSelection
	}

	return selected, nil
}

// Confirm asks for user confirmation
func Confirm(message string) bool {
	confirmed := false
	prompt := &survey.Confirm{
		Message: message,
		Default: true,
	}
	_ = survey.AskOne(prompt, &confirmed)
	return confirmed
}
