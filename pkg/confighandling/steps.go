package confighandling

import (
	"fmt"
	"sort"
	"strings"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
)

// StepConfigLike is implemented by any per-step configuration that
// carries a step config id.
type StepConfigLike interface {
	// GetStepConfigID identifies this configuration of the step.
	GetStepConfigID() string
}

// GetStepConfigIDs returns the step config id of each configuration,
// in order.
func GetStepConfigIDs[S StepConfigLike](stepConfigs []S) []string {
	ids := make([]string, 0, len(stepConfigs))
	for _, c := range stepConfigs {
		ids = append(ids, c.GetStepConfigID())
	}
	return ids
}

// GetConfigForStepID returns the configuration of step whose step
// config id equals stepConfigID. The error lists the available ids so
// a typo in a configuration file is easy to spot.
func GetConfigForStepID[S StepConfigLike](stepConfigs []S, step string, stepConfigID string) (S, error) {
	available := make([]string, 0, len(stepConfigs))
	for _, c := range stepConfigs {
		if c.GetStepConfigID() == stepConfigID {
			return c, nil
		}
		available = append(available, c.GetStepConfigID())
	}

	var zero S
	return zero, errors.Newf(errors.ErrStepConfigNotFound,
		"couldn't find step_config_id=%q for step=%q. Available step config IDs: [%s]",
		stepConfigID, step, strings.Join(available, ", "))
}

// AssertUniqueStepConfigIDs returns an error naming the duplicates if
// any step config id appears more than once.
func AssertUniqueStepConfigIDs[S StepConfigLike](stepConfigs []S) error {
	seen := map[string]int{}
	for _, c := range stepConfigs {
		seen[c.GetStepConfigID()]++
	}

	var duplicates []string
	for id, count := range seen {
		if count > 1 {
			duplicates = append(duplicates, fmt.Sprintf("%q", id))
		}
	}
	if len(duplicates) == 0 {
		return nil
	}
	sort.Strings(duplicates)

	return errors.Newf(errors.ErrStepConfigDuplicate,
		"step_config_id must be unique. The following step_config_id are duplicated: [%s]",
		strings.Join(duplicates, ", "))
}
