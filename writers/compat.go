package writers

import (
	"strings"

	"github.com/gomlx/gomlx/types/xslices"
	"github.com/gomlx/txtgen/models"
	"github.com/pkg/errors"
)

// Compatibility between strategies and models is a static table lookup, not
// a type hierarchy: a strategy name may be restricted to a set of model
// families, and New consults the table when binding. Strategies without an
// entry accept every model, and models that report no family (see
// models.FamilyProvider) are only accepted by unrestricted strategies.
var restrictedStrategies = map[string]map[string]bool{}

// RestrictStrategy registers the model families the named strategy supports.
// Binding that strategy to a model of any other family (or of no reported
// family) fails with ErrConfig. Call it during package initialization, before
// writers are created.
func RestrictStrategy(strategyName string, families ...string) {
	allowed := make(map[string]bool, len(families))
	for _, family := range families {
		allowed[family] = true
	}
	restrictedStrategies[strategyName] = allowed
}

func checkCompatibility(strategy Strategy, model models.Model) error {
	allowed := restrictedStrategies[strategy.Name()]
	if allowed == nil {
		return nil
	}
	familyList := strings.Join(xslices.SortedKeys(allowed), ", ")
	fp, ok := model.(models.FamilyProvider)
	if !ok || fp.Family() == "" {
		return errors.Wrapf(ErrConfig, "strategy %q only supports model families [%s], and model %T reports no family",
			strategy.Name(), familyList, model)
	}
	if !allowed[fp.Family()] {
		return errors.Wrapf(ErrConfig, "strategy %q only supports model families [%s], not %q",
			strategy.Name(), familyList, fp.Family())
	}
	return nil
}
