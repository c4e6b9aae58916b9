package discovery

import (
	"github.com/samber/lo"

	"github.com/mtlprog/mintbridge/internal/domain"
)

// attributeKeys are the record fields republished on the attributes topic.
var attributeKeys = []string{
	"availableBalance",
	"currentBalance",
	"value",
	"currency",
	"interestRate",
	"bankAccountType",
	"investmentType",
	"fiName",
	"cpAccountNumberLast4",
}

// ExtractAttributes returns the allow-listed fields present in the record.
// Absent keys are omitted rather than set to null.
func ExtractAttributes(a domain.Account) map[string]any {
	return lo.PickByKeys(a.Fields(), attributeKeys)
}
