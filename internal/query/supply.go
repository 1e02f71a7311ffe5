package query

import (
	"strconv"
	"strings"

	"github.com/R3E-Network/mirror_query/internal/entityid"
)

// UnreleasedSupplyCondition matches column against the encoded ids of the
// unreleased supply accounts. The ids are inlined since they are constant for
// a network.
func UnreleasedSupplyCondition(column string, ranges []entityid.Range) string {
	conditions := make([]string, 0, len(ranges))
	for _, r := range ranges {
		from, _ := r.From.EncodedID()
		to, _ := r.To.EncodedID()
		if from == to {
			conditions = append(conditions, column+" = "+strconv.FormatInt(from, 10))
			continue
		}
		conditions = append(conditions, "("+column+" >= "+strconv.FormatInt(from, 10)+" and "+column+" <= "+strconv.FormatInt(to, 10)+")")
	}
	return strings.Join(conditions, " or ")
}
