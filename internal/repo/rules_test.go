package repo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/velmart/pricing-core/internal/repo"
	"github.com/velmart/pricing-core/internal/rule"
)

func TestDecodeConditionGroups(t *testing.T) {
	raw := []byte(`[
		{"id": 1, "logic": 1, "conditions": [
			{"id": 10, "type": 2, "minPrice": 5000, "costBasis": true},
			{"id": 11, "type": 13, "synergyIds": [7, 8], "maxValue": 30, "maxValueType": 1}
		]},
		{"id": 2, "logic": 2, "conditions": [
			{"id": 12, "type": 8, "regionIds": [5]}
		]}
	]`)
	groups, err := repo.DecodeConditionGroups(raw)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	require.Equal(t, rule.OpAnd, groups[0].Logic)
	require.Equal(t, rule.CondMinPriceOrder, groups[0].Conditions[0].Type)
	require.Equal(t, int64(5000), groups[0].Conditions[0].MinPrice)
	require.True(t, groups[0].Conditions[0].CostBasis)

	synergy := groups[0].Conditions[1]
	require.Equal(t, rule.CondDiscountSynergy, synergy.Type)
	require.Equal(t, []int64{7, 8}, synergy.SynergyIDs)
	require.Equal(t, int64(30), synergy.MaxValue)
	require.Equal(t, rule.ValuePercent, synergy.MaxValueType)

	require.Equal(t, rule.OpOr, groups[1].Logic)
	require.Equal(t, rule.CondRegion, groups[1].Conditions[0].Type)
}

func TestDecodeConditionGroupsEmpty(t *testing.T) {
	groups, err := repo.DecodeConditionGroups(nil)
	require.NoError(t, err)
	require.Nil(t, groups)

	groups, err = repo.DecodeConditionGroups([]byte(`[]`))
	require.NoError(t, err)
	require.Empty(t, groups)

	_, err = repo.DecodeConditionGroups([]byte(`{broken`))
	require.Error(t, err)
}

func TestEncodeConditionGroupsRoundTrip(t *testing.T) {
	in := []rule.Group{
		{ID: 1, Logic: rule.OpAndNot, Conditions: []rule.Condition{
			{ID: 10, Type: rule.CondFirstOrder},
			{ID: 11, Type: rule.CondPayMethod, PaymentMethods: []int64{1, 2}},
		}},
	}
	raw, err := repo.EncodeConditionGroups(in)
	require.NoError(t, err)

	out, err := repo.DecodeConditionGroups(raw)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEncodeConditionGroupsEmptyIsArray(t *testing.T) {
	raw, err := repo.EncodeConditionGroups(nil)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(raw))
}
