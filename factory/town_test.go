package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yunhopapisaoko-dot/township/factory"
)

// =============================================================================
// PRESET
// =============================================================================

func TestParseTown_DefaultPreset(t *testing.T) {
	// GIVEN: The built-in town definition
	// WHEN: Parsing it
	// THEN: Four scopes, a menu, the 10/20/70 wheel, and default tunables

	town, err := factory.ParseTown([]byte(factory.DefaultTownJSON()))
	require.NoError(t, err)

	assert.Equal(t, "1000", town.OpeningGrant.Value.String())
	assert.Equal(t, "50", town.DocumentFee.Value.String())
	assert.Len(t, town.Scopes, 4)
	assert.NotEmpty(t, town.Menu)

	table, err := town.OutcomeTable()
	require.NoError(t, err)
	assert.Equal(t, 100, table.TotalWeight())

	weights := map[string]int{}
	for _, c := range table.Categories() {
		weights[c.Name] = c.Weight
	}
	assert.Equal(t, map[string]int{"money": 10, "voucher": 20, "affliction": 70}, weights)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestParseTown_InvalidJSON(t *testing.T) {
	_, err := factory.ParseTown([]byte("{not json"))
	assert.Error(t, err)
}

func TestParseTown_DuplicateScope_Rejected(t *testing.T) {
	town := `{
		"scopes": [
			{"id": "bank", "name": "Bank A", "employee_secret": "a", "manager_secret": "b"},
			{"id": "bank", "name": "Bank B", "employee_secret": "c", "manager_secret": "d"}
		],
		"roulette": {"categories": [
			{"name": "money", "weight": 1, "prizes": [{"id": "p", "label": "P", "kind": "money", "value": 1}]}
		]}
	}`

	_, err := factory.ParseTown([]byte(town))
	assert.ErrorContains(t, err, "duplicate scope")
}

func TestParseTown_BadMenuItem_Rejected(t *testing.T) {
	town := `{
		"menu": [{"id": "bread", "name": "Bread", "price": -5, "nutrition": 10}],
		"roulette": {"categories": [
			{"name": "money", "weight": 1, "prizes": [{"id": "p", "label": "P", "kind": "money", "value": 1}]}
		]}
	}`

	_, err := factory.ParseTown([]byte(town))
	assert.ErrorContains(t, err, "price")
}

func TestParseTown_BadWheel_FailsFast(t *testing.T) {
	// GIVEN: A wheel whose only drawable category has a zero weight
	// WHEN: Parsing the town
	// THEN: Construction fails at parse time, not at the first spin

	town := `{
		"roulette": {"categories": [
			{"name": "money", "weight": 0, "prizes": [{"id": "p", "label": "P", "kind": "money", "value": 1}]}
		]}
	}`

	_, err := factory.ParseTown([]byte(town))
	assert.ErrorContains(t, err, "roulette table")
}

func TestParseTown_EmptyWheel_Rejected(t *testing.T) {
	_, err := factory.ParseTown([]byte(`{"roulette": {"categories": []}}`))
	assert.Error(t, err)
}
