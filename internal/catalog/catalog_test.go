package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/corates/internal/models"
)

func TestDefinition_KnownInstruments(t *testing.T) {
	tests := []struct {
		instrument models.InstrumentType
		name       string
		items      int
		domains    int
	}{
		{models.InstrumentAmstar2, "AMSTAR 2", 16, 0},
		{models.InstrumentRobinsI, "ROBINS-I", 0, 7},
		{models.InstrumentRob2, "RoB 2", 0, 5},
	}

	for _, tt := range tests {
		t.Run(string(tt.instrument), func(t *testing.T) {
			def, err := Definition(tt.instrument)
			require.NoError(t, err)
			assert.Equal(t, tt.name, def.Name)
			assert.Len(t, def.Items, tt.items)
			assert.Len(t, def.Domains, tt.domains)
		})
	}
}

func TestDefinition_UnknownInstrument(t *testing.T) {
	_, err := Definition("casp")
	assert.ErrorIs(t, err, ErrUnknownInstrument)
}

func TestAmstar2_CriticalItems(t *testing.T) {
	def, err := Definition(models.InstrumentAmstar2)
	require.NoError(t, err)

	var critical []string
	for _, item := range def.Items {
		if item.Critical {
			critical = append(critical, item.ID)
		}
	}
	assert.Equal(t, []string{"q2", "q4", "q7", "q9", "q11", "q13", "q15"}, critical)
}

func TestAmstar2_EveryItemHasSubQuestions(t *testing.T) {
	def, err := Definition(models.InstrumentAmstar2)
	require.NoError(t, err)

	for _, item := range def.Items {
		assert.NotEmpty(t, item.SubQuestions, "item %s", item.ID)
	}
}

func TestRobins_DomainOrder(t *testing.T) {
	def, err := Definition(models.InstrumentRobinsI)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"confounding", "selection", "classification", "deviations",
		"missing_data", "measurement", "reporting",
	}, def.UnitIDs())
}

func TestRob2_DomainOrder(t *testing.T) {
	def, err := Definition(models.InstrumentRob2)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"randomization", "deviations", "missing_data", "measurement", "selection",
	}, def.UnitIDs())
}

func TestUnitIDs_Amstar(t *testing.T) {
	def, err := Definition(models.InstrumentAmstar2)
	require.NoError(t, err)

	ids := def.UnitIDs()
	require.Len(t, ids, 16)
	assert.Equal(t, "q1", ids[0])
	assert.Equal(t, "q16", ids[15])
}
