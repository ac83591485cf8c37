package epi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Birth:              [][]float64{{0.01, 0.01, 0, 0}},
		Death:              [][]float64{{0.02, 0.02, 0.02, 0}},
		AgeMixing:          [][]float64{{1}},
		BetaForce:          0.5,
		BetaEnv:            0.1,
		VirusDecay:         1.0,
		FreqVsDensityForce: 0.5,
		FreqVsDensityEnv:   0.5,
		Stage: map[string][]float64{
			"recovery":     {0.1},
			"virus_growth": {0.2},
		},
	}
}

func TestNewRateParams(t *testing.T) {
	p, err := NewRateParams(validConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, p.AgeCategories())
	assert.Equal(t, 4, p.NumClasses())
	assert.True(t, p.HasBirths())
}

func TestNewRateParamsCopiesInputs(t *testing.T) {
	cfg := validConfig()
	p, err := NewRateParams(cfg)
	require.NoError(t, err)

	cfg.Birth[0][0] = 99
	cfg.Stage["recovery"][0] = 99
	assert.Equal(t, 0.01, p.Birth[0][0], "constructor must deep-copy birth")
	assert.Equal(t, 0.1, p.Stage["recovery"][0], "constructor must deep-copy stage rates")
}

func TestScalarConstructorUsesDeathForDeath(t *testing.T) {
	// The death row must come from the death argument, not the birth one.
	p, err := NewScalarRateParams(4, ScalarConfig{
		Birth:      0.1,
		Death:      0.2,
		BetaForce:  0.5,
		BetaEnv:    0.1,
		VirusDecay: 1,
		Stage:      map[string]float64{"recovery": 0.1, "virus_growth": 0.2},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.1, p.Birth[0][0])
	assert.Equal(t, 0.2, p.Death[0][0])
	assert.Equal(t, 0.0, p.Birth[0][3], "sink class gets no demographic rates")
	assert.Equal(t, 0.0, p.Death[0][3])
	assert.Equal(t, [][]float64{{1}}, p.AgeMixing)
}

func TestValidateDimensionMismatch(t *testing.T) {
	cfg := validConfig()
	cfg.Death = [][]float64{{0.02, 0.02, 0.02}} // one class short
	_, err := NewRateParams(cfg)
	require.Error(t, err)

	cfg = validConfig()
	cfg.AgeMixing = [][]float64{{1, 0}, {0, 1}} // two rows, one age category
	_, err = NewRateParams(cfg)
	require.Error(t, err)
}

func TestValidateBlendScalarRange(t *testing.T) {
	for _, bad := range []float64{-0.1, 1.5} {
		cfg := validConfig()
		cfg.FreqVsDensityForce = bad
		_, err := NewRateParams(cfg)
		assert.Error(t, err, "blend %g must be rejected", bad)

		cfg = validConfig()
		cfg.FreqVsDensityEnv = bad
		_, err = NewRateParams(cfg)
		assert.Error(t, err, "blend %g must be rejected", bad)
	}
}

func TestValidateNegativeRates(t *testing.T) {
	cfg := validConfig()
	cfg.Stage["recovery"] = []float64{-0.1}
	_, err := NewRateParams(cfg)
	require.Error(t, err)
}

func TestZeroTransmissionIsWarningNotError(t *testing.T) {
	cfg := validConfig()
	cfg.BetaForce = 0
	cfg.BetaEnv = 0
	p, err := NewRateParams(cfg)
	require.NoError(t, err, "a zero-transmission baseline is a legal configuration")

	result := p.Validate()
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "transmission", result.Warnings[0].Category)
}

func TestCheckAgainst(t *testing.T) {
	p, err := NewRateParams(validConfig())
	require.NoError(t, err)

	require.NoError(t, p.CheckAgainst(SIR()))

	// SEIR needs an incubation rate the set does not carry.
	err = p.CheckAgainst(SEIR())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incubation")
}

func TestCheckAgainstClassCountMismatch(t *testing.T) {
	p, err := NewRateParams(validConfig()) // 4 classes
	require.NoError(t, err)
	err = p.CheckAgainst(SIS()) // 3 classes
	require.Error(t, err)
}
