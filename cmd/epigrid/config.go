package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pflow-xyz/go-epigrid/epi"
)

// parseKeyValue parses "key1=val1,key2=val2" format.
func parseKeyValue(s string) (map[string]float64, error) {
	result := make(map[string]float64)

	if s == "" {
		return result, nil
	}

	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid format: %s (expected key=value)", pair)
		}
		key := strings.TrimSpace(parts[0])
		value, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %s", key, parts[1])
		}
		result[key] = value
	}
	return result, nil
}

// parseRange parses "min:max:count" into evenly spaced values.
func parseRange(s string) ([]float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid range: %s (expected min:max:count)", s)
	}
	min, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid range min: %s", parts[0])
	}
	max, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid range max: %s", parts[1])
	}
	count, err := strconv.Atoi(parts[2])
	if err != nil || count < 1 {
		return nil, fmt.Errorf("invalid range count: %s", parts[2])
	}

	values := make([]float64, count)
	if count == 1 {
		values[0] = min
		return values, nil
	}
	step := (max - min) / float64(count-1)
	for i := range values {
		values[i] = min + float64(i)*step
	}
	return values, nil
}

// demographics are the shared epidemiology flags of simulate, validate
// and sweep.
type demographics struct {
	birth, death         float64
	betaForce, betaEnv   float64
	virusDecay           float64
	blendForce, blendEnv float64
}

// scalarParams assembles a one-age parameter set for a model from the
// shared flags plus a "name=value" stage rate string.
func scalarParams(def *epi.Definition, rateSpec string, d demographics) (*epi.RateParams, error) {
	stage, err := parseKeyValue(rateSpec)
	if err != nil {
		return nil, fmt.Errorf("parse rates: %w", err)
	}
	p, err := epi.NewScalarRateParams(def.NumClasses(), epi.ScalarConfig{
		Birth:              d.birth,
		Death:              d.death,
		BetaForce:          d.betaForce,
		BetaEnv:            d.betaEnv,
		VirusDecay:         d.virusDecay,
		FreqVsDensityForce: d.blendForce,
		FreqVsDensityEnv:   d.blendEnv,
		Stage:              stage,
	})
	if err != nil {
		return nil, err
	}
	if err := p.CheckAgainst(def); err != nil {
		return nil, err
	}
	return p, nil
}
