package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marylanddata/hanover-cli/internal/config"
)

func TestCollectTarget_ConfigAndOverrides(t *testing.T) {
	origCfg, origZCTA, origYear := cfg, collectZCTA, collectYear
	t.Cleanup(func() { cfg, collectZCTA, collectYear = origCfg, origZCTA, origYear })

	cfg = &config.Config{}
	cfg.Census.ZCTA = "21076"
	cfg.Census.ACSYear = 2023

	collectZCTA, collectYear = "", 0
	zcta, year := collectTarget()
	assert.Equal(t, "21076", zcta)
	assert.Equal(t, 2023, year)

	collectZCTA, collectYear = "21230", 2022
	zcta, year = collectTarget()
	assert.Equal(t, "21230", zcta)
	assert.Equal(t, 2022, year)
}

func TestAffordabilityOptions_FromConfig(t *testing.T) {
	origCfg := cfg
	t.Cleanup(func() { cfg = origCfg })

	cfg = &config.Config{}
	cfg.Affordability.IncomeShare = 0.30
	cfg.Affordability.OwnershipRate = 0.006
	cfg.Affordability.TopBracketIncome = 300000

	opts := affordabilityOptions()
	assert.Equal(t, 0.30, opts.IncomeShare)
	assert.Equal(t, 0.006, opts.OwnershipRate)
	assert.Equal(t, float64(300000), opts.TopBracketIncome)
}
