package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/corates/internal/catalog"
	"github.com/corates/corates/internal/models"
)

// newRobins returns a factory-built ROBINS-I checklist with every
// signalling question (optional ones included) set to the given response.
func newRobins(t *testing.T, fill models.Response) *models.Checklist {
	t.Helper()
	c, err := catalog.NewChecklist(models.InstrumentRobinsI, models.ChecklistMeta{ID: "test"})
	require.NoError(t, err)
	fillDomains(c.Robins.Domains, fill)
	return c
}

func newRob2(t *testing.T, fill models.Response) *models.Checklist {
	t.Helper()
	c, err := catalog.NewChecklist(models.InstrumentRob2, models.ChecklistMeta{ID: "test"})
	require.NoError(t, err)
	fillDomains(c.Rob2.Domains, fill)
	return c
}

func fillDomains(domains map[string]*models.Domain, fill models.Response) {
	for _, dom := range domains {
		for id := range dom.Answers {
			dom.Answers[id] = models.SignalAnswer{Response: fill}
		}
	}
}

func setAnswer(dom *models.Domain, id string, r models.Response) {
	dom.Answers[id] = models.SignalAnswer{Response: r}
}

func domainScore(t *testing.T, res *Result, id string) DomainScore {
	t.Helper()
	for _, ds := range res.Domains {
		if ds.DomainID == id {
			return ds
		}
	}
	t.Fatalf("no score for domain %s", id)
	return DomainScore{}
}

func TestScore_UnknownInstrument(t *testing.T) {
	c := &models.Checklist{}
	c.Instrument = "quadas"
	_, err := Score(c)
	assert.ErrorIs(t, err, catalog.ErrUnknownInstrument)
}

func TestScoreRobins_NoConfoundingPotential(t *testing.T) {
	c := newRobins(t, models.ResponseNo)
	res, err := Score(c)
	require.NoError(t, err)

	ds := domainScore(t, res, "confounding")
	assert.Equal(t, models.RiskLow, ds.Judgement)
	assert.Equal(t, "confounding.none", ds.RuleID)
	assert.True(t, ds.Complete)
}

func TestScoreRobins_AllNoInformationDomain(t *testing.T) {
	// A domain answered entirely "no information" maps to the
	// no-information judgement, never silently to low risk.
	c := newRobins(t, models.ResponseNo)
	conf := c.Robins.Domains["confounding"]
	for id := range conf.Answers {
		setAnswer(conf, id, models.ResponseNoInformation)
	}

	res, err := Score(c)
	require.NoError(t, err)
	ds := domainScore(t, res, "confounding")
	assert.Equal(t, models.RiskNoInformation, ds.Judgement)
	assert.Equal(t, "confounding.no_information", ds.RuleID)
}

func TestScoreRobins_ConfoundingTable(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(d *models.Domain)
		judgement models.RiskLevel
		ruleID    string
	}{
		{
			"post-intervention adjustment",
			func(d *models.Domain) {
				setAnswer(d, "1.1", models.ResponseYes)
				setAnswer(d, "1.4", models.ResponseYes)
				setAnswer(d, "1.6", models.ResponseYes)
			},
			models.RiskSerious, "confounding.post_intervention",
		},
		{
			"uncontrolled confounding",
			func(d *models.Domain) {
				setAnswer(d, "1.1", models.ResponseYes)
				setAnswer(d, "1.4", models.ResponseNo)
				setAnswer(d, "1.6", models.ResponseNo)
			},
			models.RiskSerious, "confounding.uncontrolled",
		},
		{
			"appropriately controlled",
			func(d *models.Domain) {
				setAnswer(d, "1.1", models.ResponseYes)
				setAnswer(d, "1.4", models.ResponseProbablyYes)
				setAnswer(d, "1.6", models.ResponseNo)
			},
			models.RiskModerate, "confounding.controlled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newRobins(t, models.ResponseNo)
			tt.setup(c.Robins.Domains["confounding"])

			res, err := Score(c)
			require.NoError(t, err)
			ds := domainScore(t, res, "confounding")
			assert.Equal(t, tt.judgement, ds.Judgement)
			assert.Equal(t, tt.ruleID, ds.RuleID)
		})
	}
}

func TestScoreRobins_ManualOverrideWins(t *testing.T) {
	c := newRobins(t, models.ResponseNo)
	conf := c.Robins.Domains["confounding"]
	conf.Judgement = models.DomainJudgement{
		Judgement: models.RiskSerious,
		Source:    models.JudgementManual,
	}

	res, err := Score(c)
	require.NoError(t, err)
	ds := domainScore(t, res, "confounding")
	assert.Equal(t, models.RiskSerious, ds.Judgement, "manual override wins")
	assert.Equal(t, models.RiskLow, ds.Auto, "auto value still computed and exposed")
	assert.Equal(t, models.JudgementManual, ds.Source)
}

func TestScoreRobins_IncompleteDomainGatesResult(t *testing.T) {
	c := newRobins(t, models.ResponseNo)
	setAnswer(c.Robins.Domains["reporting"], "7.2", models.ResponseUnanswered)

	res, err := Score(c)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	ds := domainScore(t, res, "reporting")
	assert.False(t, ds.Complete)
	assert.Equal(t, models.RiskUnset, ds.Auto)
	assert.Equal(t, models.RiskUnset, res.Overall.Auto)
}

func TestScoreRobins_OptionalQuestionsDoNotGate(t *testing.T) {
	c := newRobins(t, models.ResponseNo)
	// 1.2, 1.3, 1.5 are conditional follow-ups.
	conf := c.Robins.Domains["confounding"]
	setAnswer(conf, "1.2", models.ResponseUnanswered)
	setAnswer(conf, "1.3", models.ResponseUnanswered)
	setAnswer(conf, "1.5", models.ResponseUnanswered)

	res, err := Score(c)
	require.NoError(t, err)
	assert.True(t, res.Complete)
}

func TestScoreRobins_NotApplicableCountsAsAnswered(t *testing.T) {
	c := newRobins(t, models.ResponseNo)
	setAnswer(c.Robins.Domains["classification"], "3.2", models.ResponseNotApplicable)

	res, err := Score(c)
	require.NoError(t, err)
	assert.True(t, res.Complete)
}

func TestScoreRobins_OverallIsWorstDomain(t *testing.T) {
	c := newRobins(t, models.ResponseNo)
	// Push measurement to critical via differential measurement error.
	meas := c.Robins.Domains["measurement"]
	setAnswer(meas, "6.1", models.ResponseYes)
	setAnswer(meas, "6.2", models.ResponseYes)
	setAnswer(meas, "6.3", models.ResponseNo)
	setAnswer(meas, "6.4", models.ResponseYes)

	res, err := Score(c)
	require.NoError(t, err)
	ds := domainScore(t, res, "measurement")
	require.Equal(t, models.RiskCritical, ds.Judgement)
	assert.Equal(t, models.RiskCritical, res.Overall.Judgement)
}

func TestScoreRobins_OverallNeverBetterThanWorst(t *testing.T) {
	c := newRobins(t, models.ResponseNo)
	res, err := Score(c)
	require.NoError(t, err)

	for _, ds := range res.Domains {
		assert.GreaterOrEqual(t, robinsScale[res.Overall.Judgement], robinsScale[ds.Judgement],
			"overall must not be better than domain %s", ds.DomainID)
	}
}

func TestScoreRobins_OverallManualOverride(t *testing.T) {
	c := newRobins(t, models.ResponseNo)
	c.Robins.Overall = models.DomainJudgement{
		Judgement: models.RiskCritical,
		Source:    models.JudgementManual,
	}

	res, err := Score(c)
	require.NoError(t, err)
	assert.Equal(t, models.RiskCritical, res.Overall.Judgement)
	assert.NotEqual(t, models.RiskUnset, res.Overall.Auto, "auto reference retained")
	assert.Equal(t, models.JudgementManual, res.Overall.Source)
}

func TestScoreRobins_MissingDomainIsMalformed(t *testing.T) {
	c := newRobins(t, models.ResponseNo)
	delete(c.Robins.Domains, "selection")

	_, err := Score(c)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestScoreRobins_Deterministic(t *testing.T) {
	c := newRobins(t, models.ResponseProbablyNo)
	first, err := Score(c)
	require.NoError(t, err)
	second, err := Score(c)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScoreRob2_LowEverywhere(t *testing.T) {
	c := newRob2(t, models.ResponseNo)
	rand := c.Rob2.Domains["randomization"]
	setAnswer(rand, "1.1", models.ResponseYes)
	setAnswer(rand, "1.2", models.ResponseYes)
	md := c.Rob2.Domains["missing_data"]
	setAnswer(md, "3.1", models.ResponseYes)
	sel := c.Rob2.Domains["selection"]
	setAnswer(sel, "5.1", models.ResponseYes)
	dev := c.Rob2.Domains["deviations"]
	setAnswer(dev, "2.6", models.ResponseYes)

	res, err := Score(c)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, models.RiskLow, res.Overall.Judgement)
	for _, ds := range res.Domains {
		assert.Equal(t, models.RiskLow, ds.Judgement, "domain %s (rule %s)", ds.DomainID, ds.RuleID)
	}
}

func TestScoreRob2_SelectionHigh(t *testing.T) {
	c := newRob2(t, models.ResponseNo)
	sel := c.Rob2.Domains["selection"]
	setAnswer(sel, "5.1", models.ResponseYes)
	setAnswer(sel, "5.2", models.ResponseProbablyYes)

	res, err := Score(c)
	require.NoError(t, err)
	ds := domainScore(t, res, "selection")
	assert.Equal(t, models.RiskHigh, ds.Judgement)
	assert.Equal(t, "selection.high", ds.RuleID)
	assert.Equal(t, models.RiskHigh, res.Overall.Judgement, "worst-case aggregation")
}

func TestScoreRob2_NoInformationFallsToSomeConcerns(t *testing.T) {
	// RoB 2 has no no-information judgement level; missing information
	// lands on some-concerns.
	c := newRob2(t, models.ResponseNo)
	rand := c.Rob2.Domains["randomization"]
	for id := range rand.Answers {
		setAnswer(rand, id, models.ResponseNoInformation)
	}
	md := c.Rob2.Domains["missing_data"]
	setAnswer(md, "3.1", models.ResponseYes)
	sel := c.Rob2.Domains["selection"]
	setAnswer(sel, "5.1", models.ResponseYes)
	dev := c.Rob2.Domains["deviations"]
	setAnswer(dev, "2.6", models.ResponseYes)

	res, err := Score(c)
	require.NoError(t, err)
	ds := domainScore(t, res, "randomization")
	assert.Equal(t, models.RiskSomeConcerns, ds.Judgement)
	assert.Equal(t, models.RiskSomeConcerns, res.Overall.Judgement)
}

func TestIsComplete(t *testing.T) {
	c := newRob2(t, models.ResponseNo)
	complete, err := IsComplete(c)
	require.NoError(t, err)
	assert.True(t, complete)

	setAnswer(c.Rob2.Domains["measurement"], "4.1", models.ResponseUnanswered)
	complete, err = IsComplete(c)
	require.NoError(t, err)
	assert.False(t, complete)
}
