package models

// Domain holds one risk-of-bias domain: its signalling-question answers
// (keyed by question id) and the domain-level judgement.
type Domain struct {
	Answers   map[string]SignalAnswer
	Judgement DomainJudgement
}

// Answered reports whether every signalling question in the domain has a
// response. Not-applicable counts as answered.
func (d *Domain) Answered() bool {
	for _, a := range d.Answers {
		if !a.Response.Answered() {
			return false
		}
	}
	return true
}

// DomainSet is the shared shape of both risk-of-bias forms: the per-domain
// records plus the overall judgement, which the engine computes as the worst
// domain judgement unless manually overridden.
type DomainSet struct {
	Domains map[string]*Domain
	Overall DomainJudgement
}

// RobinsForm is the ROBINS-I checklist body: preliminary free-text sections
// describing the assessed result and the hypothetical target trial, plus the
// seven domains.
type RobinsForm struct {
	ResultDescription string
	TargetTrial       string
	DomainSet
}

// Rob2Form is the RoB 2 checklist body: the assessed result plus the five
// domains.
type Rob2Form struct {
	ResultDescription string
	DomainSet
}
