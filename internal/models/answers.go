package models

// Response is a signalling-question answer on the risk-of-bias tools.
// ResponseUnanswered is a reserved value distinct from every valid answer,
// so "not yet answered" is never confused with "no information" or
// "not applicable".
type Response string

const (
	ResponseUnanswered    Response = "unanswered"
	ResponseYes           Response = "yes"
	ResponseProbablyYes   Response = "probably_yes"
	ResponseProbablyNo    Response = "probably_no"
	ResponseNo            Response = "no"
	ResponseNoInformation Response = "no_information"
	ResponseNotApplicable Response = "not_applicable" // ROBINS-I only
)

// Answered reports whether r carries a reviewer answer. Not-applicable
// counts as answered.
func (r Response) Answered() bool {
	return r != ResponseUnanswered && r != ""
}

// Affirmative reports whether r is yes or probably-yes.
func (r Response) Affirmative() bool {
	return r == ResponseYes || r == ResponseProbablyYes
}

// Negative reports whether r is no or probably-no.
func (r Response) Negative() bool {
	return r == ResponseNo || r == ResponseProbablyNo
}

// ValidFor reports whether r is an acceptable answer for the given
// instrument. RoB 2 has no not-applicable option.
func (r Response) ValidFor(t InstrumentType) bool {
	switch r {
	case ResponseYes, ResponseProbablyYes, ResponseProbablyNo, ResponseNo, ResponseNoInformation:
		return true
	case ResponseNotApplicable:
		return t == InstrumentRobinsI
	}
	return false
}

// BoolAnswer is a yes/no sub-answer on a quality-tool item, with the same
// reserved unanswered value.
type BoolAnswer string

const (
	BoolUnanswered BoolAnswer = "unanswered"
	BoolYes        BoolAnswer = "yes"
	BoolNo         BoolAnswer = "no"
)

// Answered reports whether b carries a reviewer answer.
func (b BoolAnswer) Answered() bool {
	return b == BoolYes || b == BoolNo
}

// SignalAnswer is one signalling-question response with an optional
// free-text comment.
type SignalAnswer struct {
	Response Response
	Comment  string
}
