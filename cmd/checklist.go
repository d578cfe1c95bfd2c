package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/corates/corates/internal/catalog"
	"github.com/corates/corates/internal/models"
	"github.com/corates/corates/internal/output"
	"github.com/corates/corates/internal/scoring"
	"github.com/corates/corates/internal/store"
)

var (
	checklistInstrument string
	checklistName       string
	checklistReviewer   string
	checklistAssignTo   string

	checklistFilterStudy      string
	checklistFilterProject    string
	checklistFilterInstrument string
	checklistFilterStatus     string
	checklistFilterReviewer   string

	answerQuestion string
	answerResponse string
	answerComment  string
	answersFile    string

	judgeLevel     string
	judgeDirection string
	judgeClear     bool
)

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Manage appraisal checklists",
	Long: `Create, list, fill in, and score appraisal checklists.

Each checklist applies one instrument (amstar2, robins_i, or rob2) to one
study. A study is usually double-coded: two reviewers each fill in their own
checklist, which are later compared and reconciled.`,
}

var checklistCreateCmd = &cobra.Command{
	Use:   "create <study-id>",
	Short: "Create a blank checklist for a study",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checklistCreateRun(args[0])
	},
}

var checklistListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List checklists",
	RunE: func(cmd *cobra.Command, args []string) error {
		return checklistListRun()
	},
}

var checklistShowCmd = &cobra.Command{
	Use:   "show <checklist-id>",
	Short: "Show a checklist's answers and judgements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checklistShowRun(args[0])
	},
}

var checklistAnswerCmd = &cobra.Command{
	Use:   "answer <checklist-id> <item-or-domain>",
	Short: "Record one answer on a checklist",
	Long: `Record one answer on a checklist.

For amstar2 checklists the unit is the item (q1..q16), --question is the
sub-question id, and --response is yes or no. For robins_i and rob2
checklists the unit is the domain id, --question is the signalling question
id (e.g. 1.1), and --response is one of yes, probably_yes, probably_no, no,
no_information, not_applicable.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checklistAnswerRun(args[0], args[1])
	},
}

var checklistAnswersCmd = &cobra.Command{
	Use:   "answers <checklist-id>",
	Short: "Bulk-apply answers from a YAML file",
	Long: `Apply answers from a YAML file keyed by item or domain, then by
question id, for example:

  q7:
    list: "yes"
    justified: "no"
  missing_data:
    "3.1": "no_information"

Every answer is validated before anything is written; an invalid file leaves
the checklist untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checklistAnswersRun(args[0])
	},
}

var checklistJudgeCmd = &cobra.Command{
	Use:   "judge <checklist-id> <domain>",
	Short: "Set or clear a manual domain judgement override",
	Long: `Override the engine's judgement for one domain (or "overall") on a
risk-of-bias checklist. The engine keeps computing its own judgement
alongside the override; use --clear to revert to the computed value.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checklistJudgeRun(args[0], args[1])
	},
}

var checklistScoreCmd = &cobra.Command{
	Use:   "score <checklist-id>",
	Short: "Score a checklist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checklistScoreRun(args[0])
	},
}

func init() {
	checklistCreateCmd.Flags().StringVar(&checklistInstrument, "instrument", "", "Instrument: amstar2, robins_i, rob2 (required)")
	checklistCreateCmd.Flags().StringVar(&checklistName, "name", "", "Checklist label")
	checklistCreateCmd.Flags().StringVar(&checklistReviewer, "reviewer", "", "Reviewer filling in this checklist")
	checklistCreateCmd.Flags().StringVar(&checklistAssignTo, "assign", "", "Reviewer this checklist is assigned to")
	_ = checklistCreateCmd.MarkFlagRequired("instrument")

	checklistListCmd.Flags().StringVar(&checklistFilterStudy, "study", "", "Filter by study ID")
	checklistListCmd.Flags().StringVar(&checklistFilterProject, "project", "", "Filter by project name or ID")
	checklistListCmd.Flags().StringVar(&checklistFilterInstrument, "instrument", "", "Filter by instrument")
	checklistListCmd.Flags().StringVar(&checklistFilterStatus, "status", "", "Filter by status")
	checklistListCmd.Flags().StringVar(&checklistFilterReviewer, "reviewer", "", "Filter by reviewer")

	checklistAnswerCmd.Flags().StringVar(&answerQuestion, "question", "", "Sub-question or signalling question id (required)")
	checklistAnswerCmd.Flags().StringVar(&answerResponse, "response", "", "The answer value (required)")
	checklistAnswerCmd.Flags().StringVar(&answerComment, "comment", "", "Free-text supporting note")
	_ = checklistAnswerCmd.MarkFlagRequired("question")
	_ = checklistAnswerCmd.MarkFlagRequired("response")

	checklistAnswersCmd.Flags().StringVar(&answersFile, "file", "", "YAML file of answers (required)")
	_ = checklistAnswersCmd.MarkFlagRequired("file")

	checklistJudgeCmd.Flags().StringVar(&judgeLevel, "judgement", "", "Risk level (e.g. low, moderate, serious, critical, some_concerns, high)")
	checklistJudgeCmd.Flags().StringVar(&judgeDirection, "direction", "", "Bias direction (optional)")
	checklistJudgeCmd.Flags().BoolVar(&judgeClear, "clear", false, "Clear the override and revert to the computed judgement")

	checklistCmd.AddCommand(checklistCreateCmd)
	checklistCmd.AddCommand(checklistListCmd)
	checklistCmd.AddCommand(checklistShowCmd)
	checklistCmd.AddCommand(checklistAnswerCmd)
	checklistCmd.AddCommand(checklistAnswersCmd)
	checklistCmd.AddCommand(checklistJudgeCmd)
	checklistCmd.AddCommand(checklistScoreCmd)
	rootCmd.AddCommand(checklistCmd)
}

func checklistCreateRun(studyID string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	st, err := s.GetStudy(ctx, studyID)
	if err != nil {
		return err
	}

	instrument := models.InstrumentType(checklistInstrument)
	c, err := catalog.NewChecklist(instrument, models.ChecklistMeta{
		StudyID:    st.ID,
		Name:       checklistName,
		Reviewer:   checklistReviewer,
		AssignedTo: checklistAssignTo,
	})
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would create %s checklist for study: %s", instrument, st.Title)
		return nil
	}

	if err := s.CreateChecklist(ctx, c); err != nil {
		return fmt.Errorf("create checklist: %w", err)
	}

	ui.Success("Created %s checklist: %s", instrument, output.Cyan(shortID(c.ID)))
	ui.VerboseLog("ID: %s", c.ID)
	return nil
}

func checklistListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.ChecklistListFilter{
		StudyID:    checklistFilterStudy,
		Instrument: models.InstrumentType(checklistFilterInstrument),
		Status:     models.ChecklistStatus(checklistFilterStatus),
		Reviewer:   checklistFilterReviewer,
	}
	if checklistFilterProject != "" {
		p, err := resolveProject(ctx, s, checklistFilterProject)
		if err != nil {
			return err
		}
		filter.ProjectID = p.ID
	}

	checklists, err := s.ListChecklists(ctx, filter)
	if err != nil {
		return err
	}

	if len(checklists) == 0 {
		ui.Info("No checklists found.")
		return nil
	}

	table := ui.Table([]string{"ID", "Study", "Instrument", "Reviewer", "Status", "Reconciled"})
	for _, c := range checklists {
		reconciled := ""
		if c.Reconciled() {
			reconciled = "yes"
		}
		table.Append([]string{
			shortID(c.ID),
			shortID(c.StudyID),
			string(c.Instrument),
			c.Reviewer,
			output.StatusColor(string(c.Status)),
			reconciled,
		})
	}
	return table.Render()
}

func checklistShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	c, err := findChecklist(ctx, s, id)
	if err != nil {
		return err
	}
	def, err := catalog.Definition(c.Instrument)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s checklist %s\n", def.Name, output.Cyan(shortID(c.ID)))
	if c.Reviewer != "" {
		fmt.Fprintf(ui.Out, "  Reviewer: %s\n", c.Reviewer)
	}
	fmt.Fprintf(ui.Out, "  Status: %s\n", output.StatusColor(string(c.Status)))
	if c.Reconciled() {
		shorts := make([]string, len(c.SourceChecklists))
		for i, src := range c.SourceChecklists {
			shorts[i] = shortID(src)
		}
		fmt.Fprintf(ui.Out, "  Reconciled from: %s\n", strings.Join(shorts, ", "))
	}
	fmt.Fprintln(ui.Out)

	if c.Instrument == models.InstrumentAmstar2 {
		return showAmstarForm(c, def)
	}
	return showDomainForm(c, def)
}

func showAmstarForm(c *models.Checklist, def *catalog.InstrumentDef) error {
	for _, itemDef := range def.Items {
		item := c.Amstar.Items[itemDef.ID]
		label := itemDef.ID
		if itemDef.Critical {
			label += " (critical)"
		}
		fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(label), itemDef.Label)
		for _, sq := range itemDef.SubQuestions {
			answer := item.Answers[sq.ID]
			fmt.Fprintf(ui.Out, "    %-6s %s\n", sq.ID, boolAnswerString(answer))
		}
		if item.Comment != "" {
			fmt.Fprintf(ui.Out, "    note: %s\n", item.Comment)
		}
	}
	return nil
}

func showDomainForm(c *models.Checklist, def *catalog.InstrumentDef) error {
	form := c.DomainForm()
	for _, domDef := range def.Domains {
		dom := form.Domains[domDef.ID]
		fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(domDef.ID), domDef.Label)
		for _, q := range domDef.Questions {
			sa := dom.Answers[q.ID]
			fmt.Fprintf(ui.Out, "    %-6s %s\n", q.ID, responseString(sa.Response))
			if sa.Comment != "" {
				fmt.Fprintf(ui.Out, "           note: %s\n", sa.Comment)
			}
		}
		fmt.Fprintf(ui.Out, "    judgement: %s\n", judgementString(dom.Judgement))
	}
	fmt.Fprintf(ui.Out, "\n%s %s\n", output.Cyan("overall"), judgementString(form.Overall))
	return nil
}

func checklistAnswerRun(id, unit string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	c, err := findChecklist(ctx, s, id)
	if err != nil {
		return err
	}

	switch c.Instrument {
	case models.InstrumentAmstar2:
		item, ok := c.Amstar.Items[unit]
		if !ok {
			return fmt.Errorf("unknown item: %s", unit)
		}
		if _, ok := item.Answers[answerQuestion]; !ok {
			return fmt.Errorf("unknown sub-question %s for item %s", answerQuestion, unit)
		}
		answer := models.BoolAnswer(answerResponse)
		if answer != models.BoolYes && answer != models.BoolNo {
			return fmt.Errorf("invalid answer %q: amstar2 sub-questions take yes or no", answerResponse)
		}
		item.Answers[answerQuestion] = answer
		if answerComment != "" {
			item.Comment = answerComment
		}
	case models.InstrumentRobinsI, models.InstrumentRob2:
		dom, ok := c.DomainForm().Domains[unit]
		if !ok {
			return fmt.Errorf("unknown domain: %s", unit)
		}
		if _, ok := dom.Answers[answerQuestion]; !ok {
			return fmt.Errorf("unknown signalling question %s for domain %s", answerQuestion, unit)
		}
		resp := models.Response(answerResponse)
		if !resp.Answered() || !resp.ValidFor(c.Instrument) {
			return fmt.Errorf("invalid response: %q", answerResponse)
		}
		dom.Answers[answerQuestion] = models.SignalAnswer{Response: resp, Comment: answerComment}
	default:
		return fmt.Errorf("unknown instrument: %s", c.Instrument)
	}

	if err := scoring.AdvanceStatus(c); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would record %s %s = %s", unit, answerQuestion, answerResponse)
		return nil
	}

	if err := s.UpdateChecklist(ctx, c); err != nil {
		return fmt.Errorf("update checklist: %w", err)
	}

	ui.Success("Recorded %s %s = %s", unit, answerQuestion, answerResponse)
	return nil
}

func checklistAnswersRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	c, err := findChecklist(ctx, s, id)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(answersFile)
	if err != nil {
		return fmt.Errorf("read answers: %w", err)
	}
	var answers map[string]map[string]string
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return fmt.Errorf("parse answers: %w", err)
	}

	applied, err := applyAnswers(c, answers)
	if err != nil {
		return err
	}
	if applied == 0 {
		ui.Info("No answers in %s.", answersFile)
		return nil
	}

	if err := scoring.AdvanceStatus(c); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would apply %d answers from %s", applied, answersFile)
		return nil
	}

	if err := s.UpdateChecklist(ctx, c); err != nil {
		return fmt.Errorf("update checklist: %w", err)
	}

	ui.Success("Applied %d answers to %s", applied, output.Cyan(shortID(c.ID)))
	return nil
}

// applyAnswers validates and applies a unit -> question -> value map to the
// checklist. Nothing is modified when any answer is invalid.
func applyAnswers(c *models.Checklist, answers map[string]map[string]string) (int, error) {
	if c.Instrument == models.InstrumentAmstar2 {
		for unit, qs := range answers {
			item, ok := c.Amstar.Items[unit]
			if !ok {
				return 0, fmt.Errorf("unknown item: %s", unit)
			}
			for q, v := range qs {
				if _, ok := item.Answers[q]; !ok {
					return 0, fmt.Errorf("unknown sub-question %s for item %s", q, unit)
				}
				if a := models.BoolAnswer(v); a != models.BoolYes && a != models.BoolNo {
					return 0, fmt.Errorf("invalid answer %q for %s %s: amstar2 sub-questions take yes or no", v, unit, q)
				}
			}
		}
		applied := 0
		for unit, qs := range answers {
			for q, v := range qs {
				c.Amstar.Items[unit].Answers[q] = models.BoolAnswer(v)
				applied++
			}
		}
		return applied, nil
	}

	form := c.DomainForm()
	for unit, qs := range answers {
		dom, ok := form.Domains[unit]
		if !ok {
			return 0, fmt.Errorf("unknown domain: %s", unit)
		}
		for q, v := range qs {
			if _, ok := dom.Answers[q]; !ok {
				return 0, fmt.Errorf("unknown signalling question %s for domain %s", q, unit)
			}
			resp := models.Response(v)
			if !resp.Answered() || !resp.ValidFor(c.Instrument) {
				return 0, fmt.Errorf("invalid response %q for %s %s", v, unit, q)
			}
		}
	}
	applied := 0
	for unit, qs := range answers {
		for q, v := range qs {
			form.Domains[unit].Answers[q] = models.SignalAnswer{Response: models.Response(v)}
			applied++
		}
	}
	return applied, nil
}

func checklistJudgeRun(id, domain string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	c, err := findChecklist(ctx, s, id)
	if err != nil {
		return err
	}
	form := c.DomainForm()
	if form == nil {
		return fmt.Errorf("%s checklists have no domain judgements", c.Instrument)
	}

	target := &form.Overall
	if domain != "overall" {
		dom, ok := form.Domains[domain]
		if !ok {
			return fmt.Errorf("unknown domain: %s (use a domain id or \"overall\")", domain)
		}
		target = &dom.Judgement
	}

	if judgeClear {
		target.Judgement = target.Auto
		target.Source = models.JudgementAuto
	} else {
		if judgeLevel == "" {
			return fmt.Errorf("--judgement is required unless --clear is given")
		}
		target.Judgement = models.RiskLevel(judgeLevel)
		target.Source = models.JudgementManual
		if judgeDirection != "" {
			target.Direction = models.Direction(judgeDirection)
		}
	}

	if dryRun {
		if judgeClear {
			ui.DryRunMsg("Would clear override on %s", domain)
		} else {
			ui.DryRunMsg("Would override %s judgement: %s", domain, judgeLevel)
		}
		return nil
	}

	if err := s.UpdateChecklist(ctx, c); err != nil {
		return fmt.Errorf("update checklist: %w", err)
	}

	if judgeClear {
		ui.Success("Cleared override on %s", domain)
	} else {
		ui.Success("Overrode %s judgement: %s", domain, output.JudgementColor(judgeLevel))
	}
	return nil
}

func checklistScoreRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	c, err := findChecklist(ctx, s, id)
	if err != nil {
		return err
	}

	res, err := scoring.Score(c)
	if err != nil {
		return err
	}

	if res.Amstar != nil {
		return renderAmstarResult(res)
	}
	return renderDomainResult(res)
}

func renderAmstarResult(res *scoring.Result) error {
	table := ui.Table([]string{"Item", "Rating", "Critical", "Weakness"})
	for _, item := range res.Amstar.Items {
		critical := ""
		if item.Critical {
			critical = "yes"
		}
		weakness := ""
		if item.Weakness {
			weakness = "yes"
		}
		table.Append([]string{item.ItemID, string(item.Rating), critical, weakness})
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(ui.Out)
	fmt.Fprintf(ui.Out, "Critical weaknesses: %d, non-critical: %d\n",
		res.Amstar.CriticalWeaknesses, res.Amstar.NonCriticalWeaknesses)
	fmt.Fprintf(ui.Out, "Overall rating: %s\n", output.RatingColor(string(res.Amstar.Rating)))
	return nil
}

func renderDomainResult(res *scoring.Result) error {
	table := ui.Table([]string{"Domain", "Judgement", "Source", "Rule"})
	for _, ds := range res.Domains {
		source := string(ds.Source)
		if ds.Source == models.JudgementManual {
			source = fmt.Sprintf("manual (auto: %s)", ds.Auto)
		}
		judgement := output.JudgementColor(string(ds.Judgement))
		if !ds.Complete {
			judgement = "incomplete"
		}
		table.Append([]string{ds.DomainID, judgement, source, ds.RuleID})
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(ui.Out)
	if !res.Complete {
		ui.Warning("Checklist is incomplete: overall judgement is provisional")
	}
	fmt.Fprintf(ui.Out, "Overall: %s\n", judgementString(res.Overall))
	return nil
}

// findChecklist finds a checklist by full ID or unique prefix.
func findChecklist(ctx context.Context, s store.Store, id string) (*models.Checklist, error) {
	if c, err := s.GetChecklist(ctx, id); err == nil {
		return c, nil
	}

	upper := strings.ToUpper(id)
	checklists, err := s.ListChecklists(ctx, store.ChecklistListFilter{})
	if err != nil {
		return nil, err
	}

	var matches []*models.Checklist
	for _, c := range checklists {
		if strings.HasPrefix(c.ID, upper) {
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("checklist not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous checklist ID %s: matches %d checklists", id, len(matches))
	}
}

func boolAnswerString(a models.BoolAnswer) string {
	if !a.Answered() {
		return "-"
	}
	return string(a)
}

func responseString(r models.Response) string {
	if !r.Answered() {
		return "-"
	}
	return string(r)
}

func judgementString(j models.DomainJudgement) string {
	effective := j.Effective()
	if effective == models.RiskUnset {
		return "(unset)"
	}
	s := output.JudgementColor(string(effective))
	if j.Source == models.JudgementManual {
		s += fmt.Sprintf(" [manual, auto: %s]", j.Auto)
	} else if j.RuleID != "" {
		s += fmt.Sprintf(" [%s]", j.RuleID)
	}
	return s
}
