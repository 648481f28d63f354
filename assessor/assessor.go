// Package assessor judges a medical record against every section of a policy
// and asks the model for an overall decision.
package assessor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/sweetpotato0/procedure-assess/advisor"
	"github.com/sweetpotato0/procedure-assess/criteria"
	"github.com/sweetpotato0/procedure-assess/pkg/logging"
	"github.com/sweetpotato0/procedure-assess/prompt"
	"github.com/sweetpotato0/procedure-assess/record"
	"github.com/sweetpotato0/procedure-assess/report"
	"github.com/sweetpotato0/procedure-assess/verdict"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TitleFinalAssessment heads the aggregate decision.
const TitleFinalAssessment = "Final Assessment"

// SectionResult is the reply for one policy section.
type SectionResult struct {
	Section criteria.Section
	Title   string
	Reply   string
	Verdict verdict.Verdict
}

// Result is the outcome of an assessment.
type Result struct {
	// Findings holds the final assessment followed by one entry per section.
	Findings report.Findings
	Sections []SectionResult
	Final    string
	Approved bool
}

// Assessor runs the per-section and final prompts.
type Assessor struct {
	advisor     *advisor.Advisor
	prompts     *prompt.Catalog
	concurrency int
	logger      *slog.Logger
}

// Option configures an Assessor.
type Option func(*Assessor)

// WithConcurrency bounds how many sections are assessed at once. Results
// are reported in section order regardless.
func WithConcurrency(n int) Option {
	return func(a *Assessor) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithLogger overrides the assessor logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assessor) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an assessor that asks adv.
func New(adv *advisor.Advisor, opts ...Option) *Assessor {
	a := &Assessor{
		advisor:     adv,
		prompts:     adv.Prompts(),
		concurrency: 1,
		logger:      logging.WithComponent("assessor"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SectionTitle is the finding title for a section: hyphens become spaces and
// each word is capitalised.
func SectionTitle(name string) string {
	title := cases.Title(language.English).String(strings.ReplaceAll(name, "-", " "))
	return fmt.Sprintf("Assessment for Criteria %q", title)
}

// RenderProfile formats the profile the way it is shown to the model.
func RenderProfile(p *record.PatientProfile) (string, error) {
	out, err := toml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("render profile: %w", err)
	}
	return string(out), nil
}

// Assess judges rec against every section of c. When profile is nil it is
// extracted from the record first. Approved is true only when the final
// reply decodes to [YES]; a final reply carrying neither marker is an
// *errors.AmbiguousVerdictError.
func (a *Assessor) Assess(ctx context.Context, c *criteria.Criteria, rec *record.MedicalRecord, profile *record.PatientProfile) (*Result, error) {
	if profile == nil {
		p, err := rec.ExtractPatientProfile(ctx)
		if err != nil {
			return nil, err
		}
		profile = p
	}
	rendered, err := RenderProfile(profile)
	if err != nil {
		return nil, err
	}
	a.logger.Info("assessing against criteria", "criteria", c.Name, "sections", len(c.Sections), "profile", rendered)

	sections, err := a.assessSections(ctx, c, rec, rendered)
	if err != nil {
		return nil, err
	}

	replies := make([]string, len(sections))
	for i, s := range sections {
		replies[i] = s.Reply
	}
	q, err := a.prompts.Render(prompt.FinalAssessment, map[string]any{
		"instructions": c.Description,
		"assessments":  strings.Join(replies, "\n"),
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("performing final assessment")
	final, err := a.advisor.Ask(ctx, advisor.Request{Question: q})
	if err != nil {
		return nil, fmt.Errorf("final assessment: %w", err)
	}
	a.logger.Info("final assessment", "reply", final)

	approved, err := verdict.DecodeDecision("final assessment", final)
	if err != nil {
		return nil, err
	}

	res := &Result{Sections: sections, Final: final, Approved: approved}
	res.Findings.Add(TitleFinalAssessment, final)
	for _, s := range sections {
		res.Findings.Add(s.Title, s.Reply)
	}
	return res, nil
}

func (a *Assessor) assessSections(ctx context.Context, c *criteria.Criteria, rec *record.MedicalRecord, profile string) ([]SectionResult, error) {
	results := make([]SectionResult, len(c.Sections))
	pages := rec.Pages()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, section := range c.Sections {
		g.Go(func() error {
			a.logger.Info("assessing criteria", "section", section.Name)
			q, err := a.prompts.Render(prompt.AssessIndividualCriteria, map[string]any{
				"profile":  profile,
				"criteria": section.Name + ":\n" + section.Criteria,
			})
			if err != nil {
				return err
			}
			reply, err := a.advisor.Ask(gctx, advisor.Request{Question: q, Context: pages})
			if err != nil {
				return fmt.Errorf("assess section %s: %w", section.Name, err)
			}
			v := verdict.Decode(reply)
			if v != verdict.Yes && v != verdict.No {
				a.logger.Warn("section reply has no verdict marker", "section", section.Name)
			}
			a.logger.Info("assessment response", "section", section.Name, "verdict", v.String())
			results[i] = SectionResult{
				Section: section,
				Title:   SectionTitle(section.Name),
				Reply:   reply,
				Verdict: v,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
