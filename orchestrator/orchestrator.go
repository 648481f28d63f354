// Package orchestrator runs the assessment pipeline as a small state machine
// and assembles the Markdown report.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sweetpotato0/procedure-assess/assessor"
	"github.com/sweetpotato0/procedure-assess/criteria"
	errorskg "github.com/sweetpotato0/procedure-assess/errors"
	"github.com/sweetpotato0/procedure-assess/graph"
	"github.com/sweetpotato0/procedure-assess/pkg/logging"
	"github.com/sweetpotato0/procedure-assess/pkg/telemetry"
	"github.com/sweetpotato0/procedure-assess/record"
	"github.com/sweetpotato0/procedure-assess/report"
	"go.opentelemetry.io/otel/attribute"
)

// Intro opens every report.
const Intro = "This document summarises whether the treatment recommended by the doctor" +
	" meets the criteria for that assessment."

// Decision is the outcome stamped on a report.
type Decision string

const (
	Approved             Decision = "APPROVED"
	Denied               Decision = "DENIED"
	ContinueConservative Decision = "NOT RECOMMENDED"
)

// Node names.
const (
	NodeStart          = "start"
	NodeProfile        = "profile"
	NodePriorTreatment = "prior_treatment"
	NodeTreatmentGate  = "treatment_gate"
	NodeEvidence       = "evidence"
	NodeAssessCriteria = "assess_criteria"
	NodeCodeValidation = "code_validation"
	NodeReport         = "report"
)

const (
	branchHelped    = "helped"
	branchNotHelped = "not_helped"
	stateKey        = "run"
)

// Outcome is the result of one pipeline run.
type Outcome struct {
	RunID    string
	Markdown string
	Profile  *record.PatientProfile
	Decision Decision
	// Assessment is nil when previous treatment helped and the criteria were
	// not assessed.
	Assessment *assessor.Result
	Codes      *record.CodeValidation
}

// runState is carried between graph nodes.
type runState struct {
	id        string
	criteria  *criteria.Criteria
	record    *record.MedicalRecord
	profile   *record.PatientProfile
	treatment report.Findings
	helped    bool
	evidence  string
	result    *assessor.Result
	codes     *record.CodeValidation
	markdown  string
}

// Orchestrator runs assessments.
type Orchestrator struct {
	assessor  *assessor.Assessor
	logger    *slog.Logger
	newID     func() string
	maxVisits int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger overrides the orchestrator logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRunID overrides how run identifiers are generated.
func WithRunID(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// New creates an orchestrator that judges records with a.
func New(a *assessor.Assessor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		assessor:  a,
		logger:    logging.WithComponent("orchestrator"),
		newID:     uuid.NewString,
		maxVisits: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunPipeline runs the assessment and returns the Markdown report.
func (o *Orchestrator) RunPipeline(ctx context.Context, c *criteria.Criteria, rec *record.MedicalRecord) (string, error) {
	out, err := o.Run(ctx, c, rec)
	if err != nil {
		return "", err
	}
	return out.Markdown, nil
}

// Run assesses rec against c. Any failing step aborts the run; no partial
// report is produced.
func (o *Orchestrator) Run(ctx context.Context, c *criteria.Criteria, rec *record.MedicalRecord) (out *Outcome, err error) {
	if c == nil || rec == nil {
		return nil, fmt.Errorf("%w: criteria and record are required", errorskg.ErrInvalidInput)
	}

	st := &runState{id: o.newID(), criteria: c, record: rec}
	logger := o.logger.With("run_id", st.id, "criteria", c.Name)

	ctx, span := telemetry.Start(ctx, "assess.run",
		attribute.String("run.id", st.id),
		attribute.String("criteria", c.Name),
	)
	defer func() { telemetry.End(span, err) }()

	logger.Info("assessment started")
	started := time.Now()

	g := o.build(logger)
	if _, err := g.Execute(ctx, graph.State{stateKey: st}); err != nil {
		logger.Error("assessment failed", "error", err)
		return nil, err
	}

	out = &Outcome{
		RunID:      st.id,
		Markdown:   st.markdown,
		Profile:    st.profile,
		Decision:   decisionFor(st),
		Assessment: st.result,
		Codes:      st.codes,
	}
	span.SetAttributes(attribute.String("decision", string(out.Decision)))
	logger.Info("assessment finished", "decision", out.Decision, "duration", time.Since(started))
	return out, nil
}

func (o *Orchestrator) build(logger *slog.Logger) *graph.Graph {
	return graph.NewBuilder().
		AddNode(NodeStart, graph.NodeTypeStart, step(func(context.Context, *runState) error { return nil })).
		AddNode(NodeProfile, graph.NodeTypeStep, step(o.extractProfile)).
		AddNode(NodePriorTreatment, graph.NodeTypeStep, step(o.checkPriorTreatment)).
		AddConditionNode(NodeTreatmentGate, treatmentGate, map[string]string{
			branchHelped:    NodeEvidence,
			branchNotHelped: NodeAssessCriteria,
		}).
		AddNode(NodeEvidence, graph.NodeTypeStep, step(o.presentEvidence)).
		AddNode(NodeAssessCriteria, graph.NodeTypeStep, step(o.assessCriteria)).
		AddNode(NodeCodeValidation, graph.NodeTypeStep, step(o.validateCodes)).
		AddNode(NodeReport, graph.NodeTypeEnd, step(o.writeReport)).
		AddEdge(NodeStart, NodeProfile).
		AddEdge(NodeProfile, NodePriorTreatment).
		AddEdge(NodePriorTreatment, NodeTreatmentGate).
		AddEdge(NodeEvidence, NodeCodeValidation).
		AddEdge(NodeAssessCriteria, NodeCodeValidation).
		AddEdge(NodeCodeValidation, NodeReport).
		SetMaxVisits(o.maxVisits).
		WithInterceptor(traceNodes(logger)).
		Build()
}

// traceNodes opens a span around every node and logs its duration.
func traceNodes(logger *slog.Logger) graph.Interceptor {
	return func(ctx context.Context, node *graph.Node, run func(context.Context) error) error {
		ctx, span := telemetry.Start(ctx, "assess."+node.Name,
			attribute.String("node.type", string(node.Type)),
		)
		started := time.Now()
		logger.Debug("entering step", "step", node.Name)

		err := run(ctx)
		telemetry.End(span, err)
		if err != nil {
			logger.Error("step failed", "step", node.Name, "error", err)
			return err
		}
		logger.Info("step completed", "step", node.Name, "duration", time.Since(started))
		return nil
	}
}

func step(fn func(context.Context, *runState) error) graph.NodeFunc {
	return func(ctx context.Context, s graph.State) (graph.State, error) {
		st, err := stateOf(s)
		if err != nil {
			return nil, err
		}
		return s, fn(ctx, st)
	}
}

func stateOf(s graph.State) (*runState, error) {
	st, ok := s[stateKey].(*runState)
	if !ok {
		return nil, fmt.Errorf("graph state has no run")
	}
	return st, nil
}

func treatmentGate(_ context.Context, s graph.State) (string, error) {
	st, err := stateOf(s)
	if err != nil {
		return "", err
	}
	if st.helped {
		return branchHelped, nil
	}
	return branchNotHelped, nil
}

func (o *Orchestrator) extractProfile(ctx context.Context, st *runState) error {
	p, err := st.record.ExtractPatientProfile(ctx)
	if err != nil {
		return err
	}
	st.profile = p
	return nil
}

func (o *Orchestrator) checkPriorTreatment(ctx context.Context, st *runState) error {
	findings, helped, err := st.record.CheckForPreviousConservativeTreatment(ctx)
	if err != nil {
		return err
	}
	st.treatment = findings
	st.helped = helped
	return nil
}

func (o *Orchestrator) presentEvidence(ctx context.Context, st *runState) error {
	evidence, err := st.record.PresentEvidenceTreatmentHelped(ctx)
	if err != nil {
		return fmt.Errorf("present evidence: %w", err)
	}
	st.evidence = evidence
	return nil
}

func (o *Orchestrator) assessCriteria(ctx context.Context, st *runState) error {
	res, err := o.assessor.Assess(ctx, st.criteria, st.record, st.profile)
	if err != nil {
		return err
	}
	st.result = res
	return nil
}

func (o *Orchestrator) validateCodes(ctx context.Context, st *runState) error {
	codes, err := st.record.ExtractAndValidateCPTCodes(ctx)
	if err != nil {
		return err
	}
	st.codes = codes
	return nil
}

func (o *Orchestrator) writeReport(_ context.Context, st *runState) error {
	st.markdown = render(st)
	return nil
}

func decisionFor(st *runState) Decision {
	switch {
	case st.helped:
		return ContinueConservative
	case st.result != nil && st.result.Approved:
		return Approved
	default:
		return Denied
	}
}
