// Package record exposes the questions the pipeline asks of a medical record.
package record

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sweetpotato0/procedure-assess/advisor"
	pdfloader "github.com/sweetpotato0/procedure-assess/contrib/loader/pdf"
	"github.com/sweetpotato0/procedure-assess/document"
	errorskg "github.com/sweetpotato0/procedure-assess/errors"
	"github.com/sweetpotato0/procedure-assess/interpreter"
	"github.com/sweetpotato0/procedure-assess/pkg/logging"
	"github.com/sweetpotato0/procedure-assess/prompt"
	"github.com/sweetpotato0/procedure-assess/report"
	"github.com/sweetpotato0/procedure-assess/retry"
	"github.com/sweetpotato0/procedure-assess/verdict"
)

// Finding titles.
const (
	TitleRecommendedTreatment = "Summary of Recommended Treatment"
	TitleCPTCodes             = "Extracted CPT Codes"
	TitleCodeMeanings         = "Search Results For Code Meanings"
	TitleCodesMatch           = "Codes Match Suggested Treatment"
	TitleTreatmentToDate      = "Summary of Treatment Received To Date"
	TitleTreatmentHelped      = "Has Any Previous Treatment Helped the Patient?"
)

// DefaultProfileAttempts bounds profile extraction attempts.
const DefaultProfileAttempts = 3

// MedicalRecord is a loaded record. It is read-only after construction.
type MedicalRecord struct {
	pages           []document.Page
	reader          *interpreter.Interpreter
	prompts         *prompt.Catalog
	now             func() time.Time
	profileAttempts int
	logger          *slog.Logger
}

// Option configures a MedicalRecord.
type Option func(*MedicalRecord)

// WithClock sets the clock used to compute the patient's age.
func WithClock(now func() time.Time) Option {
	return func(r *MedicalRecord) {
		if now != nil {
			r.now = now
		}
	}
}

// WithProfileAttempts sets how many times profile extraction is tried.
func WithProfileAttempts(n int) Option {
	return func(r *MedicalRecord) {
		if n > 0 {
			r.profileAttempts = n
		}
	}
}

// WithLogger overrides the record logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *MedicalRecord) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a record over pages. The advisor's prompt catalog is used for
// every question.
func New(a *advisor.Advisor, pages []document.Page, opts ...Option) *MedicalRecord {
	r := &MedicalRecord{
		pages:           document.Clone(pages),
		reader:          interpreter.New(a, pages),
		prompts:         a.Prompts(),
		now:             time.Now,
		profileAttempts: DefaultProfileAttempts,
		logger:          logging.WithComponent("medical_record"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FromPDF loads path and creates a record over its pages.
func FromPDF(ctx context.Context, a *advisor.Advisor, path string, opts ...Option) (*MedicalRecord, error) {
	pages, err := pdfloader.New().Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return New(a, pages, opts...), nil
}

// Pages returns a copy of the record's pages.
func (r *MedicalRecord) Pages() []document.Page {
	return document.Clone(r.pages)
}

func (r *MedicalRecord) render(name string, vars map[string]any) (string, error) {
	return r.prompts.Render(name, vars)
}

// ExtractRequestedCPTCodes asks which procedure codes the doctor requested.
func (r *MedicalRecord) ExtractRequestedCPTCodes(ctx context.Context) (string, error) {
	q, err := r.render(prompt.AskForCPTCodes, nil)
	if err != nil {
		return "", err
	}
	return r.reader.Ask(ctx, q)
}

// CodeValidation is the outcome of checking requested codes against the
// recommended treatment.
type CodeValidation struct {
	Findings report.Findings
	Codes    string
	// Match is false when the model flagged a mismatch with [ERROR].
	Match bool
}

// ExtractAndValidateCPTCodes summarises the recommended treatment, extracts
// the requested codes, looks up what they mean and asks whether the two agree.
// Each step feeds the raw output of the previous one; none is retried.
func (r *MedicalRecord) ExtractAndValidateCPTCodes(ctx context.Context) (*CodeValidation, error) {
	var findings report.Findings

	q, err := r.render(prompt.SummariseDoctorsOrders, nil)
	if err != nil {
		return nil, err
	}
	summary, err := r.reader.Ask(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("summarise recommended treatment: %w", err)
	}
	findings.Add(TitleRecommendedTreatment, summary)
	r.logger.Info("summarised recommended treatment", "summary", summary)

	codes, err := r.ExtractRequestedCPTCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract CPT codes: %w", err)
	}
	findings.Add(TitleCPTCodes, codes)
	r.logger.Info("extracted CPT codes", "codes", codes)

	query, err := r.render(prompt.CPTWebSearch, map[string]any{"codes": codes})
	if err != nil {
		return nil, err
	}
	results, err := r.reader.WebSearch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("look up CPT codes: %w", err)
	}
	q, err = r.render(prompt.SummariseCodeMeanings, map[string]any{"codes": codes})
	if err != nil {
		return nil, err
	}
	meaning, err := r.reader.AskWithSearch(ctx, q, results)
	if err != nil {
		return nil, fmt.Errorf("summarise code meanings: %w", err)
	}
	findings.Add(TitleCodeMeanings, meaning)
	r.logger.Info("summarised code meanings", "meaning", meaning)

	q, err = r.render(prompt.DetermineMatch, map[string]any{
		"summary":      summary,
		"codes":        codes,
		"code_meaning": meaning,
	})
	if err != nil {
		return nil, err
	}
	match, err := r.reader.Ask(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("compare codes with treatment: %w", err)
	}
	findings.Add(TitleCodesMatch, match)
	r.logger.Info("compared codes with recommended treatment", "reply", match)

	return &CodeValidation{
		Findings: findings,
		Codes:    codes,
		Match:    !verdict.IsMismatch(match),
	}, nil
}

// CheckForPreviousConservativeTreatment summarises treatment to date, then
// asks whether any of it helped, using only that summary as context. The
// reply must be exactly YES or NO; anything else is an
// *errors.AmbiguousVerdictError.
func (r *MedicalRecord) CheckForPreviousConservativeTreatment(ctx context.Context) (report.Findings, bool, error) {
	var findings report.Findings

	q, err := r.render(prompt.SummaryOfTreatmentSoFar, nil)
	if err != nil {
		return nil, false, err
	}
	summary, err := r.reader.Ask(ctx, q)
	if err != nil {
		return nil, false, fmt.Errorf("summarise treatment to date: %w", err)
	}
	findings.Add(TitleTreatmentToDate, summary)
	r.logger.Info("summarised treatment to date", "summary", summary)

	q, err = r.render(prompt.YesNoDidAnythingHelp, nil)
	if err != nil {
		return nil, false, err
	}
	confirmation, err := r.reader.AskAbout(ctx, q, interpreter.SyntheticPage(summary))
	if err != nil {
		return nil, false, fmt.Errorf("ask whether treatment helped: %w", err)
	}
	findings.Add(TitleTreatmentHelped, confirmation)
	r.logger.Info("did previous treatment help", "reply", confirmation)

	helped, err := verdict.DecodeLiteral("previous conservative treatment", confirmation)
	if err != nil {
		return findings, false, err
	}
	return findings, helped, nil
}

// PresentEvidenceTreatmentHelped quotes the passages showing improvement.
func (r *MedicalRecord) PresentEvidenceTreatmentHelped(ctx context.Context) (string, error) {
	q, err := r.render(prompt.EvidenceTreatmentHelped, nil)
	if err != nil {
		return "", err
	}
	return r.reader.Ask(ctx, q)
}

// ExtractPatientProfile extracts name and date of birth and computes the age
// at the record's clock. Malformed output is retried.
func (r *MedicalRecord) ExtractPatientProfile(ctx context.Context) (*PatientProfile, error) {
	schema, err := advisor.SchemaFor[profileFields]()
	if err != nil {
		return nil, err
	}
	q, err := r.render(prompt.ExtractPatientProfile, nil)
	if err != nil {
		return nil, err
	}

	profile, err := retry.WithRetry(ctx, r.profileAttempts, func(ctx context.Context) (*PatientProfile, error) {
		var fields profileFields
		if err := r.reader.ExtractJSON(ctx, q, schema, &fields); err != nil {
			return nil, err
		}
		return r.toProfile(fields)
	})
	if err != nil {
		return nil, fmt.Errorf("extract patient profile: %w", err)
	}
	r.logger.Info("extracted patient profile", "name", profile.Name, "age", profile.Age)
	return profile, nil
}

func (r *MedicalRecord) toProfile(f profileFields) (*PatientProfile, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, &errorskg.SchemaValidationError{Raw: f.Name, Err: fmt.Errorf("patient name is empty")}
	}
	dob, err := ParseDOB(f.DOB)
	if err != nil {
		return nil, &errorskg.SchemaValidationError{Raw: f.DOB, Err: err}
	}
	age := AgeAt(dob, r.now())
	if age < 0 {
		return nil, &errorskg.SchemaValidationError{Raw: f.DOB, Err: fmt.Errorf("date of birth is in the future")}
	}
	return &PatientProfile{Name: name, DOB: strings.TrimSpace(f.DOB), Age: age}, nil
}
