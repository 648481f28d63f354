package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweetpotato0/procedure-assess/advisor"
	"github.com/sweetpotato0/procedure-assess/agent/agenttest"
	"github.com/sweetpotato0/procedure-assess/assessor"
	"github.com/sweetpotato0/procedure-assess/criteria"
	"github.com/sweetpotato0/procedure-assess/document"
	errorskg "github.com/sweetpotato0/procedure-assess/errors"
	"github.com/sweetpotato0/procedure-assess/pkg/logging"
	"github.com/sweetpotato0/procedure-assess/record"
	"github.com/sweetpotato0/procedure-assess/search"
)

func init() {
	logging.SetLogger(logging.Discard())
}

const (
	keyFinal     = "Below are assessments of the patient against each section"
	keySection   = "The section of the policy is"
	keyDidItHelp = "improved their condition? Answer with the single word"
	keyEvidence  = "QUOTE THE RELEVANT EVIDENCE VERBATIM"
	keyMatch     = "The doctor's recommended treatment is"
	keyMeanings  = "Summarise what the CPT codes"
	keyCodes     = "A CPT code is a sequence of numbers"
	keyOrders    = "Summarise the treatment the doctor has recommended."
	keyTreatment = "Summarise the treatment the patient has received so far"
	keyProfile   = "Extract the patient's name and date of birth"
)

var testCriteria = &criteria.Criteria{
	Name:        "colonoscopy",
	Description: "A patient is eligible if they satisfy ANY SINGLE ONE OF THOSE SECTIONS.",
	Sections: []criteria.Section{
		{Name: "average-risk-screening", Criteria: "Aged 45 or older."},
		{Name: "diagnostic-evaluation", Criteria: "Has rectal bleeding."},
	},
}

var pages = []document.Page{
	{Number: 1, Content: "Jane Doe, DOB 06/16/1982. Presents with rectal bleeding."},
	{Number: 2, Content: "Plan: colonoscopy, CPT 45378."},
}

type script struct {
	helped string
	match  string
	final  string
}

func newClient(s script) *agenttest.Client {
	return agenttest.NewClient(
		agenttest.Rule{Contains: keyFinal, Reply: s.final},
		agenttest.Rule{Contains: "average-risk-screening:", Reply: "[NO] The patient is 42."},
		agenttest.Rule{Contains: "diagnostic-evaluation:", Reply: "[YES] Rectal bleeding is documented."},
		agenttest.Rule{Contains: keyDidItHelp, Reply: s.helped},
		agenttest.Rule{Contains: keyEvidence, Reply: `1. "Bleeding has stopped since starting fibre." Shows improvement.`},
		agenttest.Rule{Contains: keyMatch, Reply: s.match},
		agenttest.Rule{Contains: keyMeanings, Reply: "45378 is a diagnostic colonoscopy."},
		agenttest.Rule{Contains: keyCodes, Reply: "45378"},
		agenttest.Rule{Contains: keyOrders, Reply: "A diagnostic colonoscopy."},
		agenttest.Rule{Contains: keyTreatment, Reply: "Fibre supplements for three months."},
		agenttest.Rule{Contains: keyProfile, Reply: `{"name": "Jane Doe", "dob": "06/16/1982"}`},
	)
}

func newPipeline(client *agenttest.Client) (*Orchestrator, *record.MedicalRecord) {
	searcher := search.Func(func(context.Context, string) (string, error) {
		return "CPT 45378: Colonoscopy, flexible; diagnostic", nil
	})
	reader := advisor.New(client, advisor.WithSearcher(searcher))
	clock := func() time.Time { return time.Date(2024, time.June, 16, 12, 0, 0, 0, time.UTC) }
	rec := record.New(reader, pages, record.WithClock(clock))
	o := New(assessor.New(advisor.New(client)), WithRunID(func() string { return "run-1" }))
	return o, rec
}

func TestRunPipelineSkipsCriteriaWhenTreatmentHelped(t *testing.T) {
	client := newClient(script{helped: "YES", match: "The codes match the recommended colonoscopy.", final: "[YES] eligible"})
	o, rec := newPipeline(client)

	out, err := o.RunPipeline(context.Background(), testCriteria, rec)
	if err != nil {
		t.Fatalf("RunPipeline failed: %v", err)
	}

	if !strings.Contains(out, "should be continued") {
		t.Errorf("report must say treatment should be continued:\n%s", out)
	}
	for _, marker := range []string{"[YES]", "[NO]", "Final Assessment"} {
		if strings.Contains(out, marker) {
			t.Errorf("report must not contain %q:\n%s", marker, out)
		}
	}
	if n := client.CallsContaining(keySection); n != 0 {
		t.Errorf("expected no section assessments, got %d", n)
	}
	if n := client.CallsContaining(keyFinal); n != 0 {
		t.Errorf("expected no final assessment, got %d", n)
	}
	for _, want := range []string{
		"# Assessment of Recommended Procedure for Jane Doe",
		Intro,
		"## Decision: NOT RECOMMENDED",
		"Bleeding has stopped since starting fibre.",
		"## " + HeadingCodes,
		"45378",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in report:\n%s", want, out)
		}
	}
}

func TestRunApproved(t *testing.T) {
	client := newClient(script{helped: "NO", match: "The codes match the recommended colonoscopy.", final: "[YES] The diagnostic evaluation section is satisfied."})
	o, rec := newPipeline(client)

	out, err := o.Run(context.Background(), testCriteria, rec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Decision != Approved {
		t.Fatalf("expected approved, got %s", out.Decision)
	}
	if out.RunID != "run-1" {
		t.Errorf("unexpected run id %q", out.RunID)
	}
	if out.Profile == nil || out.Profile.Age != 42 {
		t.Fatalf("unexpected profile %+v", out.Profile)
	}
	if out.Assessment == nil || len(out.Assessment.Sections) != 2 {
		t.Fatalf("expected two assessed sections, got %+v", out.Assessment)
	}
	if client.CallsContaining(keyEvidence) != 0 {
		t.Error("evidence must only be gathered when treatment helped")
	}

	md := out.Markdown
	order := []string{
		"## Decision: APPROVED",
		"## " + HeadingAssessment,
		"### Final Assessment",
		`### Assessment for Criteria "Average Risk Screening"`,
		`### Assessment for Criteria "Diagnostic Evaluation"`,
		"## " + HeadingPriorTreatment,
		"## " + HeadingCodes,
		"## " + HeadingCriteria,
		"[diagnostic-evaluation]\nHas rectal bleeding.",
	}
	last := -1
	for _, want := range order {
		idx := strings.Index(md, want)
		if idx < 0 {
			t.Fatalf("expected %q in report:\n%s", want, md)
		}
		if idx < last {
			t.Fatalf("%q is out of order in report:\n%s", want, md)
		}
		last = idx
	}
	if strings.Contains(md, "**Warning:**") {
		t.Error("matching codes must not produce a warning")
	}
}

func TestRunDenied(t *testing.T) {
	client := newClient(script{helped: "NO", match: "[ERROR] 45378 is not an upper endoscopy.", final: "[NO] No section is satisfied."})
	o, rec := newPipeline(client)

	out, err := o.Run(context.Background(), testCriteria, rec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Decision != Denied {
		t.Fatalf("expected denied, got %s", out.Decision)
	}
	if out.Codes == nil || out.Codes.Match {
		t.Fatalf("expected a code mismatch, got %+v", out.Codes)
	}
	if !strings.Contains(out.Markdown, "## Decision: DENIED") {
		t.Errorf("missing denied stamp:\n%s", out.Markdown)
	}
	if !strings.Contains(out.Markdown, "**Warning:** the requested CPT codes (45378)") {
		t.Errorf("missing mismatch warning:\n%s", out.Markdown)
	}
}

func TestRunAbortsOnAmbiguousVerdict(t *testing.T) {
	tests := []struct {
		name   string
		script script
	}{
		{"prior treatment", script{helped: "Probably yes", match: "ok", final: "[YES] eligible"}},
		{"final assessment", script{helped: "NO", match: "ok", final: "Eligible, most likely."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, rec := newPipeline(newClient(tt.script))
			out, err := o.Run(context.Background(), testCriteria, rec)
			if !errors.Is(err, errorskg.ErrAmbiguousVerdict) {
				t.Fatalf("expected ambiguous verdict, got %v", err)
			}
			var ave *errorskg.AmbiguousVerdictError
			if !errors.As(err, &ave) {
				t.Fatalf("expected *AmbiguousVerdictError, got %T", err)
			}
			if out != nil {
				t.Fatal("no partial outcome may be returned")
			}
		})
	}
}

func TestRunPropagatesBackendErrors(t *testing.T) {
	boom := errors.New("backend down")
	client := agenttest.NewClient(agenttest.Rule{Contains: keyProfile, Reply: `{"name": "Jane Doe", "dob": "06/16/1982"}`},
		agenttest.Rule{Contains: keyTreatment, Err: boom})
	o, rec := newPipeline(client)

	if _, err := o.RunPipeline(context.Background(), testCriteria, rec); !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestRunRequiresInputs(t *testing.T) {
	o, rec := newPipeline(newClient(script{}))
	if _, err := o.Run(context.Background(), nil, rec); !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for nil criteria, got %v", err)
	}
	if _, err := o.Run(context.Background(), testCriteria, nil); !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for nil record, got %v", err)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o, rec := newPipeline(newClient(script{helped: "NO", match: "ok", final: "[YES] ok"}))
	if _, err := o.Run(ctx, testCriteria, rec); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
