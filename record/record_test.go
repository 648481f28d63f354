package record

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sweetpotato0/procedure-assess/advisor"
	"github.com/sweetpotato0/procedure-assess/agent/agenttest"
	"github.com/sweetpotato0/procedure-assess/document"
	errorskg "github.com/sweetpotato0/procedure-assess/errors"
	"github.com/sweetpotato0/procedure-assess/middleware/standard"
	"github.com/sweetpotato0/procedure-assess/pkg/logging"
	"github.com/sweetpotato0/procedure-assess/search"
)

func init() {
	logging.SetLogger(logging.Discard())
}

var recordPages = []document.Page{
	{Number: 1, Content: "Jane Doe, DOB 06/16/1982. Presents with rectal bleeding."},
	{Number: 2, Content: "Plan: colonoscopy, CPT 45378."},
}

const (
	keyOrders      = "Summarise the treatment the doctor has recommended."
	keyCodes       = "A CPT code is a sequence of numbers"
	keyMeanings    = "Summarise what the CPT codes"
	keyMatch       = "The doctor's recommended treatment is"
	keyTreatment   = "Summarise the treatment the patient has received so far"
	keyDidItHelp   = "improved their condition? Answer with the single word"
	keyEvidence    = "QUOTE THE RELEVANT EVIDENCE VERBATIM"
	keyProfile     = "Extract the patient's name and date of birth"
	treatmentNotes = "Fibre supplements for three months without improvement."
)

func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, 12, 0, 0, 0, time.UTC) }
}

func newRecord(client *agenttest.Client, searcher search.Searcher, opts ...Option) *MedicalRecord {
	var aopts []advisor.Option
	if searcher != nil {
		aopts = append(aopts, advisor.WithSearcher(searcher))
	}
	return New(advisor.New(client, aopts...), recordPages, opts...)
}

func TestExtractRequestedCPTCodes(t *testing.T) {
	client := agenttest.NewClient(agenttest.Rule{Contains: keyCodes, Reply: "45378"})
	codes, err := newRecord(client, nil).ExtractRequestedCPTCodes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if codes != "45378" {
		t.Fatalf("unexpected codes %q", codes)
	}
	if !strings.Contains(agenttest.Prompt(client.Requests[0]), "Plan: colonoscopy") {
		t.Fatal("codes must be extracted from the record pages")
	}
}

func TestExtractAndValidateCPTCodes(t *testing.T) {
	var query string
	searcher := search.Func(func(_ context.Context, q string) (string, error) {
		query = q
		return "CPT 45378: Colonoscopy, flexible; diagnostic", nil
	})

	tests := []struct {
		name      string
		match     string
		wantMatch bool
	}{
		{"codes agree", "The codes match the recommended colonoscopy.", true},
		{"mismatch flagged", "[ERROR] 45378 does not describe an upper endoscopy.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := agenttest.NewClient(
				agenttest.Rule{Contains: keyMatch, Reply: tt.match},
				agenttest.Rule{Contains: keyOrders, Reply: "A diagnostic colonoscopy."},
				agenttest.Rule{Contains: keyCodes, Reply: "45378"},
				agenttest.Rule{Contains: keyMeanings, Reply: "45378 is a diagnostic colonoscopy."},
			)
			got, err := newRecord(client, searcher).ExtractAndValidateCPTCodes(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			wantTitles := []string{TitleRecommendedTreatment, TitleCPTCodes, TitleCodeMeanings, TitleCodesMatch}
			if !reflect.DeepEqual(got.Findings.Titles(), wantTitles) {
				t.Fatalf("unexpected titles %v", got.Findings.Titles())
			}
			if got.Match != tt.wantMatch {
				t.Fatalf("Match = %v, want %v", got.Match, tt.wantMatch)
			}
			if got.Codes != "45378" {
				t.Fatalf("unexpected codes %q", got.Codes)
			}
			if query != "What procedures do the following CPT codes correspond to: 45378" {
				t.Fatalf("unexpected search query %q", query)
			}

			for _, req := range client.Requests {
				p := agenttest.Prompt(req)
				if !strings.Contains(p, keyMeanings) {
					continue
				}
				if !strings.Contains(p, "Colonoscopy, flexible; diagnostic") || strings.Contains(p, "rectal bleeding") {
					t.Fatalf("code meanings must be summarised from search results only:\n%s", p)
				}
			}
			for _, req := range client.Requests {
				p := agenttest.Prompt(req)
				if strings.Contains(p, keyMatch) && !strings.Contains(p, "A diagnostic colonoscopy.") {
					t.Fatalf("match prompt must carry the treatment summary:\n%s", p)
				}
			}
		})
	}
}

func TestExtractAndValidateWithoutSearcher(t *testing.T) {
	client := agenttest.NewClient(agenttest.Rule{Reply: "anything"})
	_, err := newRecord(client, nil).ExtractAndValidateCPTCodes(context.Background())
	if !errors.Is(err, errorskg.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestCheckForPreviousConservativeTreatment(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantHelped bool
		wantErr    bool
	}{
		{name: "yes", reply: "YES", wantHelped: true},
		{name: "yes with whitespace", reply: "\n YES \n", wantHelped: true},
		{name: "no", reply: "NO", wantHelped: false},
		{name: "lowercase", reply: "yes", wantErr: true},
		{name: "sentence", reply: "YES, the fibre helped.", wantErr: true},
		{name: "marker", reply: "[NO]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := agenttest.NewClient(
				agenttest.Rule{Contains: keyDidItHelp, Reply: tt.reply},
				agenttest.Rule{Contains: keyTreatment, Reply: treatmentNotes},
			)
			findings, helped, err := newRecord(client, nil).CheckForPreviousConservativeTreatment(context.Background())

			if tt.wantErr {
				var ambiguous *errorskg.AmbiguousVerdictError
				if !errors.As(err, &ambiguous) {
					t.Fatalf("expected AmbiguousVerdictError, got %v", err)
				}
				if client.CallsContaining(keyDidItHelp) != 1 {
					t.Fatal("ambiguous replies must not be retried")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if helped != tt.wantHelped {
				t.Fatalf("helped = %v, want %v", helped, tt.wantHelped)
			}
			if !reflect.DeepEqual(findings.Titles(), []string{TitleTreatmentToDate, TitleTreatmentHelped}) {
				t.Fatalf("unexpected titles %v", findings.Titles())
			}
		})
	}
}

func TestBlankVerdictThroughClientChain(t *testing.T) {
	client := agenttest.NewClient(
		agenttest.Rule{Contains: keyDidItHelp, Reply: "   "},
		agenttest.Rule{Contains: keyTreatment, Reply: treatmentNotes},
	)
	a := advisor.New(client, advisor.WithMiddleware(standard.Chain(nil, 0)))

	_, _, err := New(a, recordPages).CheckForPreviousConservativeTreatment(context.Background())
	var ambiguous *errorskg.AmbiguousVerdictError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected AmbiguousVerdictError, got %v", err)
	}
	if errors.Is(err, errorskg.ErrInvalidInput) {
		t.Fatalf("a blank verdict is not invalid input: %v", err)
	}
}

func TestDidAnythingHelpSeesOnlySummary(t *testing.T) {
	client := agenttest.NewClient(
		agenttest.Rule{Contains: keyDidItHelp, Reply: "NO"},
		agenttest.Rule{Contains: keyTreatment, Reply: treatmentNotes},
	)
	if _, _, err := newRecord(client, nil).CheckForPreviousConservativeTreatment(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, req := range client.Requests {
		p := agenttest.Prompt(req)
		if !strings.Contains(p, keyDidItHelp) {
			continue
		}
		if !strings.Contains(p, treatmentNotes) || strings.Contains(p, "rectal bleeding") {
			t.Fatalf("forced-choice question must use only the summary:\n%s", p)
		}
	}
}

func TestPresentEvidenceTreatmentHelped(t *testing.T) {
	client := agenttest.NewClient(agenttest.Rule{Contains: keyEvidence, Reply: "1. \"Bleeding resolved\""})
	got, err := newRecord(client, nil).PresentEvidenceTreatmentHelped(context.Background())
	if err != nil || got != "1. \"Bleeding resolved\"" {
		t.Fatalf("unexpected evidence %q (%v)", got, err)
	}
}

func TestExtractPatientProfileAge(t *testing.T) {
	tests := []struct {
		name    string
		clock   func() time.Time
		wantAge int
	}{
		{"on birthday", fixedClock(2024, time.June, 16), 42},
		{"day before birthday", fixedClock(2024, time.June, 15), 41},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := agenttest.NewClient(agenttest.Rule{
				Contains: keyProfile,
				Reply:    `{"name": "Jane Doe", "dob": "06/16/1982"}`,
			})
			p, err := newRecord(client, nil, WithClock(tt.clock)).ExtractPatientProfile(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := &PatientProfile{Name: "Jane Doe", DOB: "06/16/1982", Age: tt.wantAge}
			if !reflect.DeepEqual(p, want) {
				t.Fatalf("got %+v, want %+v", p, want)
			}
		})
	}
}

func TestExtractPatientProfileRetries(t *testing.T) {
	client := agenttest.NewClient(agenttest.Rule{
		Contains: keyProfile,
		Replies: []string{
			"Sorry, I cannot help with that.",
			`{"name": "Jane Doe", "dob": "sometime in June"}`,
			`{"name": "Jane Doe", "dob": "06/16/1982"}`,
		},
	})
	p, err := newRecord(client, nil, WithClock(fixedClock(2024, time.June, 16))).ExtractPatientProfile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Age != 42 {
		t.Fatalf("unexpected age %d", p.Age)
	}
	if client.Calls() != 3 {
		t.Fatalf("expected 3 attempts, got %d", client.Calls())
	}
}

func TestExtractPatientProfileGivesUp(t *testing.T) {
	client := agenttest.NewClient(agenttest.Rule{Contains: keyProfile, Reply: "not json"})
	_, err := newRecord(client, nil, WithProfileAttempts(2)).ExtractPatientProfile(context.Background())
	if !errors.Is(err, errorskg.ErrSchemaValidation) {
		t.Fatalf("expected schema validation error, got %v", err)
	}
	if client.Calls() != 2 {
		t.Fatalf("expected 2 attempts, got %d", client.Calls())
	}
}

func TestExtractPatientProfileRejectsFutureDOB(t *testing.T) {
	client := agenttest.NewClient(agenttest.Rule{Contains: keyProfile, Reply: `{"name": "Jane Doe", "dob": "01/01/2030"}`})
	_, err := newRecord(client, nil, WithClock(fixedClock(2024, time.June, 16))).ExtractPatientProfile(context.Background())
	if !errors.Is(err, errorskg.ErrSchemaValidation) {
		t.Fatalf("expected schema validation error, got %v", err)
	}
	if client.Calls() != DefaultProfileAttempts {
		t.Fatalf("expected %d attempts, got %d", DefaultProfileAttempts, client.Calls())
	}
}

func TestParseDOB(t *testing.T) {
	want := time.Date(1982, time.June, 16, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"06/16/1982", "6/16/1982", "1982-06-16", "June 16, 1982", "Jun 16, 1982", " 06/16/1982 "} {
		got, err := ParseDOB(in)
		if err != nil {
			t.Errorf("ParseDOB(%q) failed: %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDOB(%q) = %v", in, got)
		}
	}
	if _, err := ParseDOB("16th of June"); err == nil {
		t.Fatal("expected parse failure")
	}
}

func TestAgeAt(t *testing.T) {
	dob := time.Date(2000, time.February, 29, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2001, time.February, 28, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2001, time.March, 1, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), 24},
		{time.Date(2000, time.February, 29, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		if got := AgeAt(dob, tt.now); got != tt.want {
			t.Errorf("AgeAt(%v) = %d, want %d", tt.now, got, tt.want)
		}
	}
}

func TestFromPDFMissingFile(t *testing.T) {
	_, err := FromPDF(context.Background(), advisor.New(agenttest.Echo()), "/nonexistent/record.pdf")
	if !errors.Is(err, errorskg.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPagesAreCopied(t *testing.T) {
	r := newRecord(agenttest.Echo(), nil)
	p := r.Pages()
	p[0].Content = "changed"
	if r.Pages()[0].Content == "changed" {
		t.Fatal("Pages must return a copy")
	}
}
