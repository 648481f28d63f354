package orchestrator

import "github.com/sweetpotato0/procedure-assess/report"

// Report section headings.
const (
	HeadingPriorTreatment = "Previous Conservative Treatment"
	HeadingEvidence       = "Evidence That Treatment Helped"
	HeadingAssessment     = "Assessment Against Criteria"
	HeadingCodes          = "Recommended Procedure and CPT Codes"
	HeadingCriteria       = "Criteria Used For Assessment"
)

// render assembles the report for a finished run. Sections appear in a fixed
// order; the criteria assessment only when previous treatment did not help.
func render(st *runState) string {
	b := report.NewBuilder()
	b.Heading(1, "Assessment of Recommended Procedure for "+st.profile.Name)
	b.Paragraph(Intro)
	b.Paragraphf("Patient age: %d", st.profile.Age)

	decision := decisionFor(st)
	b.Heading(2, "Decision: "+string(decision))

	if st.helped {
		b.Paragraphf("Previous conservative treatment has helped the patient and should be continued. "+
			"The recommended procedure is not recommended at this time, so it was not assessed against the %s criteria.",
			st.criteria.Name)
		b.Heading(2, HeadingPriorTreatment)
		b.Findings(3, st.treatment)
		b.Heading(2, HeadingEvidence)
		b.Paragraph(st.evidence)
		writeCodes(b, st)
		return b.String()
	}

	if decision == Approved {
		b.Paragraphf("The record meets the %s criteria for the recommended procedure.", st.criteria.Name)
	} else {
		b.Paragraphf("The record does not meet the %s criteria for the recommended procedure.", st.criteria.Name)
	}
	b.Heading(2, HeadingAssessment)
	b.Findings(3, st.result.Findings)
	b.Heading(2, HeadingPriorTreatment)
	b.Findings(3, st.treatment)
	writeCodes(b, st)
	b.Heading(2, HeadingCriteria)
	b.CodeBlock("", st.criteria.Text())
	return b.String()
}

func writeCodes(b *report.Builder, st *runState) {
	b.Heading(2, HeadingCodes)
	if st.codes == nil {
		return
	}
	if !st.codes.Match {
		b.Paragraphf("**Warning:** the requested CPT codes (%s) do not match the recommended treatment.", st.codes.Codes)
	}
	b.Findings(3, st.codes.Findings)
}
