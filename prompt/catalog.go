package prompt

// Version of the wording shipped by DefaultCatalog.
const Version = "2024.06"

// Template names.
const (
	BasicNoContext           = "basic_no_context"
	BasicContext             = "basic_context"
	ContextAndSearch         = "context_and_search"
	JSONExtraction           = "json_extraction"
	AskForCPTCodes           = "ask_for_cpt_codes"
	CPTWebSearch             = "cpt_web_search"
	SummariseDoctorsOrders   = "summarise_doctors_orders"
	SummariseCodeMeanings    = "summarise_code_meanings"
	DetermineMatch           = "determine_match"
	SummaryOfTreatmentSoFar  = "summary_of_treatment_so_far"
	YesNoDidAnythingHelp     = "yes_no_did_anything_help"
	EvidenceTreatmentHelped  = "evidence_treatment_helped"
	ExtractPatientProfile    = "extract_patient_profile"
	AssessIndividualCriteria = "assess_individual_criteria"
	FinalAssessment          = "final_assessment"
)

var defaultTemplates = map[string]string{
	BasicNoContext: `Provide an appropriate, concise answer to the user's question.

Question: {{.question}}
`,

	BasicContext: `Answer the question based only on the provided context and nothing else.

<context>
{{.context}}
</context>

Question: {{.question}}
`,

	ContextAndSearch: `Read the context and the search results, then answer the question:

<context>
{{.context}}
</context>

<search-results>
{{.search_results}}
</search-results>

Question: {{.question}}
`,

	JSONExtraction: `{{.prompt}}

{{.format_instructions}}
{{- if .context}}

<context>
{{.context}}
</context>
{{- end}}
`,

	AskForCPTCodes: "A CPT code is a sequence of numbers indicating medical procedures. " +
		"What are the CPT codes for the procedures which the doctor has requested? " +
		"DO NOT INCLUDE CODES FROM PREVIOUS TREATMENTS " +
		"Give JUST THE CODES in your answer and no other text at all",

	CPTWebSearch: "What procedures do the following CPT codes correspond to: {{.codes}}",

	SummariseDoctorsOrders: "Summarise the treatment the doctor has recommended.",

	SummariseCodeMeanings: "Summarise what the CPT codes {{.codes}} mean based on the context.",

	DetermineMatch: "The doctor's recommended treatment is {{.summary}}. The medical record requests " +
		"procedures {{.codes}}, and the meaning of these codes is {{.code_meaning}}. " +
		"Does the meaning of the codes match the doctor's recommended treatment, " +
		"or has there been a mistake? Show your reasoning. If there has been a mistake," +
		` start your response with the indicator "[ERROR]"`,

	SummaryOfTreatmentSoFar: "Summarise the treatment the patient has received so far for the condition " +
		"that the doctor is now recommending a procedure for. Include conservative treatment such as " +
		"medication or changes in diet, and state whether each treatment improved the patient's condition.",

	YesNoDidAnythingHelp: "Based on the context, has any of the treatment the patient received so far " +
		"improved their condition? Answer with the single word YES or the single word NO. " +
		"Do not include any other text.",

	EvidenceTreatmentHelped: "Please extract evidence which shows that there has been an improvement in the " +
		"patient's condition, especially as the result of any treatment. QUOTE THE RELEVANT EVIDENCE VERBATIM. " +
		"Present each piece of evidence in a numbered list. Each item should contain THE VERBATIM QUOTE FROM " +
		"THE CONTEXT and an explanation of why this constitutes evidence that the patient's condition improved.",

	ExtractPatientProfile: "Extract the patient's name and date of birth in JSON format.",

	AssessIndividualCriteria: `You are assessing a patient's medical record against one section of a policy for approving a medical procedure.

The patient's profile is:
{{.profile}}

The section of the policy is:
{{.criteria}}

Using only the medical record provided as context, decide whether the patient satisfies this section of the policy.
Start your response with "[YES]" if the patient satisfies it or "[NO]" if they do not, then explain your reasoning with reference to the record.`,

	FinalAssessment: `{{.instructions}}

Below are assessments of the patient against each section of the criteria:

{{.assessments}}

Using these assessments, decide whether the patient is eligible for the procedure.
Start your response with "[YES]" if they are eligible or "[NO]" if they are not, then justify your decision.`,
}

// DefaultCatalog returns a fresh catalog holding the standard pipeline prompts.
// Callers may Override entries without affecting other catalogs.
func DefaultCatalog() *Catalog {
	c := NewCatalog(Version)
	for name, content := range defaultTemplates {
		if err := c.RegisterString(name, content); err != nil {
			panic(err)
		}
	}
	return c
}
