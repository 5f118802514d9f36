package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/clinicopilot/server/domain/entities"
	"github.com/clinicopilot/server/domain/repositories"
)

// Models lose coherence on very long inputs, so generation input is capped.
const maxTranscriptChars = 24000

const treatmentSystemPrompt = `You are an AI Medical Scribe. Your primary function is to process a conversation transcript between a clinician and a patient and transform it into a structured, concise, and accurate medical note.

You must adhere strictly to:
- The provided HTML template (TEMPLATE_HTML).
- The core rules and formatting rules below.

CORE RULES (Crucial Constraints):
1. Accuracy: The note must be entirely accurate and based exclusively on information present in the transcript.
2. Precision Over Brevity: Capture specific, quantitative, and nuanced details. Do not generalize or omit important data.
3. Data Extraction & Interpretation: Meticulously extract and structure clinical data. Interpret conversational descriptions of physical tests to identify them by their clinical name and record their specific results.
4. Holistic Context: Identify and document functional goals, psychosocial factors, and personal context.
5. No Fabrication: Do not add, infer, or fabricate any information not explicitly stated in the conversation.
6. No Repetition: Do not repeat the same piece of information in different sections.
7. No Recommendations: Do not make any medical recommendations or suggestions.
8. Use Abbreviations: Use standard medical abbreviations where appropriate (e.g., "c/o", "s/p", "HPI").
9. Transcript Order & Corrections: The transcript is chronological. If later statements correct earlier ones (e.g., "right leg" then "actually left leg"), ALWAYS treat the later statement as the true and final version and override the earlier detail.

TEMPLATE & HTML CONSTRAINTS:
- Follow TEMPLATE_HTML exactly for structure and section ordering.
- Preserve intended <br> tags and layout where present.
- Do NOT add new structural sections that do not exist in TEMPLATE_HTML.
- The final output must be RAW HTML only (no <html> or <body> tags).
- Use <b> tags ONLY for section headers and labels (e.g., "Subjective", "CC:", "HPI:").
- Narrative text must NOT be bold.
- Every narrative line should be inside <p>...</p>.
- Do NOT include any instructional or placeholder text from the template itself.
- Do NOT output code fences or explanations, only the final HTML.`

const letterSystemPrompt = `You are an AI assistant that writes professional, medically accurate referral letters strictly from a consultation transcript.

- Use only information present in the transcript (no inference or fabrication).
- The final output must be RAW HTML (no <html> or <body> tags).
- Use <b> for headings, and <br> only where intentional line breaks are needed.
- Do not add bullets or extra headings beyond the provided template.
- Do not output code fences or explanations, only the final HTML.
- The transcript is chronological: when there is a correction later in the conversation (e.g., side of the body or other details are revised), ALWAYS treat the later statement as authoritative and override earlier conflicting information.`

const summarySystemPrompt = `You are an AI assistant that writes clear, friendly After-Visit Summaries for patients.

- Use only information present in the transcript (no inference or fabrication).
- The final output must be RAW HTML snippets (no <html> or <body> tags).
- Use <b> for headings and <br> only for intentional breaks.
- Omit any section that has no content in the transcript.
- Do not output code fences or explanations, only the HTML.
- The transcript is chronological: if the clinician or patient corrects earlier information later in the visit, ALWAYS trust the later correction and ignore the superseded detail.`

func visitDate(appointment *entities.Appointment) string {
	date := time.Now()
	if appointment.AppointmentDate != nil {
		date = *appointment.AppointmentDate
	}
	return date.Format("02/01/2006")
}

func capTranscript(text string) string {
	if len(text) > maxTranscriptChars {
		return text[:maxTranscriptChars]
	}
	return text
}

func joinPrompts(prompts []entities.Prompt) string {
	if len(prompts) == 0 {
		return ""
	}
	contents := make([]string, 0, len(prompts))
	for _, p := range prompts {
		contents = append(contents, p.Content)
	}
	return strings.Join(contents, "\n- ")
}

// patientReferralContext renders the appointment's patient and referral
// metadata as a labelled block for the model. Empty fields are left out.
func patientReferralContext(appointment *entities.Appointment) string {
	var parts []string

	patient := appointment.PatientInfo
	if patient.Name != "" || patient.FirstName != "" || patient.LastName != "" ||
		patient.DateOfBirth != "" || patient.Sex != "" || patient.Email != "" ||
		patient.MobilePhone != "" || patient.HomePhone != "" || patient.WorkPhone != "" {
		parts = append(parts, "PATIENT INFORMATION:")
		name := patient.Name
		if name == "" {
			name = strings.TrimSpace(patient.FirstName + " " + patient.LastName)
		}
		if name != "" {
			parts = append(parts, "- Name: "+name)
		}
		if patient.DateOfBirth != "" {
			parts = append(parts, "- DOB: "+patient.DateOfBirth)
		}
		if patient.Sex != "" {
			parts = append(parts, "- Sex: "+patient.Sex)
		}
		if patient.Email != "" {
			parts = append(parts, "- Email: "+patient.Email)
		}
		if patient.MobilePhone != "" {
			parts = append(parts, "- Mobile: "+patient.MobilePhone)
		}
		if patient.HomePhone != "" {
			parts = append(parts, "- Home: "+patient.HomePhone)
		}
		if patient.WorkPhone != "" {
			parts = append(parts, "- Work: "+patient.WorkPhone)
		}
		if addr := formatAddress(patient.Address); addr != "" {
			parts = append(parts, "- Address: "+addr)
		}
		parts = append(parts, "")
	}

	referral := appointment.ReferralContact
	if referral.FullName != "" || referral.CompanyName != "" || referral.Title != "" ||
		referral.Email != "" || referral.MobilePhone != "" || referral.HomePhone != "" ||
		referral.WorkPhone != "" {
		parts = append(parts, "REFERRAL CONTACT:")
		if referral.FullName != "" {
			parts = append(parts, "- Name: "+referral.FullName)
		}
		if referral.Title != "" {
			parts = append(parts, "- Title: "+referral.Title)
		}
		if referral.CompanyName != "" {
			parts = append(parts, "- Organisation: "+referral.CompanyName)
		}
		if referral.Email != "" {
			parts = append(parts, "- Email: "+referral.Email)
		}
		if referral.MobilePhone != "" {
			parts = append(parts, "- Mobile: "+referral.MobilePhone)
		}
		if referral.HomePhone != "" {
			parts = append(parts, "- Home: "+referral.HomePhone)
		}
		if referral.WorkPhone != "" {
			parts = append(parts, "- Work: "+referral.WorkPhone)
		}
		if addr := formatAddress(referral.Address); addr != "" {
			parts = append(parts, "- Address: "+addr)
		}
	}

	return strings.TrimRight(strings.Join(parts, "\n"), "\n")
}

func formatAddress(addr entities.Address) string {
	fields := []string{addr.Line1, addr.Line2, addr.City, addr.State, addr.PostalCode, addr.Country}
	var present []string
	for _, f := range fields {
		if f != "" {
			present = append(present, f)
		}
	}
	return strings.Join(present, ", ")
}

func buildTreatmentPrompts(appointment *entities.Appointment, templateHTML, transcript string) repositories.DraftRequest {
	sections := []string{
		"TRANSCRIPT:\n" + capTranscript(transcript),
		"TEMPLATE_HTML:\n" + templateHTML,
	}
	if additional := joinPrompts(appointment.TreatmentNote.AdditionalPrompts); additional != "" {
		sections = append(sections,
			"ADDITIONAL INSTRUCTIONS (highest priority, apply when structuring the note):\n- "+additional)
	}
	if context := patientReferralContext(appointment); context != "" {
		sections = append(sections,
			"PATIENT & REFERRAL CONTEXT (use to enrich sections, but do NOT invent data):\n"+context)
	}
	return repositories.DraftRequest{
		System: treatmentSystemPrompt,
		User:   strings.Join(sections, "\n\n"),
	}
}

func buildLetterPrompts(appointment *entities.Appointment, templateHTML, transcript string) repositories.DraftRequest {
	lines := []string{
		"Create a professional, medically accurate referral letter strictly from the conversation transcript.",
		"",
		"Transcript:",
		capTranscript(transcript),
		"",
		"Template to follow (HTML):",
		templateHTML,
		"",
		"Rules:",
		"- Do not infer or add any information not present in the transcript.",
		"- Follow Additional Instructions as highest priority.",
		"- If there's a translation instruction, translate everything (headings and body).",
		"- Omit any placeholder lines if you have no data for them.",
		"- Use <br> only for intentional breaks; no extra spacing.",
		"- No bullets or extra headings.",
		fmt.Sprintf("- Include Date of visit: %s", visitDate(appointment)),
		"- Return only the final HTML (no <html> tags).",
	}
	if additional := joinPrompts(appointment.Letter.AdditionalPrompts); additional != "" {
		lines = append(lines, "", "Additional Instructions:", additional)
	}
	if context := patientReferralContext(appointment); context != "" {
		lines = append(lines, "", "Patient & Referral Context (from appointment metadata):", context)
	}
	return repositories.DraftRequest{
		System: letterSystemPrompt,
		User:   strings.Join(lines, "\n"),
	}
}

func buildSummaryPrompts(appointment *entities.Appointment, templateHTML, transcript string) repositories.DraftRequest {
	lines := []string{
		"You are writing a clear, friendly 'After-Visit Summary' for a patient, based on the following transcript of their appointment:",
		"",
		capTranscript(transcript),
		"",
	}
	if templateHTML != "" {
		lines = append(lines, "Use this HTML template to guide structure (headings/order):\n"+templateHTML, "")
	}
	lines = append(lines,
		"Rules:",
		"- Follow Additional Instructions as highest priority.",
		"- Omit any section with no content in the transcript.",
		"- Use <b> for headings, <br> only for intentional breaks.",
		fmt.Sprintf("- Include Date of visit: %s", visitDate(appointment)),
		"- Return only HTML snippets (no <html>/<body> tags).",
	)
	if context := patientReferralContext(appointment); context != "" {
		lines = append(lines, "", "Patient & Referral Context (from appointment metadata):", context)
	}
	return repositories.DraftRequest{
		System: summarySystemPrompt,
		User:   strings.Join(lines, "\n"),
	}
}
