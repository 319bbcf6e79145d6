// Package prompt builds the text prompts scribe sends to the model.
package prompt

import "strings"

// IdeaInstruction is sent as-is by the GET /api endpoint.
const IdeaInstruction = "Reply with a new business idea for AI Agents, formatted with headings, sub-headings and bullet points"

// VisitInstruction precedes every rendered Visit. The three headings are part
// of the contract with clients that parse the model output.
const VisitInstruction = `You are provided with notes written by a doctor from a patient's visit.
Your job is to summarize the visit for the doctor and provide an email.
Reply with exactly three sections with the headings:
### Summary of visit for the doctor's records
### Next steps for the doctor
### Draft of email to patient in patient-friendly language`

// Visit is one consultation as submitted by the caller. Fields are required;
// validation happens at the HTTP layer.
type Visit struct {
	PatientName string `json:"patient_name" validate:"required"`
	DateOfVisit string `json:"date_of_visit" validate:"required"`
	Notes       string `json:"notes" validate:"required"`
}

// Idea returns the fixed business idea prompt.
func Idea() string {
	return IdeaInstruction
}

// ForVisit returns VisitInstruction followed by a blank line and the labelled
// visit fields.
func ForVisit(v Visit) string {
	var b strings.Builder
	b.Grow(len(VisitInstruction) + len(v.PatientName) + len(v.DateOfVisit) + len(v.Notes) + 64)

	b.WriteString(VisitInstruction)
	b.WriteString("\n\n")
	b.WriteString(render(v))
	return b.String()
}

func render(v Visit) string {
	return "Patient Name: " + v.PatientName + "\n" +
		"Date of Visit: " + v.DateOfVisit + "\n" +
		"Notes:\n" + v.Notes
}
