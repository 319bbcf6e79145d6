package prompt_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scribe/pkg/prompt"
)

var _ = Describe("ForVisit", func() {
	visit := prompt.Visit{
		PatientName: "Jane Doe",
		DateOfVisit: "2024-01-01",
		Notes:       "Stable, follow up in 2 weeks",
	}

	It("starts with the instruction followed by a blank line", func() {
		out := prompt.ForVisit(visit)
		Expect(out).To(HavePrefix(prompt.VisitInstruction + "\n\n"))
	})

	It("contains the three section headings verbatim", func() {
		out := prompt.ForVisit(visit)
		Expect(out).To(ContainSubstring("### Summary of visit for the doctor's records"))
		Expect(out).To(ContainSubstring("### Next steps for the doctor"))
		Expect(out).To(ContainSubstring("### Draft of email to patient in patient-friendly language"))
	})

	It("labels each field", func() {
		out := prompt.ForVisit(visit)
		Expect(out).To(HaveSuffix(
			"Patient Name: Jane Doe\nDate of Visit: 2024-01-01\nNotes:\nStable, follow up in 2 weeks",
		))
	})

	DescribeTable("contains every field value exactly once",
		func(v prompt.Visit) {
			out := prompt.ForVisit(v)
			for _, field := range []string{v.PatientName, v.DateOfVisit, v.Notes} {
				Expect(strings.Count(out, field)).To(Equal(1), "field %q", field)
			}
		},
		Entry("the reference visit", visit),
		Entry("multi-line notes", prompt.Visit{
			PatientName: "Ana Lima",
			DateOfVisit: "March 3rd",
			Notes:       "BP 120/80\nno complaints\n\nreview labs",
		}),
		Entry("unicode values", prompt.Visit{
			PatientName: "Zoë Brontë",
			DateOfVisit: "2025-11-30",
			Notes:       "Ärztliche Notiz: alles gut",
		}),
	)

	It("is deterministic", func() {
		Expect(prompt.ForVisit(visit)).To(Equal(prompt.ForVisit(visit)))
	})
})

var _ = Describe("Idea", func() {
	It("returns the fixed business idea instruction", func() {
		Expect(prompt.Idea()).To(Equal(prompt.IdeaInstruction))
		Expect(prompt.Idea()).To(ContainSubstring("business idea for AI Agents"))
	})
})
