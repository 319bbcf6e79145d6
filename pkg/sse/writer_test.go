package sse

import (
	"bytes"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// countingWriter records each Write call separately.
type countingWriter struct {
	writes []string
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.writes = append(c.writes, string(p))
	return len(p), nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("client went away")
}

var _ = Describe("Writer", func() {
	var (
		buf *bytes.Buffer
		w   *Writer
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		w = NewWriter(buf)
	})

	Describe("WriteFragment", func() {
		It("writes one event per fragment without line breaks, in order", func() {
			for _, f := range []string{"Once", " upon", " a time"} {
				_, err := w.WriteFragment(f)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(buf.String()).To(Equal("data: Once\n\ndata:  upon\n\ndata:  a time\n\n"))
		})

		It("skips empty fragments entirely", func() {
			n, err := w.WriteFragment("")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
			Expect(buf.Len()).To(BeZero())
		})

		It("splits line breaks into payload events with filler lines between them", func() {
			_, err := w.WriteFragment("Hello\nWorld")
			Expect(err).NotTo(HaveOccurred())
			_, err = w.WriteFragment("!")
			Expect(err).NotTo(HaveOccurred())

			Expect(buf.String()).To(Equal("data: Hello\n\n" + "data:  \n" + "data: World\n\n" + "data: !\n\n"))
		})

		It("emits k+1 payload events and k fillers for k line breaks", func() {
			_, err := w.WriteFragment("a\nb\nc\nd")
			Expect(err).NotTo(HaveOccurred())

			out := buf.String()
			Expect(strings.Count(out, "data:  \n")).To(Equal(3))
			Expect(strings.Count(out, "\n\n")).To(Equal(4))
			Expect(out).To(Equal(
				"data: a\n\ndata:  \ndata: b\n\ndata:  \ndata: c\n\ndata:  \ndata: d\n\n",
			))
		})

		It("keeps blank lines inside a fragment as empty payload events", func() {
			_, err := w.WriteFragment("### Summary\n\n- stable")
			Expect(err).NotTo(HaveOccurred())

			Expect(buf.String()).To(Equal(
				"data: ### Summary\n\ndata:  \ndata: \n\ndata:  \ndata: - stable\n\n",
			))
		})

		It("treats CRLF and bare CR as line breaks", func() {
			_, err := w.WriteFragment("one\r\ntwo\rthree")
			Expect(err).NotTo(HaveOccurred())

			Expect(buf.String()).To(Equal("data: one\n\ndata:  \ndata: two\n\ndata:  \ndata: three\n\n"))
		})

		It("issues exactly one Write per fragment", func() {
			cw := &countingWriter{}
			w = NewWriter(cw)

			_, err := w.WriteFragment("x\ny")
			Expect(err).NotTo(HaveOccurred())
			_, err = w.WriteFragment("z")
			Expect(err).NotTo(HaveOccurred())

			Expect(cw.writes).To(HaveLen(2))
		})

		It("returns the destination error", func() {
			w = NewWriter(failingWriter{})
			_, err := w.WriteFragment("hello")
			Expect(err).To(MatchError("client went away"))
		})
	})

	Describe("WriteError", func() {
		It("writes a single terminal error event", func() {
			_, err := w.WriteError(errors.New("quota exceeded"))
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(Equal("data: Error: quota exceeded\n\n"))
		})

		It("folds line breaks in the message", func() {
			_, err := w.WriteError(errors.New("bad\nthings\r\nhappened"))
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(Equal("data: Error: bad things happened\n\n"))
		})

		It("handles a nil error", func() {
			_, err := w.WriteError(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(Equal("data: Error: unknown error\n\n"))
		})
	})

	Describe("round trip through TeeReader", func() {
		decodeAll := func(raw string) string {
			r := NewReader(strings.NewReader(raw))
			var out strings.Builder
			for {
				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				if ev == nil {
					return out.String()
				}
				out.WriteString(DecodeFragment(ev.Data))
			}
		}

		DescribeTable("recovers the original text",
			func(fragments []string) {
				for _, f := range fragments {
					_, err := w.WriteFragment(f)
					Expect(err).NotTo(HaveOccurred())
				}
				Expect(decodeAll(buf.String())).To(Equal(strings.Join(fragments, "")))
			},
			Entry("plain tokens", []string{"Hel", "lo", " there"}),
			Entry("embedded line break", []string{"Hello\nWorld", "!"}),
			Entry("trailing line break", []string{"line one\n", "line two"}),
			Entry("blank lines", []string{"A\n\nB"}),
			Entry("leading space before a break", []string{" \nX"}),
			Entry("markdown", []string{"### Summary of visit\n", "- Stable\n- Follow up\n\n", "Thanks"}),
		)

		It("marks the terminal error event", func() {
			_, err := w.WriteFragment("partial")
			Expect(err).NotTo(HaveOccurred())
			_, err = w.WriteError(errors.New("stream reset"))
			Expect(err).NotTo(HaveOccurred())

			r := NewReader(strings.NewReader(buf.String()))
			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(IsError(ev.Data)).To(BeFalse())

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(IsError(ev.Data)).To(BeTrue())
			Expect(ev.Data).To(Equal("Error: stream reset"))
		})
	})
})
