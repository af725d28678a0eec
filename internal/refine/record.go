package refine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dt-pm-tools/issue-kb/internal/issue"
)

// RefinedQA is the outcome of refining one issue. A record with Error set is
// an error record and carries only the error details and the issue reference.
type RefinedQA struct {
	ExtractedQuestion string
	ExtractedAnswer   string
	// Confidence is nil when the model omitted it.
	Confidence      *float64
	MultipleAnswers bool
	NeedsMoreInfo   bool
	IssueNumber     int
	IssueURL        string
	OriginalTitle   string

	Error       string
	RawResponse string
}

// IsError reports whether r is an error record.
func (r RefinedQA) IsError() bool {
	return r.Error != ""
}

// ConfidenceValue returns the confidence, treating a missing value as 0.
func (r RefinedQA) ConfidenceValue() float64 {
	if r.Confidence == nil {
		return 0
	}
	return *r.Confidence
}

type successJSON struct {
	ExtractedQuestion string   `json:"extracted_question"`
	ExtractedAnswer   string   `json:"extracted_answer"`
	Confidence        *float64 `json:"confidence,omitempty"`
	MultipleAnswers   bool     `json:"multiple_answers"`
	NeedsMoreInfo     bool     `json:"needs_more_info"`
	IssueNumber       int      `json:"issue_number"`
	IssueURL          string   `json:"issue_url"`
	OriginalTitle     string   `json:"original_title"`
}

type errorJSON struct {
	Error       string `json:"error"`
	RawResponse string `json:"raw_response,omitempty"`
	IssueNumber int    `json:"issue_number"`
	IssueURL    string `json:"issue_url"`
}

// MarshalJSON emits either the success shape or the error shape, never both.
func (r RefinedQA) MarshalJSON() ([]byte, error) {
	if r.IsError() {
		return json.Marshal(errorJSON{
			Error:       r.Error,
			RawResponse: r.RawResponse,
			IssueNumber: r.IssueNumber,
			IssueURL:    r.IssueURL,
		})
	}
	return json.Marshal(successJSON{
		ExtractedQuestion: r.ExtractedQuestion,
		ExtractedAnswer:   r.ExtractedAnswer,
		Confidence:        r.Confidence,
		MultipleAnswers:   r.MultipleAnswers,
		NeedsMoreInfo:     r.NeedsMoreInfo,
		IssueNumber:       r.IssueNumber,
		IssueURL:          r.IssueURL,
		OriginalTitle:     r.OriginalTitle,
	})
}

// UnmarshalJSON accepts either shape.
func (r *RefinedQA) UnmarshalJSON(data []byte) error {
	var v struct {
		successJSON
		Error       string `json:"error"`
		RawResponse string `json:"raw_response"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = RefinedQA{
		ExtractedQuestion: v.ExtractedQuestion,
		ExtractedAnswer:   v.ExtractedAnswer,
		Confidence:        v.Confidence,
		MultipleAnswers:   v.MultipleAnswers,
		NeedsMoreInfo:     v.NeedsMoreInfo,
		IssueNumber:       v.IssueNumber,
		IssueURL:          v.IssueURL,
		OriginalTitle:     v.OriginalTitle,
		Error:             v.Error,
		RawResponse:       v.RawResponse,
	}
	return nil
}

// modelReply is the object the prompt asks the model to return.
type modelReply struct {
	ExtractedQuestion string   `json:"extracted_question"`
	ExtractedAnswer   string   `json:"extracted_answer"`
	Confidence        *float64 `json:"confidence"`
	MultipleAnswers   bool     `json:"multiple_answers"`
	NeedsMoreInfo     bool     `json:"needs_more_info"`
}

// ParseResponse turns a raw model response into a RefinedQA for iss.
//
// The response is decoded as is first, then as the body of a fence wrapping
// the whole response, and last as the first fenced block found in the text.
// Malformed output yields an error record holding the raw text.
func ParseResponse(raw string, iss issue.Issue) RefinedQA {
	content := strings.TrimSpace(raw)

	reply, err := decodeReply(content)
	if err != nil {
		for _, candidate := range fencedCandidates(content) {
			r, cerr := decodeReply(candidate)
			if cerr == nil {
				reply, err = r, nil
				break
			}
			err = cerr
		}
	}
	if err != nil {
		rec := errorRecord(iss, fmt.Errorf("parsing model response as JSON: %w", err))
		rec.RawResponse = content
		return rec
	}

	return RefinedQA{
		ExtractedQuestion: reply.ExtractedQuestion,
		ExtractedAnswer:   reply.ExtractedAnswer,
		Confidence:        reply.Confidence,
		MultipleAnswers:   reply.MultipleAnswers,
		NeedsMoreInfo:     reply.NeedsMoreInfo,
		IssueNumber:       iss.Number,
		IssueURL:          iss.HTMLURL,
		OriginalTitle:     iss.Title,
	}
}

var errNotObject = errors.New("response is not a JSON object")

func decodeReply(s string) (modelReply, error) {
	var reply modelReply
	if err := json.Unmarshal([]byte(s), &reply); err != nil {
		return modelReply{}, err
	}
	if !strings.HasPrefix(s, "{") {
		return modelReply{}, errNotObject
	}
	return reply, nil
}

const codeFence = "```"

// fencedCandidates returns the texts worth decoding when s is not JSON on its
// own: the body of a fence wrapping all of s, then the first fenced block.
func fencedCandidates(s string) []string {
	var out []string
	if body, ok := unwrapFence(s); ok {
		out = append(out, body)
	}
	if block := firstFencedBlock(s); block != s && (len(out) == 0 || block != out[0]) {
		out = append(out, block)
	}
	return out
}

// unwrapFence strips a fence that opens at the start of s, together with
// its language tag, and closes at the last fence in s. Fences nested in the
// body are kept.
func unwrapFence(s string) (string, bool) {
	if !strings.HasPrefix(s, codeFence) {
		return "", false
	}
	body := strings.TrimLeftFunc(s[len(codeFence):], isTagRune)
	if end := strings.LastIndex(body, codeFence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

// firstFencedBlock returns the contents of the first fenced block in s, minus
// any language tag. Text without a fence is returned unchanged.
func firstFencedBlock(s string) string {
	start := strings.Index(s, codeFence)
	if start < 0 {
		return s
	}
	rest := strings.TrimLeftFunc(s[start+len(codeFence):], isTagRune)
	if end := strings.Index(rest, codeFence); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func isTagRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-' || r == '+'
}
