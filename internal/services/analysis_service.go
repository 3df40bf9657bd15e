package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/astrasemi/assistant/internal/config"
	"github.com/astrasemi/assistant/internal/constants"
	"github.com/astrasemi/assistant/internal/llm"
	applog "github.com/astrasemi/assistant/internal/logger"
	"go.uber.org/zap"
)

var (
	ErrAINotConfigured = errors.New("AI provider is not configured")
	ErrAIUpstream      = errors.New("AI request failed")
	ErrCSVRequired     = errors.New("CSV data is required")
	ErrCSVInvalid      = errors.New("CSV data could not be parsed")
	ErrCSVTooLarge     = errors.New("input data too large. Please use a smaller CSV file")
	ErrTextRequired    = errors.New("text input is required")
	ErrTextTooLong     = fmt.Errorf("text is too long. Maximum %d characters", constants.MaxTextInputSize)
	ErrInvalidMode     = errors.New("invalid mode")
	ErrImageRequired   = errors.New("image data is required")
	ErrImageTooLarge   = errors.New("image is too large. Maximum 20MB")
	ErrTermRequired    = errors.New("term is required")
	ErrTermTooLong     = fmt.Errorf("term is too long. Maximum %d characters", constants.MaxGlossaryTermSize)
	ErrInvalidLevel    = errors.New("invalid level")
)

// TextMode selects the document interpretation output.
type TextMode string

const (
	TextModeSummary TextMode = "summary"
	TextModeEmail   TextMode = "email"
	TextModeUpdate  TextMode = "update"
)

const safeDiagnosisSummary = "I can help clarify and suggest who to check with. For technical diagnosis, please consult with your engineering team or supervisor."

var diagnosisMarkers = []string{"diagnose", "what's wrong", "problem"}

const csvSystemPrompt = `You are a helpful assistant that analyzes semiconductor operations data from CSV files.
Your role is to provide clear, beginner-friendly summaries.

CRITICAL RULES:
1. Only analyze data that is actually present in the CSV. Do NOT invent or hallucinate fields, values, or patterns that are not in the data.
2. If you're uncertain about something, say so explicitly.
3. Use simple, non-technical language suitable for new or non-technical semiconductor staff.
4. Return your response as valid JSON with these exact keys: mainPoints (array of strings), importantItems (array of strings), top3Attention (array of exactly 3 strings), dataQualityNotes (array of strings).
5. Be specific and reference actual data values when possible.`

const textSystemPrompt = `You are a helpful assistant that interprets semiconductor documents for non-technical staff.
Your role is to provide clear, beginner-friendly explanations and actionable insights.

CRITICAL RULES:
1. Use simple, non-technical language. Avoid jargon unless you explain it.
2. If the user asks for technical diagnosis or troubleshooting, respond: "I can help clarify and suggest who to check with."
3. Never provide medical, safety, or critical technical diagnoses.
4. Focus on understanding, summarizing, and suggesting next steps.
5. Return valid JSON with the required structure.`

const imageSystemPrompt = `You are a helpful assistant that identifies semiconductor components from images for non-technical staff.

CRITICAL RULES:
1. Use simple, beginner-friendly language. Avoid technical jargon unless you explain it.
2. Do NOT claim certainty. Use phrases like "most likely", "appears to be", "could be".
3. NEVER classify defects, failures, or problems. If asked about defects, provide only general educational information about what you see, not diagnostic assessments.
4. Focus on explaining what the object is, what it's used for, and its role in the semiconductor process.
5. Return valid JSON with keys: object (string), purpose (string), role (string).
6. Keep explanations friendly and accessible to people new to semiconductors.`

const imageUserPrompt = `Analyze this semiconductor image and provide:
1. object: What this object most likely is (use "most likely" or "appears to be" language)
2. purpose: What it's used for in simple terms
3. role: Its role in the overall semiconductor manufacturing process

Use beginner-friendly language. Do not diagnose defects or problems.`

const glossarySystemPrompt = `You are a helpful glossary assistant for semiconductor terminology.
Your role is to explain terms in beginner-friendly language.

CRITICAL RULES:
1. Use simple, non-technical language suitable for new or non-technical semiconductor staff.
2. Provide concrete, day-to-day examples from semiconductor fabrication (fab) contexts.
3. Explain why the term matters in practical terms.
4. Address common confusions or misconceptions.
5. Adjust complexity based on level (beginner = very simple, intermediate = slightly more detail).
6. Return valid JSON with keys: definition, example, whyItMatters, commonConfusion.`

// AnalysisService forwards documents to the LLM with fixed prompts and
// input guards, and fills defaults for any field the model leaves out.
type AnalysisService struct {
	client llm.Client
	cfg    config.AIConfig
}

// NewAnalysisService creates an AnalysisService. A nil client makes every
// call return ErrAINotConfigured.
func NewAnalysisService(client llm.Client, cfg config.AIConfig) *AnalysisService {
	return &AnalysisService{client: client, cfg: cfg}
}

// CSVInput is either raw CSV text or rows already parsed by the client.
type CSVInput struct {
	Raw          string
	Rows         []map[string]string
	Headers      []string
	RowCount     int
	QualityNotes []string
}

type CSVSummary struct {
	MainPoints       []string `json:"mainPoints"`
	ImportantItems   []string `json:"importantItems"`
	Top3Attention    []string `json:"top3Attention"`
	DataQualityNotes []string `json:"dataQualityNotes"`
}

// TextResult carries the fields of whichever mode was requested.
type TextResult struct {
	Summary         string   `json:"summary,omitempty"`
	KeyPoints       []string `json:"keyPoints,omitempty"`
	FollowUpActions []string `json:"followUpActions,omitempty"`
	ConvertedEmail  string   `json:"convertedEmail,omitempty"`
	ConvertedUpdate string   `json:"convertedUpdate,omitempty"`
}

type ImageExplanation struct {
	Object  string `json:"object"`
	Purpose string `json:"purpose"`
	Role    string `json:"role"`
}

type GlossaryEntry struct {
	Definition      string `json:"definition"`
	Example         string `json:"example"`
	WhyItMatters    string `json:"whyItMatters"`
	CommonConfusion string `json:"commonConfusion"`
}

// ParsedCSV is a CSV document reduced to what the summary prompt needs.
type ParsedCSV struct {
	Headers      []string
	Rows         []map[string]string
	RowCount     int
	QualityNotes []string
}

// ParseCSV reads a header row followed by records. Blank lines are skipped,
// ragged rows are kept and reported. Only the first MaxCSVSampleRows rows are
// returned, RowCount counts them all.
func ParseCSV(raw string) (*ParsedCSV, error) {
	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	headers, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrCSVRequired
		}
		return nil, fmt.Errorf("%w: %v", ErrCSVInvalid, err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var rows []map[string]string
	var total, ragged, dupes int
	seen := make(map[string]bool)
	empties := make(map[string]int)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCSVInvalid, err)
		}
		total++

		if len(record) != len(headers) {
			ragged++
		}
		key := strings.Join(record, "\x1f")
		if seen[key] {
			dupes++
		}
		seen[key] = true

		row := make(map[string]string, len(headers))
		for i, h := range headers {
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			if value == "" {
				empties[h]++
			}
			row[h] = value
		}
		if len(rows) < constants.MaxCSVSampleRows {
			rows = append(rows, row)
		}
	}

	var notes []string
	for _, h := range headers {
		if n := empties[h]; n > 0 {
			notes = append(notes, fmt.Sprintf("Column %q has %d empty cells", h, n))
		}
	}
	if ragged > 0 {
		notes = append(notes, fmt.Sprintf("%d rows do not match the header column count", ragged))
	}
	if dupes > 0 {
		notes = append(notes, fmt.Sprintf("%d duplicate rows found", dupes))
	}
	if total > len(rows) {
		notes = append(notes, fmt.Sprintf("Large dataset: showing summary of first %d rows out of %d total", len(rows), total))
	}

	return &ParsedCSV{
		Headers:      headers,
		Rows:         rows,
		RowCount:     total,
		QualityNotes: notes,
	}, nil
}

// SummarizeCSV produces a plain-language summary of a CSV sample.
func (s *AnalysisService) SummarizeCSV(ctx context.Context, input CSVInput) (*CSVSummary, error) {
	if s.client == nil {
		return nil, ErrAINotConfigured
	}

	parsed := &ParsedCSV{
		Headers:      input.Headers,
		Rows:         input.Rows,
		RowCount:     input.RowCount,
		QualityNotes: input.QualityNotes,
	}
	if strings.TrimSpace(input.Raw) != "" {
		var err error
		if parsed, err = ParseCSV(input.Raw); err != nil {
			return nil, err
		}
	}
	if len(parsed.Headers) == 0 && len(parsed.Rows) == 0 {
		return nil, ErrCSVRequired
	}
	if parsed.RowCount == 0 {
		parsed.RowCount = len(parsed.Rows)
	}

	sample := parsed.Rows
	if len(sample) > constants.MaxCSVSampleRows {
		sample = sample[:constants.MaxCSVSampleRows]
	}
	data, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode CSV sample: %w", err)
	}
	if utf8.RuneCount(data) > constants.MaxCSVInputSize {
		return nil, ErrCSVTooLarge
	}

	var prompt strings.Builder
	prompt.WriteString("Analyze this semiconductor operations CSV data:\n\n")
	fmt.Fprintf(&prompt, "Column headers: %s\n", strings.Join(parsed.Headers, ", "))
	fmt.Fprintf(&prompt, "Total rows: %d\n\n", parsed.RowCount)
	fmt.Fprintf(&prompt, "Sample data (first %d rows):\n%s\n\n", len(sample), data)
	if len(parsed.QualityNotes) > 0 {
		fmt.Fprintf(&prompt, "Data quality issues detected:\n%s\n\n", strings.Join(parsed.QualityNotes, "\n"))
	}
	prompt.WriteString(`Provide:
1. Main points (3-5 bullet points summarizing the overall data)
2. Important or unusual items (things that stand out, anomalies, notable patterns)
3. Top 3 things to pay attention to (numbered, most critical items)
4. Data quality notes (incorporate the provided notes and add any additional observations)

Return ONLY valid JSON, no markdown, no code blocks.`)

	var result CSVSummary
	if err := s.complete(ctx, "csv", s.cfg.TextTimeout, llm.Request{
		System:      csvSystemPrompt,
		Prompt:      prompt.String(),
		Temperature: 0.3,
	}, &result); err != nil {
		return nil, err
	}

	if len(result.MainPoints) == 0 {
		result.MainPoints = []string{"Unable to extract main points"}
	}
	if len(result.ImportantItems) == 0 {
		result.ImportantItems = []string{"No unusual items detected"}
	}
	if len(result.Top3Attention) == 0 {
		result.Top3Attention = []string{"Review data", "Check for issues", "Follow up as needed"}
	} else if len(result.Top3Attention) > constants.BriefingTop3Size {
		result.Top3Attention = result.Top3Attention[:constants.BriefingTop3Size]
	}
	if result.DataQualityNotes == nil {
		result.DataQualityNotes = parsed.QualityNotes
	}
	if result.DataQualityNotes == nil {
		result.DataQualityNotes = []string{}
	}
	return &result, nil
}

// InterpretText summarizes a document or rewrites it as an email or a
// manager update.
func (s *AnalysisService) InterpretText(ctx context.Context, text string, mode TextMode) (*TextResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrTextRequired
	}
	if utf8.RuneCountInString(text) > constants.MaxTextInputSize {
		return nil, ErrTextTooLong
	}
	text = strings.TrimSpace(text)

	var prompt string
	switch mode {
	case TextModeSummary:
		prompt = fmt.Sprintf(`Analyze this semiconductor document and provide:

Document text:
%s

Provide:
1. summary: A clear 2-4 line summary in plain English
2. keyPoints: Array of 3-6 key points explained for beginners (each as a string)
3. followUpActions: Array of suggested follow-up actions if helpful (each as a string, can be empty array if none)

Return ONLY valid JSON with keys: summary, keyPoints, followUpActions.`, text)
	case TextModeEmail:
		prompt = fmt.Sprintf(`Convert this semiconductor document into a professional email:

Document text:
%s

Create a professional email that summarizes the key points in a clear, business-appropriate format.

Return ONLY valid JSON with key: convertedEmail (string containing the email text).`, text)
	case TextModeUpdate:
		prompt = fmt.Sprintf(`Convert this semiconductor document into a manager-friendly update:

Document text:
%s

Create a concise, manager-friendly update that highlights the most important points in non-technical language.

Return ONLY valid JSON with key: convertedUpdate (string containing the update text).`, text)
	default:
		return nil, ErrInvalidMode
	}

	if s.client == nil {
		return nil, ErrAINotConfigured
	}

	var result TextResult
	if err := s.complete(ctx, "text", s.cfg.TextTimeout, llm.Request{
		System:      textSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.5,
	}, &result); err != nil {
		return nil, err
	}

	if mode == TextModeSummary && asksForDiagnosis(text) {
		result.Summary = safeDiagnosisSummary
	}
	return &result, nil
}

// ExplainImage identifies the component shown in a base64 image.
func (s *AnalysisService) ExplainImage(ctx context.Context, image, mimeType string) (*ImageExplanation, error) {
	if image == "" {
		return nil, ErrImageRequired
	}
	if len(image)*3/4 > constants.MaxImageBytes {
		return nil, ErrImageTooLarge
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	if s.client == nil {
		return nil, ErrAINotConfigured
	}

	var result ImageExplanation
	if err := s.complete(ctx, "image", s.cfg.ImageTimeout, llm.Request{
		System:      imageSystemPrompt,
		Prompt:      imageUserPrompt,
		Temperature: 0.3,
		MaxTokens:   500,
		Image:       &llm.Image{MimeType: mimeType, Base64: image},
	}, &result); err != nil {
		return nil, err
	}

	if result.Object == "" {
		result.Object = "Unable to identify the object in the image"
	}
	if result.Purpose == "" {
		result.Purpose = "Unable to determine purpose"
	}
	if result.Role == "" {
		result.Role = "Unable to determine role in semiconductor process"
	}
	return &result, nil
}

// ExplainTerm looks up a semiconductor term at the given level.
func (s *AnalysisService) ExplainTerm(ctx context.Context, term, level string) (*GlossaryEntry, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrTermRequired
	}
	if utf8.RuneCountInString(term) > constants.MaxGlossaryTermSize {
		return nil, ErrTermTooLong
	}

	var levelInstruction string
	switch level {
	case "", "beginner":
		level = "beginner"
		levelInstruction = "Use very simple language, avoid technical jargon, use analogies when helpful."
	case "intermediate":
		levelInstruction = "You can include slightly more technical detail but still keep it accessible."
	default:
		return nil, ErrInvalidLevel
	}

	if s.client == nil {
		return nil, ErrAINotConfigured
	}

	prompt := fmt.Sprintf(`Explain this semiconductor term: %q

Level: %s
%s

Provide:
1. definition: A clear definition in plain English (2-3 sentences)
2. example: A concrete example in day-to-day fab context (2-3 sentences)
3. whyItMatters: Why this term matters in practical terms (2-3 sentences)
4. commonConfusion: Common confusion or misconceptions about this term (2-3 sentences)

Return ONLY valid JSON with these exact keys.`, term, level, levelInstruction)

	var result GlossaryEntry
	if err := s.complete(ctx, "glossary", s.cfg.GlossaryTimeout, llm.Request{
		System:      glossarySystemPrompt,
		Prompt:      prompt,
		Temperature: 0.4,
	}, &result); err != nil {
		return nil, err
	}

	if result.Definition == "" {
		result.Definition = "Definition not available"
	}
	if result.Example == "" {
		result.Example = "Example not available"
	}
	if result.WhyItMatters == "" {
		result.WhyItMatters = "Information not available"
	}
	if result.CommonConfusion == "" {
		result.CommonConfusion = "No common confusions noted"
	}
	return &result, nil
}

// complete runs one bounded JSON completion and decodes it into v. Every
// provider or parse failure is reported as ErrAIUpstream.
func (s *AnalysisService) complete(ctx context.Context, kind string, timeout time.Duration, req llm.Request, v interface{}) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	content, err := s.client.CompleteJSON(ctx, req)
	if err == nil {
		err = llm.Decode(content, v)
	}
	if err != nil {
		applog.Log.Error("AI analysis failed",
			zap.String("kind", kind),
			zap.String("provider", s.client.Name()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrAIUpstream, err)
	}
	return nil
}

func asksForDiagnosis(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range diagnosisMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
