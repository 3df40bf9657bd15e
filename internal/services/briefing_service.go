package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/astrasemi/assistant/internal/constants"
	"github.com/astrasemi/assistant/internal/llm"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/repository"
	"go.uber.org/zap"
)

var ErrBriefingParse = errors.New("briefing response could not be parsed")

const briefingSystemPrompt = `You are a helpful assistant that generates daily briefings for semiconductor staff.
Your role is to provide clear, beginner-friendly, action-oriented summaries.

CRITICAL RULES:
1. Use simple, corporate-friendly language suitable for non-technical staff.
2. Only reference tasks that are actually provided. Do NOT invent or hallucinate tasks.
3. Return valid JSON only with these exact keys: top3 (array of 3 strings), alerts (array of strings), blockers (array of strings), dueOverdue (array of strings).
4. Be concise and actionable.`

const briefingStrictSuffix = " Return valid JSON only, no markdown."

const briefingUserPrompt = `Generate a daily briefing for a %s based on these tasks:

%s

Provide:
1. top3: Top 3 actions to focus on today (array of exactly 3 task titles or action items)
2. alerts: Critical alerts that need immediate attention (array of strings)
3. blockers: Blocking dependencies or issues (array of strings)
4. dueOverdue: Items that are due or overdue (array of strings with due dates)

Return ONLY valid JSON, no markdown, no code blocks.`

var briefingSchema = llm.MustCompileSchema(`{
	"type": "object",
	"properties": {
		"top3": {"type": "array", "items": {"type": "string"}},
		"alerts": {"type": "array", "items": {"type": "string"}},
		"blockers": {"type": "array", "items": {"type": "string"}},
		"dueOverdue": {"type": "array", "items": {"type": "string"}}
	}
}`)

// BriefingResult is a persisted briefing.
type BriefingResult struct {
	ID          uint64
	RoleID      uint64
	Briefing    Briefing
	Source      models.BriefingSource
	GeneratedAt time.Time
}

// BriefingService generates and records role briefings.
type BriefingService struct {
	taskService  *TaskService
	briefingRepo repository.BriefingRepository
	client       llm.Client
	timeout      time.Duration
	now          func() time.Time
}

// NewBriefingService creates a BriefingService. client may be nil, in which
// case every briefing uses the fallback rule.
func NewBriefingService(taskService *TaskService, briefingRepo repository.BriefingRepository, client llm.Client, timeout time.Duration) *BriefingService {
	return &BriefingService{
		taskService:  taskService,
		briefingRepo: briefingRepo,
		client:       client,
		timeout:      timeout,
		now:          time.Now,
	}
}

type taskSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate"`
}

// Generate builds a briefing for the role, persists it and returns it.
func (s *BriefingService) Generate(ctx context.Context, roleID uint64) (*BriefingResult, error) {
	role, err := s.taskService.GetRole(roleID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskService.ListTasks(ListTasksInput{RoleID: roleID})
	if err != nil {
		return nil, err
	}

	if len(tasks) == 0 {
		return s.persist(roleID, EmptyBriefing(), models.BriefingSourceEmpty, nil)
	}

	summary, err := summarizeTasks(tasks)
	if err != nil {
		return nil, err
	}

	if s.client != nil {
		briefing, err := s.generateWithLLM(ctx, role.Name, summary)
		if err == nil {
			return s.persist(roleID, briefing, models.BriefingSourceLLM, &summary)
		}
		applog.Log.Warn("AI briefing failed, using fallback",
			zap.Uint64("role_id", roleID),
			zap.String("provider", s.client.Name()),
			zap.Error(err),
		)
	}

	return s.persist(roleID, BuildFallbackBriefing(tasks, s.now()), models.BriefingSourceFallback, &summary)
}

// History returns the most recent briefings for a role
func (s *BriefingService) History(roleID uint64) ([]BriefingResult, error) {
	logs, err := s.briefingRepo.ListRecent(roleID, constants.BriefingHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list briefings: %w", err)
	}

	results := make([]BriefingResult, 0, len(logs))
	for _, l := range logs {
		results = append(results, BriefingResult{
			ID:     l.ID,
			RoleID: l.RoleID,
			Briefing: Briefing{
				Top3:       decodeList(l.Top3),
				Alerts:     decodeList(l.Alerts),
				Blockers:   decodeList(l.Blockers),
				DueOverdue: decodeList(l.DueOverdue),
			},
			Source:      l.Source,
			GeneratedAt: l.GeneratedAt,
		})
	}
	return results, nil
}

// parsedBriefing is the outcome of decoding one model reply: either a
// briefing or the reason it is unusable.
type parsedBriefing struct {
	ok       bool
	briefing Briefing
	reason   error
}

func (s *BriefingService) generateWithLLM(ctx context.Context, roleName, summary string) (Briefing, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := fmt.Sprintf(briefingUserPrompt, roleName, summary)

	content, err := s.client.CompleteJSON(ctx, llm.Request{
		System:      briefingSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.3,
	})
	if err != nil {
		return Briefing{}, err
	}

	parsed := parseBriefing(ctx, content)
	if !parsed.ok {
		applog.Log.Info("Briefing reply unusable, retrying", zap.Error(parsed.reason))

		content, err = s.client.CompleteJSON(ctx, llm.Request{
			System:      briefingSystemPrompt + briefingStrictSuffix,
			Prompt:      prompt,
			Temperature: 0.3,
		})
		if err != nil {
			return Briefing{}, err
		}

		parsed = parseBriefing(ctx, content)
		if !parsed.ok {
			return Briefing{}, parsed.reason
		}
	}

	return shapeBriefing(parsed.briefing), nil
}

func parseBriefing(ctx context.Context, content string) parsedBriefing {
	raw, err := llm.ExtractJSON(content)
	if err != nil {
		return parsedBriefing{reason: fmt.Errorf("%w: %v", ErrBriefingParse, err)}
	}

	if err := briefingSchema.Validate(ctx, []byte(raw)); err != nil {
		return parsedBriefing{reason: fmt.Errorf("%w: %v", ErrBriefingParse, err)}
	}

	var b Briefing
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return parsedBriefing{reason: fmt.Errorf("%w: %v", ErrBriefingParse, err)}
	}
	return parsedBriefing{ok: true, briefing: b}
}

// shapeBriefing forces exactly three top actions and fills empty lists.
func shapeBriefing(b Briefing) Briefing {
	top3 := compact(b.Top3)
	if len(top3) > constants.BriefingTop3Size {
		top3 = top3[:constants.BriefingTop3Size]
	}
	for len(top3) < constants.BriefingTop3Size {
		top3 = append(top3, PlaceholderTop3Padding)
	}

	return Briefing{
		Top3:       top3,
		Alerts:     orPlaceholder(compact(b.Alerts), PlaceholderNoAlerts),
		Blockers:   orPlaceholder(compact(b.Blockers), PlaceholderNoBlockers),
		DueOverdue: orPlaceholder(compact(b.DueOverdue), PlaceholderNoDueOverdue),
	}
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func summarizeTasks(tasks []models.Task) (string, error) {
	summaries := make([]taskSummary, 0, len(tasks))
	for _, t := range tasks {
		ts := taskSummary{
			Title:    t.Title,
			Priority: string(t.Priority),
			Status:   string(t.Status),
			DueDate:  "No due date",
		}
		if t.Description != nil {
			ts.Description = *t.Description
		}
		if t.DueDate != nil {
			ts.DueDate = t.DueDate.Format(dateLayout)
		}
		summaries = append(summaries, ts)
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to summarize tasks: %w", err)
	}
	return string(data), nil
}

func (s *BriefingService) persist(roleID uint64, b Briefing, source models.BriefingSource, rawInput *string) (*BriefingResult, error) {
	log := &models.BriefingLog{
		RoleID:          roleID,
		Top3:            encodeList(b.Top3),
		Alerts:          encodeList(b.Alerts),
		Blockers:        encodeList(b.Blockers),
		DueOverdue:      encodeList(b.DueOverdue),
		RawInputSummary: rawInput,
		Source:          source,
		GeneratedAt:     s.now(),
	}
	if err := s.briefingRepo.Create(log); err != nil {
		return nil, fmt.Errorf("failed to save briefing: %w", err)
	}

	applog.Log.Info("Briefing generated",
		zap.Uint64("briefing_id", log.ID),
		zap.Uint64("role_id", roleID),
		zap.String("source", string(source)),
	)

	return &BriefingResult{
		ID:          log.ID,
		RoleID:      roleID,
		Briefing:    b,
		Source:      source,
		GeneratedAt: log.GeneratedAt,
	}, nil
}

func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func decodeList(raw string) []string {
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		return []string{}
	}
	return items
}
