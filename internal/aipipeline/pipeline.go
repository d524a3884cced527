package aipipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/privacy"
	"github.com/bloglens/intel-service/internal/repository"
	"github.com/bloglens/intel-service/internal/taskqueue"
)

const systemPrompt = `You are an analyst profiling an Instagram blogger from their public profile, recent posts, and story highlights. Return a structured assessment covering demographics, lifestyle signals, content style, commercial activity, audience composition, and marketing fit. Base every field strictly on observable evidence; leave a field null rather than guessing.`

// Pipeline drives batch submission, polling, and reconciliation. It
// groups ai_analysis tasks by blog, submits one provider request per
// blog keyed by blog id (never task id — a blog can carry exactly one
// pending ai_analysis task, but the batch's own identity namespace is
// the blog, matching how results are reconciled back).
type Pipeline struct {
	provider Provider
	blogs    repository.BlogRepository
	queue    *taskqueue.Queue
	logger   *log.Logger

	batchMinSize  int
	batchMaxWait  time.Duration
}

func New(provider Provider, blogs repository.BlogRepository, queue *taskqueue.Queue, batchMinSize int, batchMaxWait time.Duration, logger *log.Logger) *Pipeline {
	return &Pipeline{
		provider:     provider,
		blogs:        blogs,
		queue:        queue,
		logger:       logger,
		batchMinSize: batchMinSize,
		batchMaxWait: batchMaxWait,
	}
}

// ShouldSubmit decides whether enough ai_analysis tasks have
// accumulated to submit a batch now: either the pending count reached
// batchMinSize, or the oldest pending task has waited past
// batchMaxWait.
func (p *Pipeline) ShouldSubmit(ctx context.Context) (bool, []domain.Task, error) {
	tasks, err := p.queue.PendingAIAnalysis(ctx, 10000)
	if err != nil {
		return false, nil, fmt.Errorf("list pending ai_analysis: %w", err)
	}
	if len(tasks) == 0 {
		return false, nil, nil
	}
	if len(tasks) >= p.batchMinSize {
		return true, tasks, nil
	}
	oldest := tasks[0].CreatedAt
	for _, t := range tasks {
		if t.CreatedAt.Before(oldest) {
			oldest = t.CreatedAt
		}
	}
	if time.Since(oldest) >= p.batchMaxWait {
		return true, tasks, nil
	}
	return false, nil, nil
}

// Submit builds one batch request line per distinct blog referenced by
// tasks, uploads the JSONL file, creates the batch, claims the tasks
// as running, and stamps payload.batch_id on all of them.
func (p *Pipeline) Submit(ctx context.Context, tasks []domain.Task) (string, error) {
	blogIDs := make([]string, 0, len(tasks))
	seen := make(map[string]bool)
	taskIDs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
		if t.BlogID == nil || *t.BlogID == "" || seen[*t.BlogID] {
			continue
		}
		seen[*t.BlogID] = true
		blogIDs = append(blogIDs, *t.BlogID)
	}

	blogs, err := p.blogs.GetByIDs(ctx, blogIDs)
	if err != nil {
		return "", fmt.Errorf("load blogs for batch: %w", err)
	}

	var jsonl bytes.Buffer
	for _, blog := range blogs {
		textOnly := false
		for _, t := range tasks {
			if t.BlogID != nil && *t.BlogID == blog.ID {
				textOnly = t.Payload.TextOnly
				break
			}
		}
		line, err := buildRequestLine(blog, textOnly)
		if err != nil {
			return "", fmt.Errorf("build request line for blog %s: %w", blog.ID, err)
		}
		jsonl.Write(line)
		jsonl.WriteByte('\n')
	}

	fileID, err := p.provider.UploadBatchFile(ctx, jsonl.Bytes())
	if err != nil {
		return "", fmt.Errorf("upload batch file: %w", err)
	}
	handle, err := p.provider.CreateBatch(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("create batch: %w", err)
	}

	if err := p.queue.MarkRunningBatch(ctx, taskIDs); err != nil {
		return "", fmt.Errorf("mark tasks running for batch: %w", err)
	}
	if err := p.queue.SetPayloadBatchID(ctx, taskIDs, handle.ID); err != nil {
		return "", fmt.Errorf("stamp batch id on tasks: %w", err)
	}

	p.logf("submitted batch %s with %d blogs (%d tasks)", handle.ID, len(blogs), len(tasks))
	return handle.ID, nil
}

// buildRequestLine renders one JSONL line. custom_id is the blog id —
// confirmed against the original pipeline's request builder — so a
// poll/reconcile pass can key results by blog regardless of how many
// tasks ultimately reference that blog.
func buildRequestLine(blog domain.Blog, textOnly bool) ([]byte, error) {
	userContent := renderProfileForAnalysis(blog, textOnly)

	body := map[string]any{
		"model": "gpt-4.1-mini",
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userContent},
		},
		"response_format": ResponseSchema(),
	}

	line := map[string]any{
		"custom_id": blog.ID,
		"method":    "POST",
		"url":       "/v1/chat/completions",
		"body":      body,
	}
	return json.Marshal(line)
}

// renderProfileForAnalysis masks contact-detail PII out of the bio and
// full name before they reach the provider — bios routinely carry a
// business email or WhatsApp number, neither of which the model needs
// to infer demographics or content style.
func renderProfileForAnalysis(blog domain.Blog, textOnly bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Username: @%s\n", blog.Username)
	fmt.Fprintf(&b, "Full name: %s\n", privacy.MaskPIIString(blog.FullName))
	fmt.Fprintf(&b, "Bio: %s\n", privacy.MaskPIIString(blog.Bio))
	fmt.Fprintf(&b, "Followers: %d, Following: %d, Posts: %d\n", blog.FollowersCount, blog.FollowingCount, blog.MediaCount)
	fmt.Fprintf(&b, "Verified: %t, Business account: %t\n", blog.IsVerified, blog.IsBusiness)
	if textOnly {
		b.WriteString("(retry without image inputs after a prior refusal)\n")
	}
	return b.String()
}

// Poll retrieves the batch's current state from the provider.
func (p *Pipeline) Poll(ctx context.Context, batchID string) (BatchHandle, error) {
	return p.provider.RetrieveBatch(ctx, batchID)
}

// Reconcile processes a batch that has reached a terminal-or-expired
// state: it downloads the results file (if any), keys results by blog
// id, and fans each result out to every task mapped to that blog via
// the batch id. A blog id present in the provider's result set with a
// refusal gets a one-time text-only retry chain; a blog id absent
// from an expired batch's results fails-with-retry immediately rather
// than waiting for the stale-batch sweep.
func (p *Pipeline) Reconcile(ctx context.Context, handle BatchHandle, tasksByBlog map[string][]domain.Task) error {
	results := make(map[string]ResultLine)
	if handle.OutputFileID != "" {
		raw, err := p.provider.DownloadFile(ctx, handle.OutputFileID)
		if err != nil {
			return fmt.Errorf("download batch results: %w", err)
		}
		results, err = parseResultLines(raw)
		if err != nil {
			return fmt.Errorf("parse batch results: %w", err)
		}
		if handle.RequestCounts.Total > 0 && len(results) != handle.RequestCounts.Total {
			p.logf("batch %s: provider reported %d requests but results file has %d lines", handle.ID, handle.RequestCounts.Total, len(results))
		}
	}

	for blogID, tasks := range tasksByBlog {
		result, found := results[blogID]
		switch {
		case found && result.Refusal != "":
			p.handleRefusal(ctx, blogID, result.Refusal, tasks)
		case found && result.Content != "":
			p.handleSuccess(ctx, blogID, result.Content, tasks)
		case found:
			p.handleProviderError(ctx, blogID, result, tasks)
		case handle.Status == BatchExpired:
			p.failTasks(ctx, tasks, fmt.Errorf("batch %s expired before blog %s was processed", handle.ID, blogID))
		default:
			// Missing from a non-expired batch: leave the tasks running
			// for the stale-batch retry sweep to pick up later.
		}
	}
	return nil
}

func (p *Pipeline) handleSuccess(ctx context.Context, blogID, content string, tasks []domain.Task) {
	var insights domain.AIInsights
	decoder := json.NewDecoder(strings.NewReader(content))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&insights); err != nil {
		p.failTasks(ctx, tasks, fmt.Errorf("decode ai insights for blog %s: %w", blogID, err))
		return
	}
	if err := p.blogs.SaveInsights(ctx, blogID, insights, []byte(content)); err != nil {
		p.failTasks(ctx, tasks, fmt.Errorf("save insights for blog %s: %w", blogID, err))
		return
	}
	for _, t := range tasks {
		if err := p.queue.Complete(ctx, t.ID); err != nil {
			p.logf("mark ai_analysis task %s done failed: %v", t.ID, err)
		}
	}
}

// handleRefusal stamps a refusal reason and, for a first refusal,
// re-enqueues a text-only retry task; a second refusal on the same
// blog is terminal.
func (p *Pipeline) handleRefusal(ctx context.Context, blogID, reason string, tasks []domain.Task) {
	alreadyTextOnly := false
	for _, t := range tasks {
		if t.Payload.TextOnly {
			alreadyTextOnly = true
		}
	}
	insights := domain.AIInsights{RefusalReason: reason}
	raw, _ := json.Marshal(insights)
	if err := p.blogs.SaveInsights(ctx, blogID, insights, raw); err != nil {
		p.logf("save refusal for blog %s failed: %v", blogID, err)
	}

	if alreadyTextOnly {
		refusedTwice := fmt.Errorf("ai provider refused blog %s twice: %s", blogID, reason)
		for _, t := range tasks {
			if err := p.queue.FailPermanently(ctx, t.ID, refusedTwice); err != nil {
				p.logf("record failure for task %s failed: %v", t.ID, err)
			}
		}
		return
	}

	for _, t := range tasks {
		if err := p.queue.Complete(ctx, t.ID); err != nil {
			p.logf("mark refused ai_analysis task %s done failed: %v", t.ID, err)
		}
	}
	if _, err := p.queue.Enqueue(ctx, blogID, domain.TaskAIAnalysis, taskqueue.PriorityNormal, map[string]any{"text_only": true}); err != nil {
		p.logf("enqueue text-only retry for blog %s failed: %v", blogID, err)
	}
}

func (p *Pipeline) handleProviderError(ctx context.Context, blogID string, result ResultLine, tasks []domain.Task) {
	message := result.Error
	if message == "" {
		message = fmt.Sprintf("provider returned status %d with no content", result.StatusCode)
	}
	p.failTasks(ctx, tasks, fmt.Errorf("ai provider error for blog %s: %s", blogID, message))
}

func (p *Pipeline) failTasks(ctx context.Context, tasks []domain.Task, err error) {
	for _, t := range tasks {
		if failErr := p.queue.Fail(ctx, t, err); failErr != nil {
			p.logf("record failure for task %s failed: %v", t.ID, failErr)
		}
	}
}

func parseResultLines(raw []byte) (map[string]ResultLine, error) {
	results := make(map[string]ResultLine)
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var wire struct {
			CustomID string `json:"custom_id"`
			Response *struct {
				StatusCode int `json:"status_code"`
				Body       struct {
					Choices []struct {
						Message struct {
							Content  string `json:"content"`
							Refusal  string `json:"refusal"`
						} `json:"message"`
					} `json:"choices"`
				} `json:"body"`
			} `json:"response"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(line, &wire); err != nil {
			return nil, fmt.Errorf("decode result line: %w", err)
		}
		entry := ResultLine{CustomID: wire.CustomID}
		if wire.Error != nil {
			entry.Error = wire.Error.Message
			results[wire.CustomID] = entry
			continue
		}
		if wire.Response == nil {
			entry.Error = "missing response envelope"
			results[wire.CustomID] = entry
			continue
		}
		entry.StatusCode = wire.Response.StatusCode
		if len(wire.Response.Body.Choices) == 0 {
			entry.Error = "empty choices array"
			results[wire.CustomID] = entry
			continue
		}
		message := wire.Response.Body.Choices[0].Message
		if message.Refusal != "" {
			entry.Refusal = message.Refusal
		} else {
			entry.Content = message.Content
		}
		results[wire.CustomID] = entry
	}
	return results, nil
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}
