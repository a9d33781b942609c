package reporting

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/hierflow/types"
)

// Report 一条层级报告。
type Report struct {
	ID        string           `json:"id"`
	Type      types.ReportType `json:"type"`
	AgentID   string           `json:"agent_id,omitempty"`
	Title     string           `json:"title"`
	Content   map[string]any   `json:"content,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Aggregator 报告聚合器。
type Aggregator struct {
	mu      sync.RWMutex
	reports []*Report

	logger *zap.Logger
}

// NewAggregator 创建报告聚合器。
func NewAggregator(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		logger: logger.With(zap.String("component", "report_aggregator")),
	}
}

// SubmitStatus 提交状态报告。
func (a *Aggregator) SubmitStatus(agentID, status string) *Report {
	return a.submit(&Report{
		Type:    types.ReportStatus,
		AgentID: agentID,
		Title:   fmt.Sprintf("status: %s", status),
		Content: map[string]any{"status": status},
	})
}

// SubmitProgress 提交进度报告，标题包含百分比。
func (a *Aggregator) SubmitProgress(agentID, taskID string, progress float64, note string) *Report {
	return a.submit(&Report{
		Type:    types.ReportProgress,
		AgentID: agentID,
		Title:   fmt.Sprintf("task %s at %.0f%%", taskID, progress*100),
		Content: map[string]any{
			"task_id":  taskID,
			"progress": progress,
			"note":     note,
		},
	})
}

// SubmitException 提交异常报告。
func (a *Aggregator) SubmitException(agentID, message string, severity types.Severity) *Report {
	if severity == "" {
		severity = types.SeverityError
	}
	rep := a.submit(&Report{
		Type:    types.ReportException,
		AgentID: agentID,
		Title:   fmt.Sprintf("exception: %s", message),
		Content: map[string]any{
			"message":  message,
			"severity": string(severity),
		},
	})
	a.logger.Warn("exception reported",
		zap.String("agent", agentID),
		zap.String("severity", string(severity)),
		zap.String("message", message))
	return rep
}

func (a *Aggregator) submit(rep *Report) *Report {
	rep.ID = uuid.NewString()
	rep.CreatedAt = time.Now()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.reports = append(a.reports, rep)
	return rep
}

// AggregateStatus 按 Agent 汇总各自最新的状态报告。
func (a *Aggregator) AggregateStatus() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	latest := make(map[string]string)
	for _, rep := range a.reports {
		if rep.Type != types.ReportStatus {
			continue
		}
		if status, ok := rep.Content["status"].(string); ok {
			latest[rep.AgentID] = status
		}
	}
	return map[string]any{
		"total_agents": len(latest),
		"statuses":     latest,
	}
}

// RollupProgress 按任务卷积进度：同一任务以最新报告为准，
// 进度达到 1.0 记为完成。
func (a *Aggregator) RollupProgress() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	latest := make(map[string]float64)
	for _, rep := range a.reports {
		if rep.Type != types.ReportProgress {
			continue
		}
		taskID, ok := rep.Content["task_id"].(string)
		if !ok {
			continue
		}
		if progress, ok := rep.Content["progress"].(float64); ok {
			latest[taskID] = progress
		}
	}

	completed := 0
	sum := 0.0
	for _, p := range latest {
		sum += p
		if p >= 1.0 {
			completed++
		}
	}
	avg := 0.0
	if len(latest) > 0 {
		avg = sum / float64(len(latest))
	}
	return map[string]any{
		"total_tasks":     len(latest),
		"completed_tasks": completed,
		"avg_progress":    avg,
	}
}

// GenerateDailySummary 生成最近 24 小时的汇总报告。
func (a *Aggregator) GenerateDailySummary() *Report {
	return a.summarize(types.ReportDaily, "daily summary", 24*time.Hour)
}

// GenerateWeeklySummary 生成最近 7 天的汇总报告。
func (a *Aggregator) GenerateWeeklySummary() *Report {
	return a.summarize(types.ReportWeekly, "weekly summary", 7*24*time.Hour)
}

func (a *Aggregator) summarize(reportType types.ReportType, title string, window time.Duration) *Report {
	a.mu.RLock()
	since := time.Now().Add(-window)
	byType := make(map[string]int)
	agents := make(map[string]bool)
	total := 0
	for _, rep := range a.reports {
		if rep.CreatedAt.Before(since) {
			continue
		}
		total++
		byType[string(rep.Type)]++
		if rep.AgentID != "" {
			agents[rep.AgentID] = true
		}
	}
	a.mu.RUnlock()

	return a.submit(&Report{
		Type:  reportType,
		Title: title,
		Content: map[string]any{
			"total_reports":   total,
			"reports_by_type": byType,
			"active_agents":   len(agents),
		},
	})
}

// GenerateCustomReport 按类型、Agent 与起始时间过滤生成自定义报表。
// 过滤条件为空表示不限制。
func (a *Aggregator) GenerateCustomReport(title string, reportTypes []types.ReportType, agentIDs []string, since time.Time) *Report {
	typeSet := make(map[types.ReportType]bool, len(reportTypes))
	for _, rt := range reportTypes {
		typeSet[rt] = true
	}
	agentSet := make(map[string]bool, len(agentIDs))
	for _, id := range agentIDs {
		agentSet[id] = true
	}

	a.mu.RLock()
	matching := 0
	for _, rep := range a.reports {
		if len(typeSet) > 0 && !typeSet[rep.Type] {
			continue
		}
		if len(agentSet) > 0 && !agentSet[rep.AgentID] {
			continue
		}
		if !since.IsZero() && rep.CreatedAt.Before(since) {
			continue
		}
		matching++
	}
	a.mu.RUnlock()

	return a.submit(&Report{
		Type:  types.ReportCustom,
		Title: title,
		Content: map[string]any{
			"total_matching": matching,
		},
	})
}

// Reports 按 Agent 与类型过滤报告，空参数表示不过滤。
func (a *Aggregator) Reports(agentID string, reportType types.ReportType) []*Report {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []*Report
	for _, rep := range a.reports {
		if agentID != "" && rep.AgentID != agentID {
			continue
		}
		if reportType != "" && rep.Type != reportType {
			continue
		}
		out = append(out, rep)
	}
	return out
}

// ReportCount 报告总数（含生成的汇总报表）。
func (a *Aggregator) ReportCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.reports)
}

// ExceptionCount 异常报告总数。
func (a *Aggregator) ExceptionCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	count := 0
	for _, rep := range a.reports {
		if rep.Type == types.ReportException {
			count++
		}
	}
	return count
}
