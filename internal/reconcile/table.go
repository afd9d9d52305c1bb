package reconcile

import (
	"fmt"
	"strings"

	"github.com/animus-labs/tfbridge/internal/domain"
)

// Verdict is the tag a condition reason maps to.
type Verdict string

const (
	VerdictQueued  Verdict = "queued"
	VerdictRunning Verdict = "running"
	// VerdictCompleted passes only when the condition type is Succeeded.
	VerdictCompleted Verdict = "completed"
	VerdictFailed    Verdict = "failed"
)

const conditionSucceeded = "succeeded"

// ReasonTable maps lowercase engine reasons to verdicts. Reasons missing from
// the table resolve to VerdictFailed.
type ReasonTable map[string]Verdict

func DefaultReasonTable() ReasonTable {
	return ReasonTable{
		"pending":            VerdictQueued,
		"pipelinerunpending": VerdictQueued,
		"started":            VerdictRunning,
		"running":            VerdictRunning,
		"completed":          VerdictCompleted,
		"succeeded":          VerdictCompleted,

		"failed":                   VerdictFailed,
		"cancelled":                VerdictFailed,
		"pipelineruncancelled":     VerdictFailed,
		"cancelledrunningfinally":  VerdictFailed,
		"stoppedrunningfinally":    VerdictFailed,
		"timeout":                  VerdictFailed,
		"pipelineruntimeout":       VerdictFailed,
		"validation-failed":        VerdictFailed,
		"pipelinevalidationfailed": VerdictFailed,
		"parameter-mismatch":       VerdictFailed,
		"parametertypemismatch":    VerdictFailed,
		"parametermissing":         VerdictFailed,
		"couldntgetpipeline":       VerdictFailed,
		"invalidworkspacebinding":  VerdictFailed,
	}
}

// ParseVerdict accepts the verdict names used in the operator file.
func ParseVerdict(raw string) (Verdict, error) {
	switch v := Verdict(strings.ToLower(strings.TrimSpace(raw))); v {
	case VerdictQueued, VerdictRunning, VerdictCompleted, VerdictFailed:
		return v, nil
	default:
		return "", fmt.Errorf("unknown verdict %q", raw)
	}
}

// Extend returns a copy with extra reasons layered over the receiver's.
func (t ReasonTable) Extend(extra map[string]Verdict) ReasonTable {
	out := make(ReasonTable, len(t)+len(extra))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range extra {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func (t ReasonTable) lookup(reason string) Verdict {
	if v, ok := t[strings.ToLower(strings.TrimSpace(reason))]; ok {
		return v
	}
	return VerdictFailed
}

// Snapshot maps engine conditions to a status snapshot. The condition of type
// Succeeded is significant when present, else the first one.
func (t ReasonTable) Snapshot(conditions []domain.Condition) domain.StatusSnapshot {
	if len(conditions) == 0 {
		return domain.StatusSnapshot{State: domain.RunStateNew, Result: domain.RunResultUnknown}
	}
	cond := conditions[0]
	for _, c := range conditions {
		if strings.EqualFold(strings.TrimSpace(c.Type), conditionSucceeded) {
			cond = c
			break
		}
	}

	snap := domain.StatusSnapshot{Reason: cond.Reason}
	switch t.lookup(cond.Reason) {
	case VerdictQueued:
		snap.State, snap.Result = domain.RunStateQueued, domain.RunResultUnknown
	case VerdictRunning:
		snap.State, snap.Result = domain.RunStateRunning, domain.RunResultUnknown
	case VerdictCompleted:
		snap.State, snap.Result = domain.RunStateComplete, domain.RunResultFailed
		if strings.EqualFold(strings.TrimSpace(cond.Type), conditionSucceeded) {
			snap.Result = domain.RunResultPassed
		}
	default:
		snap.State, snap.Result = domain.RunStateComplete, domain.RunResultFailed
	}
	return snap
}
