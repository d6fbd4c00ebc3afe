package app

import (
	"sort"
	"strings"
	"time"

	"feedstock/internal/types"
)

// BuildPrunePlan splits the builds of a channel into keep and delete
// sets.  Protected labels and prefixes always survive; keep_days and
// keep_last widen the keep set, never shrink it.
func BuildPrunePlan(builds []types.BuildInfo, policy types.BuildRetentionPolicy, now time.Time) types.BuildPrunePlan {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	normalized := normalizeRetentionPolicy(policy)
	protectedLabels := normalizeSet(normalized.ProtectLabels)
	protectedPrefixes := normalizeSet(normalized.ProtectPrefixes)

	keepIDs := map[string]struct{}{}
	grouped := map[string][]types.BuildInfo{}
	for _, build := range builds {
		current := build
		if strings.TrimSpace(current.Prefix) == "" {
			current.Prefix = inferBuildPrefix(current.BuildID)
		}
		if isProtected(current, protectedLabels, protectedPrefixes) {
			keepIDs[current.BuildID] = struct{}{}
		}
		if normalized.KeepDays > 0 && !current.CreatedAt.IsZero() {
			cutoff := now.AddDate(0, 0, -normalized.KeepDays)
			if !current.CreatedAt.Before(cutoff) {
				keepIDs[current.BuildID] = struct{}{}
			}
		}
		group := retentionGroupKey(current)
		grouped[group] = append(grouped[group], current)
	}

	if normalized.KeepLast > 0 {
		for _, group := range grouped {
			sorted := append([]types.BuildInfo(nil), group...)
			sort.Slice(sorted, func(i, j int) bool {
				if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
					return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
				}
				return sorted[i].BuildID < sorted[j].BuildID
			})
			limit := normalized.KeepLast
			if limit > len(sorted) {
				limit = len(sorted)
			}
			for i := 0; i < limit; i++ {
				keepIDs[sorted[i].BuildID] = struct{}{}
			}
		}
	}

	var keep []types.BuildInfo
	var del []types.BuildInfo
	for _, build := range builds {
		if _, ok := keepIDs[build.BuildID]; ok {
			keep = append(keep, build)
		} else {
			del = append(del, build)
		}
	}
	return types.BuildPrunePlan{Keep: keep, Delete: del}
}

func normalizeRetentionPolicy(policy types.BuildRetentionPolicy) types.BuildRetentionPolicy {
	normalized := policy
	if normalized.KeepLast < 0 {
		normalized.KeepLast = 0
	}
	if normalized.KeepDays < 0 {
		normalized.KeepDays = 0
	}
	return normalized
}

func normalizeSet(values []string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, value := range values {
		key := strings.ToLower(strings.TrimSpace(value))
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}

func isProtected(build types.BuildInfo, labels map[string]struct{}, prefixes map[string]struct{}) bool {
	if build.Label != "" {
		if _, ok := labels[strings.ToLower(build.Label)]; ok {
			return true
		}
	}
	if build.Prefix != "" {
		if _, ok := prefixes[strings.ToLower(build.Prefix)]; ok {
			return true
		}
	}
	return false
}

func inferBuildPrefix(buildID string) string {
	trimmed := strings.TrimSpace(buildID)
	if trimmed == "" {
		return ""
	}
	idx := strings.LastIndex(trimmed, "-")
	if idx <= 0 {
		return trimmed
	}
	return trimmed[:idx]
}

func retentionGroupKey(build types.BuildInfo) string {
	if strings.TrimSpace(build.Prefix) != "" {
		return "prefix:" + strings.ToLower(build.Prefix)
	}
	if strings.TrimSpace(build.Label) != "" {
		return "label:" + strings.ToLower(build.Label)
	}
	if strings.TrimSpace(build.Channel) != "" {
		return "channel:" + strings.ToLower(build.Channel)
	}
	return "default"
}
