package types

import "time"

type BuildInfo struct {
	Channel   string
	BuildID   string
	Label     string
	Prefix    string
	CreatedAt time.Time
}

type BuildRetentionPolicy struct {
	KeepLast        int
	KeepDays        int
	ProtectLabels   []string
	ProtectPrefixes []string
	DryRun          bool
}

type BuildPrunePlan struct {
	Keep   []BuildInfo
	Delete []BuildInfo
}
