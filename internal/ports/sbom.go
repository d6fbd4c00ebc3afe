package ports

import "feedstock/internal/types"

type SBOMPort interface {
	WriteSBOM(channelDir string, buildID string, createdAt string, locks []types.LockEntry) error
}
