package ports

import "feedstock/internal/types"

type OutputPort interface {
	WriteLock(entries []types.LockEntry) error
	WriteRenderedRecipe(data []byte) error
	WriteUploadIntent(intent types.UploadIntent) error
	WritePinReport(report types.PinReport) error
	WriteResolvedRequirements(resolved []types.ResolvedRequirement) error
	WriteBuildManifest(manifest types.BuildManifest) error
}
