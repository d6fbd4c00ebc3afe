package ports

import "feedstock/internal/types"

type OutputReaderPort interface {
	ReadLock(path string) ([]types.LockEntry, error)
	ReadUploadIntent(path string) (types.UploadIntent, error)
	ReadPinReport(path string) (types.PinReport, error)
	ReadBuildManifest(path string) (types.BuildManifest, error)
}
