package adapters

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"feedstock/internal/ports"
	"feedstock/internal/types"
)

// ChannelFileAdapter publishes builds into a channel laid out on the
// local filesystem: builds/<id>.build metadata files, labels/<label>
// pointers and artifacts/<subdir>/ payloads.
type ChannelFileAdapter struct {
	Dir string
}

func NewChannelFileAdapter(dir string) ChannelFileAdapter {
	return ChannelFileAdapter{Dir: dir}
}

func (a ChannelFileAdapter) Upload(ctx context.Context, intent types.UploadIntent, artifactPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.checkDir(); err != nil {
		return err
	}
	if err := checkBuildID(intent.BuildID); err != nil {
		return err
	}
	buildsDir := filepath.Join(a.Dir, "builds")
	if err := os.MkdirAll(buildsDir, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create builds directory").
			WithCause(err)
	}
	metaPath := filepath.Join(buildsDir, intent.BuildID+".build")
	if _, err := os.Stat(metaPath); err == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg("build already exists")
	}
	if err := a.copyArtifact(intent, artifactPath); err != nil {
		return err
	}
	content := fmt.Sprintf(
		"build_id=%s\nchannel=%s\nlabel=%s\nsubdir=%s\nartifact=%s\ncreated_at=%s\nsha256=%s\n",
		intent.BuildID,
		intent.Channel,
		intent.Label,
		intent.Subdir,
		filepath.Base(artifactPath),
		intent.CreatedAt,
		intent.SHA256,
	)
	if err := os.WriteFile(metaPath, []byte(content), 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write build metadata").
			WithCause(err)
	}
	if strings.TrimSpace(intent.Label) != "" {
		return a.Promote(ctx, intent.BuildID, intent.Label)
	}
	return nil
}

func (a ChannelFileAdapter) Promote(ctx context.Context, buildID string, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.checkDir(); err != nil {
		return err
	}
	if err := checkBuildID(buildID); err != nil {
		return err
	}
	if strings.TrimSpace(label) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("label is empty")
	}
	metaPath := filepath.Join(a.Dir, "builds", buildID+".build")
	if _, err := os.Stat(metaPath); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("build not found")
	}
	labelsDir := filepath.Join(a.Dir, "labels")
	if err := os.MkdirAll(labelsDir, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create labels directory").
			WithCause(err)
	}
	path := filepath.Join(labelsDir, label)
	if err := os.WriteFile(path, []byte(buildID+"\n"), 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write label pointer").
			WithCause(err)
	}
	return nil
}

func (a ChannelFileAdapter) ListBuilds(ctx context.Context) ([]types.BuildInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := a.checkDir(); err != nil {
		return nil, err
	}
	buildsDir := filepath.Join(a.Dir, "builds")
	entries, err := os.ReadDir(buildsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []types.BuildInfo{}, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read builds directory").
			WithCause(err)
	}
	var builds []types.BuildInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".build") {
			continue
		}
		buildID := strings.TrimSuffix(entry.Name(), ".build")
		info, err := entry.Info()
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read build info").
				WithCause(err)
		}
		build := types.BuildInfo{
			BuildID:   buildID,
			Prefix:    buildPrefix(buildID),
			CreatedAt: info.ModTime().UTC(),
		}
		meta, err := readBuildMeta(filepath.Join(buildsDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		build.Channel = meta["channel"]
		if created := meta["created_at"]; created != "" {
			if stamp, err := time.Parse(time.RFC3339, created); err == nil {
				build.CreatedAt = stamp.UTC()
			}
		}
		builds = append(builds, build)
	}
	if err := a.applyLabelMappings(builds); err != nil {
		return nil, err
	}
	return builds, nil
}

func (a ChannelFileAdapter) DeleteBuild(ctx context.Context, buildID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.checkDir(); err != nil {
		return err
	}
	if err := checkBuildID(buildID); err != nil {
		return err
	}
	path := filepath.Join(a.Dir, "builds", buildID+".build")
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("build not found")
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to delete build").
			WithCause(err)
	}
	return nil
}

func (a ChannelFileAdapter) copyArtifact(intent types.UploadIntent, artifactPath string) error {
	src, err := os.Open(artifactPath)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("artifact not found").
			WithCause(err)
	}
	defer src.Close()
	artifactsDir := filepath.Join(a.Dir, "artifacts", intent.Subdir)
	if err := os.MkdirAll(artifactsDir, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create artifacts directory").
			WithCause(err)
	}
	dst, err := os.Create(filepath.Join(artifactsDir, filepath.Base(artifactPath)))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create artifact copy").
			WithCause(err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to copy artifact").
			WithCause(err)
	}
	return nil
}

func (a ChannelFileAdapter) applyLabelMappings(builds []types.BuildInfo) error {
	labelsDir := filepath.Join(a.Dir, "labels")
	entries, err := os.ReadDir(labelsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read labels directory").
			WithCause(err)
	}
	mapping := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(labelsDir, entry.Name()))
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read label pointer").
				WithCause(err)
		}
		buildID := strings.TrimSpace(string(content))
		if buildID == "" {
			continue
		}
		mapping[buildID] = entry.Name()
	}
	for i := range builds {
		if label, ok := mapping[builds[i].BuildID]; ok {
			builds[i].Label = label
		}
	}
	return nil
}

func (a ChannelFileAdapter) checkDir() error {
	if strings.TrimSpace(a.Dir) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("channel directory is empty")
	}
	return nil
}

func checkBuildID(buildID string) error {
	if strings.TrimSpace(buildID) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("build id is empty")
	}
	if strings.Contains(buildID, string(os.PathSeparator)) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("build id contains path separator")
	}
	return nil
}

// buildPrefix returns the package name part of a build id of the form
// <name>-<hash>.
func buildPrefix(buildID string) string {
	idx := strings.LastIndex(buildID, "-")
	if idx <= 0 {
		return buildID
	}
	return buildID[:idx]
}

func readBuildMeta(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read build metadata").
			WithCause(err)
	}
	meta := map[string]string{}
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		meta[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return meta, nil
}

var _ ports.ChannelPort = ChannelFileAdapter{}
