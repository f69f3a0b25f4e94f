package workflow

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/modkeeper/modkeeper/internal/archive"
	"github.com/modkeeper/modkeeper/internal/imaging"
	ioutils "github.com/modkeeper/modkeeper/internal/io"
	"github.com/modkeeper/modkeeper/internal/model"
)

// Task is one atomic workflow step.
type Task interface {
	Name() string
	Run(ctx context.Context, progress func(written, total int64)) error
}

// Downloader is the transfer capability download tasks depend on.
// *webclient.Client implements it; tests substitute fakes.
type Downloader interface {
	DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error
}

// Fetcher is the in-memory fetch capability image tasks depend on.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// DownloadTask downloads a remote file to Dest. Content is staged at a
// temporary path and atomically moved into place only on full success,
// so a crash or failure never leaves a half-written artifact under the
// final name.
type DownloadTask struct {
	Client Downloader
	URL    string
	Dest   string

	// Retry policy; zero values mean a single attempt.
	MaxRetries    int
	RetryCooldown float64
	RetryExponent float64
}

func (t *DownloadTask) Name() string {
	return "download " + filepath.Base(t.Dest)
}

func (t *DownloadTask) Run(ctx context.Context, progress func(written, total int64)) error {
	staging := t.Dest + ".part"
	defer os.Remove(staging)

	if err := ioutils.EnsureDir(filepath.Dir(t.Dest)); err != nil {
		return err
	}

	attempts := t.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for tries := 0; tries < attempts; tries++ {
		err = t.Client.DownloadFile(ctx, t.URL, staging, progress)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return err
		}
		t.waitForRetry(ctx, tries)
	}
	if err != nil {
		return err
	}

	return os.Rename(staging, t.Dest)
}

func (t *DownloadTask) waitForRetry(ctx context.Context, tries int) {
	cooldown := t.RetryCooldown * math.Pow(t.RetryExponent, float64(tries))
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(cooldown * float64(time.Second))):
	}
}

// MoveTask moves a file into place, crossing file systems if needed.
type MoveTask struct {
	Src  string
	Dest string
}

func (t *MoveTask) Name() string {
	return "move " + filepath.Base(t.Dest)
}

func (t *MoveTask) Run(ctx context.Context, progress func(written, total int64)) error {
	return ioutils.MoveFile(t.Src, t.Dest)
}

// DeleteTask removes a file or directory tree. A missing path is not
// an error, so cleanup of an earlier partial run succeeds.
type DeleteTask struct {
	Path string
}

func (t *DeleteTask) Name() string {
	return "delete " + filepath.Base(t.Path)
}

func (t *DeleteTask) Run(ctx context.Context, progress func(written, total int64)) error {
	return os.RemoveAll(t.Path)
}

// ExtractResult carries an ExtractTask's outcome to later steps in the
// same workflow. Within-workflow ordering makes this safe to read from
// any subsequent task.
type ExtractResult struct {
	Structure *model.ModStructure
	Installed []string
}

// ExtractTask inspects an archive's structure and extracts its modules
// into DestDir.
type ExtractTask struct {
	Archive string
	DestDir string
	Result  *ExtractResult
}

func (t *ExtractTask) Name() string {
	return "extract " + filepath.Base(t.Archive)
}

func (t *ExtractTask) Run(ctx context.Context, progress func(written, total int64)) error {
	structure, err := archive.InspectStructure(t.Archive)
	if err != nil {
		return err
	}

	installed, err := archive.Extract(structure, t.DestDir)
	if err != nil {
		return err
	}

	if t.Result != nil {
		t.Result.Structure = structure
		t.Result.Installed = installed
	}
	progress(int64(len(installed)), int64(len(installed)))
	return nil
}

// CacheImageTask fetches a mod's thumbnail, resizes it and stores it
// in the image cache. Image problems never fail an install: any fetch
// or decode error is swallowed and only context cancellation is
// surfaced.
type CacheImageTask struct {
	Client    Fetcher
	URL       string
	Dest      string
	MaxWidth  int
	MaxHeight int
}

func (t *CacheImageTask) Name() string {
	return "cache image " + filepath.Base(t.Dest)
}

func (t *CacheImageTask) Run(ctx context.Context, progress func(written, total int64)) error {
	data, err := t.Client.Get(ctx, t.URL)
	if err != nil {
		return ctx.Err()
	}

	thumb, err := imaging.Thumbnail(data, t.MaxWidth, t.MaxHeight)
	if err != nil {
		return nil
	}

	if err := ioutils.EnsureDir(filepath.Dir(t.Dest)); err != nil {
		return nil
	}
	os.WriteFile(t.Dest, thumb, 0644)
	return nil
}

// FuncTask adapts a function to the Task interface. The orchestrator
// uses it for registry updates that must happen only after the
// preceding tasks succeeded.
type FuncTask struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (t *FuncTask) Name() string {
	return t.TaskName
}

func (t *FuncTask) Run(ctx context.Context, progress func(written, total int64)) error {
	return t.Fn(ctx)
}
