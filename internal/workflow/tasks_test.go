package workflow

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeDownloader writes canned content, optionally failing the first
// few attempts.
type fakeDownloader struct {
	content  []byte
	failures int
	calls    int
}

func (f *fakeDownloader) DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient network error")
	}
	if onProgress != nil {
		onProgress(int64(len(f.content)), int64(len(f.content)))
	}
	return os.WriteFile(destPath, f.content, 0644)
}

func TestDownloadTask_StagesAndMoves(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "mod.zip")
	task := &DownloadTask{
		Client: &fakeDownloader{content: []byte("archive")},
		URL:    "https://example.com/mod.zip",
		Dest:   dest,
	}

	var gotProgress bool
	err := task.Run(context.Background(), func(written, total int64) { gotProgress = true })
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	content, err := os.ReadFile(dest)
	if err != nil || string(content) != "archive" {
		t.Errorf("dest content = %q, err = %v", content, err)
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Error("staging file left behind")
	}
	if !gotProgress {
		t.Error("no progress reported")
	}
}

func TestDownloadTask_RetriesThenSucceeds(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "mod.zip")
	dl := &fakeDownloader{content: []byte("archive"), failures: 2}
	task := &DownloadTask{
		Client:        dl,
		URL:           "https://example.com/mod.zip",
		Dest:          dest,
		MaxRetries:    3,
		RetryCooldown: 0.001,
		RetryExponent: 1,
	}

	if err := task.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run failed after retries: %v", err)
	}
	if dl.calls != 3 {
		t.Errorf("calls = %d, want 3", dl.calls)
	}
}

func TestDownloadTask_FailureLeavesNoArtifact(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "mod.zip")
	task := &DownloadTask{
		Client:        &fakeDownloader{failures: 10},
		URL:           "https://example.com/mod.zip",
		Dest:          dest,
		MaxRetries:    2,
		RetryCooldown: 0.001,
		RetryExponent: 1,
	}

	if err := task.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("failed download left a file under the final name")
	}
}

func TestDeleteTask_MissingPathIsNotAnError(t *testing.T) {
	task := &DeleteTask{Path: filepath.Join(t.TempDir(), "gone.zip")}
	if err := task.Run(context.Background(), nil); err != nil {
		t.Errorf("Run failed: %v", err)
	}
}

func TestMoveTask(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "staged.zip")
	dest := filepath.Join(dir, "cache", "mod.zip")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	task := &MoveTask{Src: src, Dest: dest}
	if err := task.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("destination missing: %v", err)
	}
}

func TestExtractTask(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "mod.zip")

	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	entry, _ := w.Create("TestMod/plugin.dll")
	entry.Write([]byte("plugin"))
	w.Close()
	f.Close()

	result := &ExtractResult{}
	task := &ExtractTask{
		Archive: archivePath,
		DestDir: filepath.Join(dir, "GameData"),
		Result:  result,
	}

	if err := task.Run(context.Background(), func(int64, int64) {}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Structure == nil || len(result.Installed) != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.Installed[0] != "TestMod/plugin.dll" {
		t.Errorf("installed = %v", result.Installed)
	}
}

func TestFuncTask(t *testing.T) {
	ran := false
	task := &FuncTask{TaskName: "register", Fn: func(ctx context.Context) error {
		ran = true
		return nil
	}}

	if task.Name() != "register" {
		t.Errorf("Name() = %q", task.Name())
	}
	if err := task.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !ran {
		t.Error("function not invoked")
	}
}
