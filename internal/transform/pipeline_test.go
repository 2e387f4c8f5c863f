package transform_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"attachr/internal/domain"
	"attachr/internal/transform"
	"attachr/mocks"
)

type stagedInput struct {
	data []byte
	ext  string
}

func (s stagedInput) Bytes() []byte     { return s.data }
func (s stagedInput) Extension() string { return s.ext }

func pngInput() stagedInput {
	return stagedInput{data: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, ext: "png"}
}

func TestPipeline_Identity(t *testing.T) {
	p := transform.NewPipeline(nil, "", 0)
	in := pngInput()

	art, err := p.Run(context.Background(), domain.VersionOriginal, transform.Identity(), in)

	require.NoError(t, err)
	assert.False(t, art.Skipped)
	assert.Equal(t, in.data, art.Data)
	assert.Equal(t, "png", art.Ext)
}

func TestPipeline_Skip(t *testing.T) {
	runner := new(mocks.MockCommandRunner)
	p := transform.NewPipeline(runner, "", 0)

	art, err := p.Run(context.Background(), "thumb", transform.Skip(), pngInput())

	require.NoError(t, err)
	assert.True(t, art.Skipped)
	assert.Nil(t, art.Data)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_Command_Success(t *testing.T) {
	runner := new(mocks.MockCommandRunner)
	tempDir := t.TempDir()
	p := transform.NewPipeline(runner, tempDir, time.Minute)

	var gotArgs []string
	runner.On("Run", mock.Anything, "convert", mock.AnythingOfType("[]string")).
		Run(func(args mock.Arguments) {
			gotArgs = args.Get(2).([]string)
			output := gotArgs[len(gotArgs)-1]
			require.NoError(t, os.WriteFile(output, []byte("jpeg-bytes"), 0o600))
		}).
		Return([]byte(nil), nil)

	spec := transform.Command("convert", []string{"-strip", "-thumbnail", "250x250^"}, "jpg")
	art, err := p.Run(context.Background(), "thumb", spec, pngInput())

	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), art.Data)
	assert.Equal(t, "jpg", art.Ext)

	require.Len(t, gotArgs, 5)
	assert.Equal(t, "input.png", filepath.Base(gotArgs[0]))
	assert.Equal(t, []string{"-strip", "-thumbnail", "250x250^"}, gotArgs[1:4])
	assert.Equal(t, "output.jpg", filepath.Base(gotArgs[4]))

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp dir must be cleaned up")
	runner.AssertExpectations(t)
}

func TestPipeline_Command_OutputRoot(t *testing.T) {
	runner := new(mocks.MockCommandRunner)
	p := transform.NewPipeline(runner, t.TempDir(), time.Minute)

	var gotArgs []string
	runner.On("Run", mock.Anything, "pdftoppm", mock.AnythingOfType("[]string")).
		Run(func(args mock.Arguments) {
			gotArgs = args.Get(2).([]string)
			// pdftoppm -singlefile writes <root>.png
			root := gotArgs[len(gotArgs)-1]
			require.NoError(t, os.WriteFile(root+".png", []byte("png-bytes"), 0o600))
		}).
		Return([]byte(nil), nil)

	spec := transform.Command("pdftoppm", []string{"-png", "-singlefile", "{input}", "{output_root}"}, "png")
	art, err := p.Run(context.Background(), "preview", spec, stagedInput{data: []byte("%PDF-1.4"), ext: "pdf"})

	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), art.Data)
	assert.Equal(t, "png", art.Ext)
	assert.Equal(t, "input.pdf", filepath.Base(gotArgs[2]))
	assert.Equal(t, "output", filepath.Base(gotArgs[3]))
	runner.AssertExpectations(t)
}

func TestPipeline_Command_MissingOutput(t *testing.T) {
	runner := new(mocks.MockCommandRunner)
	p := transform.NewPipeline(runner, t.TempDir(), 0)

	runner.On("Run", mock.Anything, "convert", mock.Anything).Return([]byte(nil), nil)

	art, err := p.Run(context.Background(), "thumb", transform.Command("convert", nil, "jpg"), pngInput())

	assert.Nil(t, art)
	var terr *domain.TransformError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "thumb", terr.Version)
	assert.Contains(t, terr.Error(), "no output")
}

func TestPipeline_Command_NonZeroExit(t *testing.T) {
	runner := new(mocks.MockCommandRunner)
	tempDir := t.TempDir()
	p := transform.NewPipeline(runner, tempDir, 0)

	runner.On("Run", mock.Anything, "convert", mock.Anything).
		Return([]byte("convert: unable to open image"), errors.New("exit status 1"))

	_, err := p.Run(context.Background(), "thumb", transform.Command("convert", nil, "jpg"), pngInput())

	var terr *domain.TransformError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "convert: unable to open image", terr.Stderr)

	entries, _ := os.ReadDir(tempDir)
	assert.Empty(t, entries)
}

func TestPipeline_Command_Timeout(t *testing.T) {
	runner := new(mocks.MockCommandRunner)
	tempDir := t.TempDir()
	p := transform.NewPipeline(runner, tempDir, 20*time.Millisecond)

	runner.On("Run", mock.Anything, "ffmpeg", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return([]byte(nil), errors.New("signal: killed"))

	_, err := p.Run(context.Background(), "preview", transform.Command("ffmpeg", nil, "mp4"), pngInput())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	entries, _ := os.ReadDir(tempDir)
	assert.Empty(t, entries)
}

func TestPipeline_NoRunner(t *testing.T) {
	p := transform.NewPipeline(nil, "", 0)
	_, err := p.Run(context.Background(), "thumb", transform.Command("convert", nil, "jpg"), pngInput())

	var terr *domain.TransformError
	assert.ErrorAs(t, err, &terr)
}

func TestExecRunner_CopiesInputToOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	p := transform.NewPipeline(transform.NewExecRunner(), t.TempDir(), 10*time.Second)
	spec := transform.Command("sh", []string{"-c", `cp "$0" "$1"`, transform.InputPlaceholder, transform.OutputPlaceholder}, "png")

	art, err := p.Run(context.Background(), "copy", spec, pngInput())

	require.NoError(t, err)
	assert.Equal(t, pngInput().data, art.Data)
}

func TestExecRunner_FailureReturnsStderr(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	p := transform.NewPipeline(transform.NewExecRunner(), t.TempDir(), 10*time.Second)
	spec := transform.Command("sh", []string{"-c", "echo boom >&2; exit 3", transform.InputPlaceholder}, "png")

	_, err := p.Run(context.Background(), "broken", spec, pngInput())

	var terr *domain.TransformError
	require.ErrorAs(t, err, &terr)
	assert.Contains(t, terr.Stderr, "boom")
}
