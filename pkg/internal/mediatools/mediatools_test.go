package mediatools_test

import (
	"context"
	"strings"
	"testing"

	"github.com/yeisme/outputvault/pkg/configs"
	"github.com/yeisme/outputvault/pkg/internal/mediatools"
)

type recordRunner struct {
	calls [][]string
}

func (r *recordRunner) Run(_ context.Context, name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil
}

func testTools(run mediatools.Runner) *mediatools.Tools {
	cfg := configs.MediaConfig{FFmpegBin: "ffmpeg", OiiotoolBin: "oiiotool"}
	return mediatools.NewWithRunner(cfg, run)
}

func TestResizeImage(t *testing.T) {
	run := &recordRunner{}
	tools := testTools(run)

	if err := tools.ResizeImage(context.Background(), "/in/a.exr", "/out/a.png", 200); err != nil {
		t.Fatalf("ResizeImage: %v", err)
	}

	got := strings.Join(run.calls[0], " ")
	want := "oiiotool /in/a.exr --pixelaspect 1.0 --resize 0x200 -o /out/a.png"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestResizeImageFullSize(t *testing.T) {
	run := &recordRunner{}
	tools := testTools(run)

	if err := tools.ResizeImage(context.Background(), "/in/a.exr", "/out/a.png", 0); err != nil {
		t.Fatalf("ResizeImage: %v", err)
	}

	got := strings.Join(run.calls[0], " ")
	if strings.Contains(got, "--resize") {
		t.Fatalf("full size call should not resize: %q", got)
	}
}

func TestReencodeSequence(t *testing.T) {
	run := &recordRunner{}
	tools := testTools(run)

	err := tools.ReencodeSequence(context.Background(), "/in/sh010.%04d.exr", "/out/sh010.%04d.exr", 1001, 1050, "")
	if err != nil {
		t.Fatalf("ReencodeSequence: %v", err)
	}

	got := strings.Join(run.calls[0], " ")
	for _, part := range []string{"--frames 1001-1050", "--compression dwaa:150"} {
		if !strings.Contains(got, part) {
			t.Fatalf("missing %q in %q", part, got)
		}
	}
}

func TestTranscodeWeb(t *testing.T) {
	run := &recordRunner{}
	tools := testTools(run)

	if err := tools.TranscodeWeb(context.Background(), "/in/edit.mov", "/out/edit.mp4", 0); err != nil {
		t.Fatalf("TranscodeWeb: %v", err)
	}

	got := strings.Join(run.calls[0], " ")
	for _, part := range []string{"-vcodec libx264", "-profile:v baseline", "pad=ceil(iw/2)*2:ceil(ih/2)*2"} {
		if !strings.Contains(got, part) {
			t.Fatalf("missing %q in %q", part, got)
		}
	}
	if strings.Contains(got, "-start_number") {
		t.Fatalf("movie input should not carry -start_number: %q", got)
	}
}

func TestTranscodeHighFromSequence(t *testing.T) {
	run := &recordRunner{}
	tools := testTools(run)

	if err := tools.TranscodeHigh(context.Background(), "/in/sh010.%04d.exr", "/out/sh010.mov", 1001); err != nil {
		t.Fatalf("TranscodeHigh: %v", err)
	}

	got := strings.Join(run.calls[0], " ")
	for _, part := range []string{"-start_number 1001", "-vcodec dnxhd", "-b:v 440M"} {
		if !strings.Contains(got, part) {
			t.Fatalf("missing %q in %q", part, got)
		}
	}
}

func TestExtractStill(t *testing.T) {
	run := &recordRunner{}
	tools := testTools(run)

	if err := tools.ExtractStill(context.Background(), "/in/edit.mov", "/out/edit.jpeg"); err != nil {
		t.Fatalf("ExtractStill: %v", err)
	}

	got := strings.Join(run.calls[0], " ")
	if !strings.Contains(got, "-vframes 1") {
		t.Fatalf("missing -vframes 1 in %q", got)
	}
}
