package sequence_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yeisme/outputvault/pkg/internal/sequence"
)

func TestParse(t *testing.T) {
	t.Run("带范围后缀", func(t *testing.T) {
		base, ref, err := sequence.Parse("/render/shot010.%04d.exr [1001-1050]")
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}

		if base != "/render/shot010.%04d.exr" {
			t.Errorf("base = %q", base)
		}

		if ref == nil || ref.Start != 1001 || ref.End != 1050 {
			t.Errorf("ref = %+v, want 1001-1050", ref)
		}

		if ref.Frames() != 50 {
			t.Errorf("Frames() = %d, want 50", ref.Frames())
		}
	})

	t.Run("无后缀", func(t *testing.T) {
		base, ref, err := sequence.Parse("/render/still.png")
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}

		if base != "/render/still.png" || ref != nil {
			t.Errorf("base=%q ref=%v, want 原路径与 nil", base, ref)
		}
	})

	t.Run("范围颠倒报错", func(t *testing.T) {
		_, _, err := sequence.Parse("/r/s.%04d.exr [50-10]")
		if !errors.Is(err, sequence.ErrMalformedRange) {
			t.Errorf("err = %v, want ErrMalformedRange", err)
		}
	})

	t.Run("非数字范围报错", func(t *testing.T) {
		_, _, err := sequence.Parse("/r/s.%04d.exr [a-b]")
		if !errors.Is(err, sequence.ErrMalformedRange) {
			t.Errorf("err = %v, want ErrMalformedRange", err)
		}
	})
}

func TestFramePath(t *testing.T) {
	got := sequence.FramePath("/r/shot.%04d.exr", 7)
	if got != "/r/shot.0007.exr" {
		t.Errorf("FramePath = %q", got)
	}

	if !sequence.IsPattern("/r/shot.%04d.exr") {
		t.Error("IsPattern 应识别 %04d")
	}

	if sequence.IsPattern("/r/shot.0001.exr") {
		t.Error("具体帧路径不应判定为模式")
	}
}

func TestExpand(t *testing.T) {
	ref := &sequence.Ref{Pattern: "/r/s.%04d.exr", Start: 1001, End: 1003}

	got := ref.Expand()
	want := []string{"/r/s.1001.exr", "/r/s.1002.exr", "/r/s.1003.exr"}

	if len(got) != len(want) {
		t.Fatalf("Expand len = %d, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expand[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExt(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/r/shot.%04d.exr [1001-1050]", "exr"},
		{"/r/comp.MOV", "mov"},
		{"/r/noext", ""},
	}

	for _, tt := range tests {
		if got := sequence.Ext(tt.in); got != tt.want {
			t.Errorf("Ext(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVerifyFrames(t *testing.T) {
	dir := t.TempDir()
	pattern := filepath.Join(dir, "s.%04d.exr")
	ref := &sequence.Ref{Pattern: pattern, Start: 1, End: 3}

	for f := 1; f <= 3; f++ {
		if err := os.WriteFile(sequence.FramePath(pattern, f), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if err := sequence.VerifyFrames(context.Background(), ref); err != nil {
		t.Errorf("全部帧就绪时应通过: %v", err)
	}

	// 清空其中一帧，校验应失败
	if err := os.WriteFile(sequence.FramePath(pattern, 2), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if err := sequence.VerifyFrames(context.Background(), ref); err == nil {
		t.Error("存在空帧时应失败")
	}

	// 缺帧同样失败
	if err := os.Remove(sequence.FramePath(pattern, 3)); err != nil {
		t.Fatal(err)
	}

	if err := sequence.VerifyFrames(context.Background(), ref); err == nil {
		t.Error("缺帧时应失败")
	}
}
