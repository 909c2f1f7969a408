// Package sequence 处理帧序列路径记法.
// 序列以 printf 风格的帧号占位符表示（shot.%04d.exr），
// 带帧范围时在路径尾部追加 " [start-end]"，如
// "/render/shot010.%04d.exr [1001-1050]".
package sequence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

var (
	// rangeRe 匹配尾部帧范围后缀 " [1001-1050]".
	rangeRe = regexp.MustCompile(`^(.*) \[(\d+)-(\d+)\]$`)
	// patternRe 匹配帧号占位符 %d / %04d.
	patternRe = regexp.MustCompile(`%0?\d*d`)
)

// ErrMalformedRange 帧范围后缀格式不合法或上下界颠倒.
var ErrMalformedRange = fmt.Errorf("malformed frame range suffix")

// Ref 一条序列引用：帧号模式路径加起止帧.
type Ref struct {
	Pattern string // 含 %0Nd 占位符的路径
	Start   int
	End     int
}

// Parse 拆解带范围后缀的路径.
// 无后缀时返回原路径与 nil Ref；有后缀但格式非法时报错.
func Parse(path string) (string, *Ref, error) {
	m := rangeRe.FindStringSubmatch(path)
	if m == nil {
		// 看起来像范围后缀但没匹配上（如 "[a-b]"），按格式错误处理
		if strings.HasSuffix(path, "]") && strings.Contains(path, " [") {
			return "", nil, fmt.Errorf("%w: %q", ErrMalformedRange, path)
		}

		return path, nil, nil
	}

	start, _ := strconv.Atoi(m[2])
	end, _ := strconv.Atoi(m[3])

	if end < start {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedRange, path)
	}

	return m[1], &Ref{Pattern: m[1], Start: start, End: end}, nil
}

// IsPattern 判断路径是否含帧号占位符.
func IsPattern(path string) bool {
	return patternRe.MatchString(path)
}

// FramePath 将帧号代入模式路径.
func FramePath(pattern string, frame int) string {
	return patternRe.ReplaceAllStringFunc(pattern, func(verb string) string {
		return fmt.Sprintf(verb, frame)
	})
}

// Frames 返回 Ref 覆盖的帧数.
func (r *Ref) Frames() int {
	return r.End - r.Start + 1
}

// Expand 枚举序列的全部具体帧路径.
func (r *Ref) Expand() []string {
	paths := make([]string, 0, r.Frames())
	for f := r.Start; f <= r.End; f++ {
		paths = append(paths, FramePath(r.Pattern, f))
	}

	return paths
}

// Ext 提取路径扩展名（不含点，全小写），先剥离帧范围后缀.
// "/r/shot.%04d.EXR [1-5]" -> "exr".
func Ext(path string) string {
	base, _, err := Parse(path)
	if err != nil {
		base = path
	}

	ext := filepath.Ext(base)

	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// statConcurrency 磁盘 stat 并发上限，帧数大时避免打爆文件系统.
const statConcurrency = 16

// VerifyFrames 校验序列每一帧都已落盘且非空，任一帧缺失即失败（全有或全无）.
func VerifyFrames(ctx context.Context, r *Ref) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(statConcurrency)

	for _, p := range r.Expand() {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			return VerifyFile(p)
		})
	}

	return g.Wait()
}

// VerifyFile 校验单个文件存在且非空.
func VerifyFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if info.Size() == 0 {
		return fmt.Errorf("empty file %s", path)
	}

	return nil
}
