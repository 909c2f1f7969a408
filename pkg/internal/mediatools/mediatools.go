// Package mediatools 封装外部媒体工具（oiiotool、ffmpeg）的调用契约.
// 每次调用取一个输入路径（可为帧序列模式）产出恰好一个输出路径，
// 成功与否由调用方以"输出存在且非空"判定.
package mediatools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/yeisme/outputvault/pkg/configs"
	nlog "github.com/yeisme/outputvault/pkg/log"
)

// Runner 外部命令执行口，测试中替换为 fake 记录调用.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner 真实 exec 执行，stderr 进错误信息.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	nlog.Logger().Debug().Str("cmd", name).Strs("args", args).Msg("exec media tool")

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, stderr.String())
	}

	return nil
}

// Tools 媒体工具链.
type Tools struct {
	cfg configs.MediaConfig
	run Runner
}

// New 使用全局配置与真实执行器.
func New() *Tools {
	return &Tools{cfg: configs.GetConfig().Media, run: ExecRunner{}}
}

// NewWithRunner 注入执行器，测试用.
func NewWithRunner(cfg configs.MediaConfig, run Runner) *Tools {
	return &Tools{cfg: cfg, run: run}
}

// withTimeout 配置了转码超时则收紧上下文；0 表示不限制（已知缺口，见配置注释）.
func (t *Tools) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := t.cfg.GetTimeout(); d > 0 {
		return context.WithTimeout(ctx, d)
	}

	return ctx, func() {}
}

// ResizeImage 生成静帧缩略图. maxHeight > 0 时等比缩放到该高度（宽度自适应）.
func (t *Tools) ResizeImage(ctx context.Context, in, out string, maxHeight int) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	args := []string{in, "--pixelaspect", "1.0"}
	if maxHeight > 0 {
		args = append(args, "--resize", "0x"+strconv.Itoa(maxHeight))
	}

	args = append(args, "-o", out)

	return t.run.Run(ctx, t.cfg.OiiotoolBin, args...)
}

// ReencodeSequence 重编码整段帧序列为低成本中间格式（dwaa 压缩）.
// 输入输出均为 %0Nd 模式路径，--frames 限定起止帧.
func (t *Tools) ReencodeSequence(ctx context.Context, inPattern, outPattern string, start, end int, compression string) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	if compression == "" {
		compression = "dwaa:150"
	}

	args := []string{
		"--frames", fmt.Sprintf("%d-%d", start, end),
		inPattern,
		"--pixelaspect", "1.0",
		"--compression", compression,
		"-o", outPattern,
	}

	return t.run.Run(ctx, t.cfg.OiiotoolBin, args...)
}

// TranscodeWeb 转 Web 审看档：h264 baseline + 偶数边填充，浏览器兼容.
// start > 0 时输入按帧序列处理.
func (t *Tools) TranscodeWeb(ctx context.Context, in, out string, start int) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	args := inputArgs(in, start)
	args = append(args,
		"-vcodec", "libx264",
		"-profile:v", "baseline",
		"-pix_fmt", "yuv420p",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-movflags", "+faststart",
		"-y", out,
	)

	return t.run.Run(ctx, t.cfg.FFmpegBin, args...)
}

// TranscodeHigh 转高质量审看档：dnxhd 440M，供调色/终审.
func (t *Tools) TranscodeHigh(ctx context.Context, in, out string, start int) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	args := inputArgs(in, start)
	args = append(args,
		"-vcodec", "dnxhd",
		"-b:v", "440M",
		"-pix_fmt", "yuv422p",
		"-y", out,
	)

	return t.run.Run(ctx, t.cfg.FFmpegBin, args...)
}

// ExtractStill 从影片抽取单帧静图.
func (t *Tools) ExtractStill(ctx context.Context, in, out string) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	return t.run.Run(ctx, t.cfg.FFmpegBin,
		"-i", in,
		"-vframes", "1",
		"-y", out,
	)
}

func inputArgs(in string, start int) []string {
	if start > 0 {
		return []string{"-start_number", strconv.Itoa(start), "-i", in}
	}

	return []string{"-i", in}
}
