// Package derive 决定一个输出文件应派生哪些次级产物，并驱动生成.
// 派生种类本身也是输出类型行（thumb_high、review_web...），策略按
// 父文件的输出类型短名查表.
package derive

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/outputvault/pkg/internal/model"
	"github.com/yeisme/outputvault/pkg/internal/repository"
	"github.com/yeisme/outputvault/pkg/internal/sequence"
	nlog "github.com/yeisme/outputvault/pkg/log"
)

// Kind 派生产物种类，同时作为对应 OutputType 的名称.
type Kind string

const (
	KindThumbHigh  Kind = "thumb_high"
	KindThumbLow   Kind = "thumb_low"
	KindReviewWeb  Kind = "review_web"
	KindReviewHigh Kind = "review_high"
	KindProxyExr   Kind = "proxy_exr"
	KindProxyJpeg  Kind = "proxy_jpeg"
)

// baseKinds 任何可识别媒体都派生的基础三件套.
var baseKinds = []Kind{KindThumbHigh, KindThumbLow, KindReviewWeb}

// extraKinds 按父文件输出类型短名附加的种类.
var extraKinds = map[string][]Kind{
	"comp_render": {KindReviewHigh, KindProxyExr},
	"cgi_render":  {KindReviewHigh, KindProxyExr},
	"plate":       {KindProxyExr},
	"edit":        {KindReviewHigh},
}

// imageExts / movieExts 可识别的媒体扩展名（小写、不含点）.
var (
	imageExts = map[string]bool{
		"dpx": true, "ari": true, "exr": true, "jpg": true,
		"jpeg": true, "png": true, "tga": true, "tif": true,
		"tiff": true, "bmp": true, "sgi": true, "psd": true,
	}

	movieExts = map[string]bool{
		"mov": true, "mp4": true, "r3d": true, "avi": true,
		"webm": true, "mkv": true, "mpg": true, "mxf": true,
	}
)

// IsImageExt 判断扩展名是否为可识别静帧格式.
func IsImageExt(ext string) bool { return imageExts[ext] }

// IsMovieExt 判断扩展名是否为可识别影片格式.
func IsMovieExt(ext string) bool { return movieExts[ext] }

// KindsFor 返回应派生的种类列表.
// 状态 IN RENDER（产物尚未落盘）或扩展名不可识别时返回空表，整体跳过.
func KindsFor(typeShortName, path string, status model.StatusName) []Kind {
	if status == model.StatusInRender {
		return nil
	}

	ext := sequence.Ext(path)
	if !imageExts[ext] && !movieExts[ext] {
		return nil
	}

	kinds := make([]Kind, 0, len(baseKinds)+2)
	kinds = append(kinds, baseKinds...)
	kinds = append(kinds, extraKinds[typeShortName]...)

	return kinds
}

// Policy 对照表驱动的派生规划器：为输出文件补齐缺失的 PENDING 衍生档案.
// 建档动作本身会发布 ov.children.new，由转码 worker 接力.
type Policy struct {
	repo *repository.Repo
}

// NewPolicy 创建规划器.
func NewPolicy(repo *repository.Repo) *Policy {
	return &Policy{repo: repo}
}

// PlanChildren 为输出文件建立全部缺失的衍生档案.
// 已存在的 (父文件, 种类) 组合静默跳过，重复规划是幂等的.
func (p *Policy) PlanChildren(ctx context.Context, file *model.OutputFile) ([]model.ChildrenFile, error) {
	ot, err := p.repo.GetOutputType(ctx, file.OutputTypeID)
	if err != nil {
		return nil, fmt.Errorf("plan children of %s: %w", file.ID, err)
	}

	status, err := p.repo.StatusNameByID(ctx, file.FileStatusID)
	if err != nil {
		return nil, fmt.Errorf("plan children of %s: %w", file.ID, err)
	}

	kinds := KindsFor(ot.ShortName, file.Path, status)
	if len(kinds) == 0 {
		nlog.Logger().Debug().
			Str("file_id", file.ID).
			Str("output_type", ot.ShortName).
			Str("status", string(status)).
			Msg("no derivation planned")

		return nil, nil
	}

	created := make([]model.ChildrenFile, 0, len(kinds))

	for _, kind := range kinds {
		kindType, err := p.repo.GetOrCreateOutputType(ctx, string(kind), string(kind))
		if err != nil {
			return created, fmt.Errorf("plan children of %s: %w", file.ID, err)
		}

		child, err := p.repo.CreateChildrenFile(ctx, file.ID, kindType.ID, file.Name, "")
		if errors.Is(err, repository.ErrEntryAlreadyExists) {
			continue
		} else if err != nil {
			return created, fmt.Errorf("plan children of %s kind %s: %w", file.ID, kind, err)
		}

		created = append(created, *child)
	}

	return created, nil
}
