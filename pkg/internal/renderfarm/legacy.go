package renderfarm

import "strings"

// ParseLegacyRenderInfo 解析旧式单字段渲染归属 "MUSTER:<job id>"，
// 拆成归属标识与作业号。入库时统一拆分，库内不再保留拼接形态.
func ParseLegacyRenderInfo(info string) (owner, jobID string, ok bool) {
	owner, jobID, found := strings.Cut(info, ":")
	if !found || owner == "" || jobID == "" {
		return "", "", false
	}

	return strings.ToLower(owner), jobID, true
}
