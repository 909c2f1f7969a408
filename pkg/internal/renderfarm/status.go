// Package renderfarm 对接 Muster 风格的渲染农场管理器：
// REST 客户端、作业/分块状态枚举，以及把农场侧作业状态
// 回写到文件档案的轮询器.
package renderfarm

import "fmt"

// JobStatus 农场侧作业状态，线上值为位掩码.
type JobStatus int

const (
	JobOnQueue JobStatus = 1 << iota
	JobStarted
	JobInProgressWarnings
	JobInProgressErrors
	JobPreJobAction
	JobPostJobAction
	JobPendingPreJobAction
	JobPendingPostJobAction
	JobPendingFrameCheck
	JobFrameCheck
	JobCompleted
	JobCompletedWithWarnings
	JobCompletedWithErrors
	JobPendingPostJobPyAction
	JobPostJobPyAction
	JobLocked
	JobArchived
	JobPaused
)

var jobStatusNames = map[JobStatus]string{
	JobOnQueue:                "ON_QUEUE",
	JobStarted:                "STARTED",
	JobInProgressWarnings:     "IN_PROGRESS_WARNINGS",
	JobInProgressErrors:       "IN_PROGRESS_ERRORS",
	JobPreJobAction:           "PRE_JOB_ACTION",
	JobPostJobAction:          "POST_JOB_ACTION",
	JobPendingPreJobAction:    "PENDING_PRE_JOB_ACTION",
	JobPendingPostJobAction:   "PENDING_POST_JOB_ACTION",
	JobPendingFrameCheck:      "PENDING_FRAME_CHECK",
	JobFrameCheck:             "FRAME_CHECK",
	JobCompleted:              "JOB_COMPLETED",
	JobCompletedWithWarnings:  "COMPLETED_WITH_WARNINGS",
	JobCompletedWithErrors:    "COMPLETED_WITH_ERRORS",
	JobPendingPostJobPyAction: "PENDING_POST_JOB_PY_ACTION",
	JobPostJobPyAction:        "POST_JOB_PY_ACTION",
	JobLocked:                 "LOCKED",
	JobArchived:               "ARCHIVED",
	JobPaused:                 "PAUSED",
}

// jobStatusValues 由名称表派生的反向索引，两个方向都是 O(1).
var jobStatusValues = func() map[string]JobStatus {
	m := make(map[string]JobStatus, len(jobStatusNames))
	for v, n := range jobStatusNames {
		m[n] = v
	}

	return m
}()

func (s JobStatus) String() string {
	if n, ok := jobStatusNames[s]; ok {
		return n
	}

	return fmt.Sprintf("JobStatus(%d)", int(s))
}

// ParseJobStatus 名称到状态值的解析.
func ParseJobStatus(name string) (JobStatus, bool) {
	s, ok := jobStatusValues[name]
	return s, ok
}

// ChunkStatus 农场侧分块状态，线上值为位掩码.
type ChunkStatus int

const (
	ChunkOnHold ChunkStatus = 1 << iota
	ChunkSubmitted
	ChunkCompleted
	ChunkWarning
	ChunkError
)

var chunkStatusNames = map[ChunkStatus]string{
	ChunkOnHold:    "ON_HOLD",
	ChunkSubmitted: "SUBMITTED",
	ChunkCompleted: "COMPLETED",
	ChunkWarning:   "WARNING",
	ChunkError:     "ERROR",
}

var chunkStatusValues = func() map[string]ChunkStatus {
	m := make(map[string]ChunkStatus, len(chunkStatusNames))
	for v, n := range chunkStatusNames {
		m[n] = v
	}

	return m
}()

func (s ChunkStatus) String() string {
	if n, ok := chunkStatusNames[s]; ok {
		return n
	}

	return fmt.Sprintf("ChunkStatus(%d)", int(s))
}

// ParseChunkStatus 名称到状态值的解析.
func ParseChunkStatus(name string) (ChunkStatus, bool) {
	s, ok := chunkStatusValues[name]
	return s, ok
}

// Terminal 分块是否已离开执行队列（完成、含警告完成或出错）.
// 进度按终态分块占比计算.
func (s ChunkStatus) Terminal() bool {
	return s == ChunkCompleted || s == ChunkWarning || s == ChunkError
}
