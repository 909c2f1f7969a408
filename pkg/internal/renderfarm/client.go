package renderfarm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sony/gobreaker"

	"github.com/yeisme/outputvault/pkg/cache"
	"github.com/yeisme/outputvault/pkg/configs"
)

// OwnerMuster 渲染作业归属标识，存入文件档案的 render_owner 字段.
const OwnerMuster = "muster"

var (
	// ErrServiceUnavailable 管理器不可达或登录失败，本轮轮询放弃.
	ErrServiceUnavailable = errors.New("render manager unavailable")
	// ErrUnauthorized 账号密码不被接受.
	ErrUnauthorized = errors.New("render manager rejected credentials")
	// ErrJobNotFound 作业不在队列中（已被移除或从未存在）.
	ErrJobNotFound = errors.New("render job not found")
)

// Chunk 作业分块的观测值.
type Chunk struct {
	ID       int
	Status   ChunkStatus
	Requeued int
}

// Job 作业的观测值.
type Job struct {
	ID         int
	Name       string
	Status     JobStatus
	Attributes map[string]string
}

// JobSpec 作业提交参数.
type JobSpec struct {
	Name       string
	JobFile    string
	Project    string
	Department string
	Pool       string
	Priority   int
	TemplateID int
	PacketSize int
	ParentID   int
	StartFrame int
	EndFrame   int
	ByFrame    int
	// Attributes 模板自定义属性，覆盖由上面字段推导的条目
	Attributes map[string]string
}

// Manager 渲染农场管理器操作口，测试与多农场接入用.
type Manager interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context)
	GetJob(ctx context.Context, jobID string) (*Job, error)
	GetChunks(ctx context.Context, jobID string) ([]Chunk, error)
	RequeueChunk(ctx context.Context, jobID string, chunkID int) error
	KillAndPause(ctx context.Context, jobID string) error
	SubmitJob(ctx context.Context, spec JobSpec) (string, error)
	Pools(ctx context.Context) ([]string, error)
	Instances(ctx context.Context) ([]string, error)
}

// envelope Muster REST 响应壳.
type envelope[T any] struct {
	ResponseData   T `json:"ResponseData"`
	ResponseStatus struct {
		ObjectID any `json:"objectId"`
	} `json:"ResponseStatus"`
}

type rawJob struct {
	ID         int    `json:"jobId"`
	Name       string `json:"name"`
	Status     int    `json:"status"`
	Attributes map[string]struct {
		Value string `json:"value"`
	} `json:"attributes"`
}

type rawChunk struct {
	ID       int `json:"chunkId"`
	Status   int `json:"status"`
	Requeued int `json:"requeued"`
}

// Client Muster REST 客户端.
// 出站请求经熔断器保护，池/实例清单走注入的 TTL 缓存.
type Client struct {
	cfg   configs.RenderFarmConfig
	http  *http.Client
	cb    *gobreaker.CircuitBreaker
	cache *cache.Cache

	mu    sync.Mutex
	token string
}

// NewClient 组装客户端. c 可为 nil（池/实例清单不缓存）.
func NewClient(cfg configs.RenderFarmConfig, cbCfg configs.CircuitBreakerConfig, c *cache.Cache) *Client {
	cli := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.GetRequestTimeout()},
		cache: c,
	}

	if cbCfg.Enabled {
		cli.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "render-manager",
			MaxRequests: cbCfg.MaxRequestsInHalf,
			Interval:    time.Duration(cbCfg.IntervalSeconds) * time.Second,
			Timeout:     time.Duration(cbCfg.TimeoutSeconds) * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cbCfg.MinRequests {
					return false
				}

				return float64(counts.TotalFailures)/float64(counts.Requests) >= cbCfg.FailureRate
			},
		})
	}

	return cli
}

// Login 建立会话并缓存鉴权令牌. 任何失败都按服务不可用处理.
func (c *Client) Login(ctx context.Context) error {
	params := url.Values{}
	params.Set("userName", c.cfg.Username)
	params.Set("password", c.cfg.Password)

	body, status, err := c.do(ctx, http.MethodGet, "/api/login", params, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: user %s", ErrUnauthorized, c.cfg.Username)
	}

	if status != http.StatusOK {
		return fmt.Errorf("%w: login status %d", ErrServiceUnavailable, status)
	}

	var resp envelope[struct {
		AuthToken string `json:"authToken"`
	}]
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: decode login: %v", ErrServiceUnavailable, err)
	}

	c.mu.Lock()
	c.token = resp.ResponseData.AuthToken
	c.mu.Unlock()

	return nil
}

// Logout 结束会话，失败只能忽略.
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	token := c.token
	c.token = ""
	c.mu.Unlock()

	if token == "" {
		return
	}

	params := url.Values{}
	params.Set("authToken", token)
	_, _, _ = c.do(ctx, http.MethodGet, "/api/logout", params, nil)
}

// GetJob 按作业号取队列记录.
func (c *Client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	params := c.authParams()
	params.Set("filter", "jobId:"+jobID)

	body, _, err := c.do(ctx, http.MethodPost, "/api/queue/list", params, nil)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}

	var resp envelope[struct {
		Queue []rawJob `json:"queue"`
	}]
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}

	if len(resp.ResponseData.Queue) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	raw := resp.ResponseData.Queue[0]
	job := &Job{
		ID:         raw.ID,
		Name:       raw.Name,
		Status:     JobStatus(raw.Status),
		Attributes: make(map[string]string, len(raw.Attributes)),
	}

	for k, attr := range raw.Attributes {
		job.Attributes[k] = attr.Value
	}

	return job, nil
}

// GetChunks 取作业分块清单. 作业被移除时返回空清单而非错误.
func (c *Client) GetChunks(ctx context.Context, jobID string) ([]Chunk, error) {
	params := c.authParams()
	params.Set("filter", "jobId:"+jobID)

	body, _, err := c.do(ctx, http.MethodPost, "/api/chunks/list", params, nil)
	if err != nil {
		return nil, fmt.Errorf("get chunks of %s: %w", jobID, err)
	}

	var resp envelope[struct {
		Chunks []rawChunk `json:"chunks"`
	}]
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode chunks of %s: %w", jobID, err)
	}

	chunks := make([]Chunk, 0, len(resp.ResponseData.Chunks))
	for _, raw := range resp.ResponseData.Chunks {
		chunks = append(chunks, Chunk{
			ID:       raw.ID,
			Status:   ChunkStatus(raw.Status),
			Requeued: raw.Requeued,
		})
	}

	return chunks, nil
}

// RequeueChunk 把分块重新挂回队列.
func (c *Client) RequeueChunk(ctx context.Context, jobID string, chunkID int) error {
	id, err := strconv.Atoi(jobID)
	if err != nil {
		return fmt.Errorf("requeue chunk: bad job id %q", jobID)
	}

	_, err = c.action(ctx, "/api/chunks/actions", "setOnHold",
		map[string]any{"jobId": id, "chunkId": chunkID})

	return err
}

// KillAndPause 终止并暂停作业.
func (c *Client) KillAndPause(ctx context.Context, jobID string) error {
	id, err := strconv.Atoi(jobID)
	if err != nil {
		return fmt.Errorf("kill and pause: bad job id %q", jobID)
	}

	_, err = c.action(ctx, "/api/queue/actions", "killAndPause",
		map[string]any{"jobId": id})

	return err
}

// SubmitJob 提交渲染作业，返回农场侧作业号.
func (c *Client) SubmitJob(ctx context.Context, spec JobSpec) (string, error) {
	resp, err := c.action(ctx, "/api/queue/actions", "submit",
		map[string]any{"job": buildJob(spec, c.cfg)})
	if err != nil {
		return "", err
	}

	jobID := objectID(resp)
	if jobID == "" {
		return "", fmt.Errorf("submit job %s: manager returned no job id", spec.Name)
	}

	return jobID, nil
}

// Pools 渲染池清单，经 TTL 缓存.
func (c *Client) Pools(ctx context.Context) ([]string, error) {
	return c.cachedList(ctx, "farm:pools", "/api/pools/list", "pools", "name")
}

// Instances 渲染节点清单，经 TTL 缓存.
func (c *Client) Instances(ctx context.Context) ([]string, error) {
	return c.cachedList(ctx, "farm:instances", "/api/instances/list", "instances", "hostName")
}

func (c *Client) cachedList(ctx context.Context, cacheKey, path, listKey, nameKey string) ([]string, error) {
	fetch := func() ([]string, error) {
		body, _, err := c.do(ctx, http.MethodPost, path, c.authParams(), nil)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", listKey, err)
		}

		var resp envelope[map[string][]map[string]string]
		if err := sonic.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode %s: %w", listKey, err)
		}

		names := make([]string, 0, len(resp.ResponseData[listKey]))
		for _, entry := range resp.ResponseData[listKey] {
			if n := entry[nameKey]; n != "" {
				names = append(names, n)
			}
		}

		return names, nil
	}

	if c.cache == nil {
		return fetch()
	}

	return cache.GetOrSet(ctx, c.cache, cacheKey, fetch, c.cfg.GetPoolCacheTTL())
}

// action 统一的 queue/chunks actions 调用.
func (c *Client) action(ctx context.Context, path, name string, requestData map[string]any) ([]byte, error) {
	payload, err := sonic.Marshal(map[string]any{"RequestData": requestData})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", name, err)
	}

	params := c.authParams()
	params.Set("name", name)

	body, status, err := c.do(ctx, http.MethodPost, path, params, payload)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", name, err)
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("action %s: status %d", name, status)
	}

	return body, nil
}

func (c *Client) authParams() url.Values {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	params := url.Values{}
	params.Set("authToken", token)

	return params
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body []byte) ([]byte, int, error) {
	exec := func() (any, error) {
		u := strings.TrimRight(c.cfg.Endpoint, "/") + path
		if len(params) > 0 {
			u += "?" + params.Encode()
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, err
		}

		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		return &httpResult{body: data, status: resp.StatusCode}, nil
	}

	var (
		res any
		err error
	)

	if c.cb != nil {
		res, err = c.cb.Execute(exec)
	} else {
		res, err = exec()
	}

	if err != nil {
		return nil, 0, err
	}

	r := res.(*httpResult)

	return r.body, r.status, nil
}

type httpResult struct {
	body   []byte
	status int
}

// objectID 从 actions 响应提取对象号，数字与字符串两种形态都接受.
func objectID(body []byte) string {
	var resp envelope[struct{}]
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return ""
	}

	switch v := resp.ResponseStatus.ObjectID.(type) {
	case string:
		return v
	case float64:
		return strconv.Itoa(int(v))
	default:
		return ""
	}
}

// buildJob 把提交参数铺成 Muster 模板属性表.
// 帧范围采用 "start-endxby" 记法.
func buildJob(spec JobSpec, cfg configs.RenderFarmConfig) map[string]any {
	job := map[string]any{
		"jobName": spec.Name,
		"type":    1,
	}

	priority := spec.Priority
	if priority == 0 {
		priority = cfg.DefaultPriority
	}

	job["priority"] = priority

	pool := spec.Pool
	if pool == "" {
		pool = cfg.DefaultPool
	}

	if pool != "" {
		job["includedPools"] = []string{pool}
	}

	if spec.TemplateID > 0 {
		job["templateId"] = spec.TemplateID
	}

	if spec.PacketSize > 0 {
		job["packetSize"] = spec.PacketSize
	}

	if spec.ParentID > 0 {
		job["parentId"] = spec.ParentID
	}

	if spec.Project != "" {
		job["project"] = spec.Project
	}

	if spec.Department != "" {
		job["department"] = spec.Department
	}

	attrs := map[string]any{}

	if spec.JobFile != "" {
		attrs["job_file"] = spec.JobFile
	}

	if spec.EndFrame >= spec.StartFrame && spec.EndFrame > 0 {
		by := spec.ByFrame
		if by <= 0 {
			by = 1
		}

		attrs["start_frame"] = strconv.Itoa(spec.StartFrame)
		attrs["end_frame"] = strconv.Itoa(spec.EndFrame)
		attrs["frames_range"] = fmt.Sprintf("%d-%dx%d", spec.StartFrame, spec.EndFrame, by)
	}

	for k, v := range spec.Attributes {
		attrs[k] = v
	}

	wrapped := make(map[string]any, len(attrs))
	for k, v := range attrs {
		wrapped[k] = map[string]any{"value": fmt.Sprint(v), "state": true, "subst": false}
	}

	job["attributes"] = wrapped

	return job
}
