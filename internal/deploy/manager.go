package deploy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/offline-hub/offline-hub/internal/cache"
	"github.com/offline-hub/offline-hub/internal/logging"
	"github.com/offline-hub/offline-hub/internal/manifest"
	"github.com/offline-hub/offline-hub/internal/origin"
)

// State 描述部署生命周期的当前阶段。
type State string

const (
	StateUninstalled State = "uninstalled"
	StateInstalling  State = "installing"
	StateUpdating    State = "updating"
	StateActive      State = "active"
)

// Options 汇总构造 Manager 所需的依赖与部署参数。
type Options struct {
	Store    cache.Store
	Fetcher  origin.Fetcher
	Logger   *logrus.Logger
	AppName  string
	Version  int
	Manifest manifest.Manifest
}

// Manager 持有部署状态记录：当前阶段与激活中的 store 版本引用。
// activeStore 仅在 Activate 成功时更新，Resolve 始终以它为准。
type Manager struct {
	store    cache.Store
	fetcher  origin.Fetcher
	logger   *logrus.Logger
	appName  string
	version  int
	manifest manifest.Manifest

	// lifecycleMu 串行化 Install/Activate，对应宿主环境按生命周期事件排队的语义。
	lifecycleMu sync.Mutex

	stateMu     sync.RWMutex
	state       State
	activeStore string
	populated   bool
}

// NewManager 校验依赖并构造 Manager，初始状态为 Uninstalled。
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("origin fetcher is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if err := manifest.ValidateAppName(opts.AppName); err != nil {
		return nil, err
	}
	if opts.Version < 1 {
		return nil, fmt.Errorf("invalid version: %d", opts.Version)
	}
	if opts.Manifest.Len() == 0 {
		return nil, errors.New("manifest is empty")
	}

	return &Manager{
		store:    opts.Store,
		fetcher:  opts.Fetcher,
		logger:   opts.Logger,
		appName:  opts.AppName,
		version:  opts.Version,
		manifest: opts.Manifest,
		state:    StateUninstalled,
	}, nil
}

// TargetStoreName 返回本次部署要填充的 store 名称（<appName>-v<N>）。
func (m *Manager) TargetStoreName() string {
	return manifest.StoreName(m.appName, m.version)
}

// ActiveStore 返回当前激活的 store 名称；尚未激活任何版本时 ok=false。
func (m *Manager) ActiveStore() (string, bool) {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.activeStore, m.activeStore != ""
}

// State 返回当前生命周期阶段。
func (m *Manager) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// ManifestLen 返回清单条目数，供诊断接口输出。
func (m *Manager) ManifestLen() int {
	return m.manifest.Len()
}

// Install 依序抓取 manifest 中的每个资源并写入目标 store。
// 任一条目失败都会中止安装并返回 PopulationError；已写入的条目保留在磁盘上
// （记录在案的弱点：部分填充的 store 需由下一次成功安装覆盖），
// 先前激活的版本不受影响。
func (m *Manager) Install(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	storeName := m.TargetStoreName()
	m.enterInstalling()

	fields := logging.DeployFields("install", storeName, m.version)
	fields["entries"] = m.manifest.Len()
	m.logger.WithFields(fields).Info("开始填充离线资源")

	for _, path := range m.manifest.Entries() {
		if err := m.populateEntry(ctx, storeName, path); err != nil {
			m.abortInstall()
			m.logger.WithError(err).WithFields(logging.DeployFields("install", storeName, m.version)).Error("填充失败")
			return err
		}
	}

	m.stateMu.Lock()
	m.populated = true
	m.stateMu.Unlock()

	m.logger.WithFields(fields).Info("填充完成")
	return nil
}

// Activate 将激活引用切换到刚填充完成的 store，并清理所有其它 store。
// 未经过成功 Install 直接调用会返回 ErrNotPopulated。
func (m *Manager) Activate(ctx context.Context) ([]EvictionResult, error) {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	m.stateMu.Lock()
	if !m.populated {
		m.stateMu.Unlock()
		return nil, ErrNotPopulated
	}
	storeName := m.TargetStoreName()
	m.activeStore = storeName
	m.state = StateActive
	m.stateMu.Unlock()

	m.logger.WithFields(logging.DeployFields("activate", storeName, m.version)).Info("版本已激活")
	return m.evictStale(ctx, storeName), nil
}

// EvictStale 对外暴露独立的清理入口，始终以当前激活版本为保留对象。
func (m *Manager) EvictStale(ctx context.Context) ([]EvictionResult, error) {
	active, ok := m.ActiveStore()
	if !ok {
		return nil, errors.New("no active store")
	}

	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	return m.evictStale(ctx, active), nil
}

// evictStale 枚举所有 store 并删除与 keep 不同名的目录。
// 每个删除相互独立：失败只记录日志，不中断剩余清理。
func (m *Manager) evictStale(ctx context.Context, keep string) []EvictionResult {
	names, err := m.store.ListStores(ctx)
	if err != nil {
		m.logger.WithError(err).WithFields(logrus.Fields{"action": "evict"}).Warn("枚举 store 失败")
		return nil
	}

	var results []EvictionResult
	for _, name := range names {
		if name == keep {
			continue
		}
		deleteErr := m.store.DeleteStore(ctx, name)
		results = append(results, EvictionResult{StoreName: name, Err: deleteErr})

		fields := logrus.Fields{"action": "evict", "store": name, "keep": keep}
		if deleteErr != nil {
			m.logger.WithError(deleteErr).WithFields(fields).Warn("删除过期 store 失败")
			continue
		}
		m.logger.WithFields(fields).Info("过期 store 已删除")
	}
	return results
}

// Resolution 表示一次 Resolve 的结果：命中缓存或回退到实时抓取。
type Resolution struct {
	CacheHit bool
	Cached   *cache.ReadResult
	Live     *origin.Resource
}

// Close 释放结果持有的 Reader/Body。
func (r *Resolution) Close() {
	if r == nil {
		return
	}
	if r.Cached != nil {
		_ = r.Cached.Reader.Close()
	}
	if r.Live != nil && r.Live.Body != nil {
		_ = r.Live.Body.Close()
	}
}

// Resolve 按精确路径匹配查询激活 store：命中则直接返回缓存条目（不访问网络、
// 不做任何新鲜度判断）；未命中则执行一次实时抓取并原样返回，结果不写回缓存。
// 未命中且抓取失败时，错误不加包装直接向调用方传播。
func (m *Manager) Resolve(ctx context.Context, rawPath string) (*Resolution, error) {
	path := rawPath
	if normalized, err := manifest.NormalizePath(rawPath); err == nil {
		path = normalized
	}

	if active, ok := m.ActiveStore(); ok {
		locator := cache.Locator{StoreName: active, Path: path}
		result, err := m.store.Get(ctx, locator)
		switch {
		case err == nil:
			return &Resolution{CacheHit: true, Cached: result}, nil
		case errors.Is(err, cache.ErrNotFound):
			// miss, fall through to origin
		default:
			m.logger.WithError(err).WithFields(logrus.Fields{"action": "resolve", "store": active, "path": path}).Warn("缓存读取失败")
		}
	}

	live, err := m.fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Resolution{Live: live}, nil
}

// EntryCount 返回激活 store 当前持有的条目数，供诊断接口使用。
func (m *Manager) EntryCount(ctx context.Context) (int, error) {
	active, ok := m.ActiveStore()
	if !ok {
		return 0, nil
	}
	return m.store.CountEntries(ctx, active)
}

func (m *Manager) populateEntry(ctx context.Context, storeName, path string) error {
	res, err := m.fetcher.Fetch(ctx, path)
	if err != nil {
		return &PopulationError{StoreName: storeName, Path: path, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return &PopulationError{StoreName: storeName, Path: path, Err: fmt.Errorf("origin status %d", res.StatusCode)}
	}

	meta := cache.Metadata{
		StatusCode:  res.StatusCode,
		ContentType: res.Header.Get("Content-Type"),
		Headers:     replayableHeaders(res.Header),
	}
	locator := cache.Locator{StoreName: storeName, Path: path}
	if _, err := m.store.Put(ctx, locator, res.Body, cache.PutOptions{Meta: meta}); err != nil {
		return &PopulationError{StoreName: storeName, Path: path, Err: err}
	}
	return nil
}

func (m *Manager) enterInstalling() {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.populated = false
	if m.activeStore != "" {
		m.state = StateUpdating
		return
	}
	m.state = StateInstalling
}

// abortInstall 将状态回退：已有激活版本时保持 Active，否则回到 Uninstalled。
func (m *Manager) abortInstall() {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.populated = false
	if m.activeStore != "" {
		m.state = StateActive
		return
	}
	m.state = StateUninstalled
}

// replayableHeaders 挑选命中时值得回放的 end-to-end 头部，保留重复键的
// 全部取值。Content-Type/Content-Length 由网关按条目信息单独设置，不在此重复。
func replayableHeaders(h http.Header) map[string][]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string][]string, len(h))
	for key, values := range h {
		if origin.IsHopByHopHeader(key) {
			continue
		}
		canonical := http.CanonicalHeaderKey(key)
		switch canonical {
		case "Content-Type", "Content-Length", "Date":
			continue
		}
		out[canonical] = append(out[canonical], values...)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
