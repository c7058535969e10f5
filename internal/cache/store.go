package cache

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责管理磁盘缓存的读写。磁盘布局遵循：
//
//	<StoragePath>/<storeName>/<escapedPath>           # 响应正文
//	<StoragePath>/<storeName>/<escapedPath>.meta.json # 状态码与头部元数据
//
// escapedPath 是归一化 URL 路径整体转义后的文件名（斜杠一并转义），
// store 目录因此是扁平的：不同的 URL 路径映射到不同的文件，
// "/" 与 "/root"、"/a" 与 "/a/b" 之类的组合不会在磁盘上互相占位。
// 每个条目由正文文件 + 元数据 sidecar 组成；一个 storeName 目录对应一个
// 版本化的资源快照，按 <appName>-v<N> 约定命名。
type Store interface {
	// Get 返回一个可流式读取的缓存条目。若不存在则返回 ErrNotFound。
	Get(ctx context.Context, locator Locator) (*ReadResult, error)

	// Put 将源站响应写入缓存，并产出新的 Entry 描述。实现需通过临时文件 + rename
	// 保证写入原子性，并在失败时清理临时文件。
	Put(ctx context.Context, locator Locator, body io.Reader, opts PutOptions) (*Entry, error)

	// Remove 删除单个条目（正文 + 元数据 sidecar）。
	Remove(ctx context.Context, locator Locator) error

	// ListStores 枚举当前存在的所有 store 目录名，供版本清理使用。
	ListStores(ctx context.Context) ([]string, error)

	// DeleteStore 整体删除一个 store 目录。目录不存在视为成功。
	DeleteStore(ctx context.Context, storeName string) error

	// CountEntries 返回指定 store 中的条目数量（按正文文件计数，忽略 sidecar）。
	CountEntries(ctx context.Context, storeName string) (int, error)
}

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	Meta    Metadata
	ModTime time.Time
}

// Metadata 记录写入时的响应状态与需要在命中时回放的头部。
// Headers 保留每个键的全部取值，重复头部在回放时不丢失。
type Metadata struct {
	StatusCode  int                 `json:"status_code"`
	ContentType string              `json:"content_type,omitempty"`
	Headers     map[string][]string `json:"headers,omitempty"`
}

// Locator 唯一定位一个缓存条目（Store + 相对路径），所有路径均为 URL 路径风格。
type Locator struct {
	StoreName string
	Path      string
}

// Entry 表示一次缓存命中结果，包含绝对文件路径、文件信息与回放元数据。
type Entry struct {
	Locator   Locator  `json:"locator"`
	FilePath  string   `json:"file_path"`
	SizeBytes int64    `json:"size_bytes"`
	Meta      Metadata `json:"meta"`
	ModTime   time.Time
}

// ReadResult 组合 Entry 与正文 Reader，便于网关层直接将 Body 流式返回。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")
