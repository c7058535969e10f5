package deploy

import (
	"errors"
	"fmt"
)

// PopulationError 表示安装阶段某个 manifest 条目抓取或写入失败。
// 失败会终止本次安装，但不影响先前已激活的版本；部分写入的 store
// 会保留在磁盘上，等待下一次安装重试覆盖。
type PopulationError struct {
	StoreName string
	Path      string
	Err       error
}

func (e *PopulationError) Error() string {
	return fmt.Sprintf("populate %s: %s: %v", e.StoreName, e.Path, e.Err)
}

func (e *PopulationError) Unwrap() error {
	return e.Err
}

// EvictionResult 记录一次 store 删除的结果，Err 为 nil 表示删除成功。
type EvictionResult struct {
	StoreName string
	Err       error
}

// ErrNotPopulated 表示在没有成功完成安装的情况下调用了 Activate。
var ErrNotPopulated = errors.New("store not populated")
