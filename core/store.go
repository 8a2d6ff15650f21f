package core

import "context"

// Store 是快照原始数据的只读来源接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 引擎本身不做任何 I/O：Store 只被外部加载方（CLI / API 启动流程）使用
//
// 实现：
//   - store.FileStore：本地目录中的 details.json 等文件
//   - store.MemoryStore：测试 / 嵌入式使用
//   - store.RedisStore：由外部下载任务写入 redis 的快照
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值
	Get(ctx context.Context, key string) ([]byte, error)

	// Close 关闭连接/释放资源
	Close() error
}

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")
)

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	if domainErr != nil && domainErr.Module == ModuleStore {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}
