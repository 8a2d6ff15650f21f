package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），可穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - 查询配置错误：INVALID_CONFIG（多个出口模式、未知排序字段、非法分组组合）
//   - 快照数据错误：MALFORMED_INPUT（缺少 fingerprint 等必填字段）
//   - Store 错误：NOT_FOUND
type DomainError struct {
	Code    string // 错误代码（如 "INVALID_CONFIG", "MALFORMED_INPUT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "query", "snapshot", "store"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is 让 errors.Is 按 Module + Code 比较，而不是按指针。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound       = "NOT_FOUND"       // 资源不存在
	ErrorCodeInvalidConfig  = "INVALID_CONFIG"  // 查询配置无效，执行前即被拒绝
	ErrorCodeMalformedInput = "MALFORMED_INPUT" // 输入记录缺少必填字段
	ErrorCodeInternalError  = "INTERNAL_ERROR"  // 内部错误
)

// 模块名称常量
const (
	ModuleQuery    = "query"    // 查询配置
	ModuleSnapshot = "snapshot" // 快照解码
	ModuleStore    = "store"    // 存储模块
	ModulePipeline = "pipeline" // Node 编排
)

// ConfigError 构造查询配置错误。
func ConfigError(format string, args ...any) *DomainError {
	return NewDomainError(ModuleQuery, ErrorCodeInvalidConfig, "query: "+fmt.Sprintf(format, args...))
}

// MalformedInputError 构造快照数据错误。
func MalformedInputError(format string, args ...any) *DomainError {
	return NewDomainError(ModuleSnapshot, ErrorCodeMalformedInput, "snapshot: "+fmt.Sprintf(format, args...))
}

// IsConfigError 检查错误是否为 INVALID_CONFIG
func IsConfigError(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidConfig
	}
	return false
}

// IsMalformedInput 检查错误是否为 MALFORMED_INPUT
func IsMalformedInput(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeMalformedInput
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}
