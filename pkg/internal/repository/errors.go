// Package repository 管理输出文件、衍生文件、依赖文件与工作文件的持久化，
// 以及修订号解析与状态字典。唯一性约束是创建路径唯一的并发安全机制.
package repository

import "errors"

var (
	// ErrEntryAlreadyExists 严格创建命中了既有唯一键，调用方需自行重试或放弃.
	ErrEntryAlreadyExists = errors.New("entry already exists")
	// ErrOutputFileNotFound 按 ID 查找输出文件失败.
	ErrOutputFileNotFound = errors.New("output file not found")
	// ErrChildrenFileNotFound 按 ID 查找衍生文件失败.
	ErrChildrenFileNotFound = errors.New("children file not found")
	// ErrWorkingFileNotFound 按 ID 查找工作文件失败.
	ErrWorkingFileNotFound = errors.New("working file not found")
	// ErrOutputTypeNotFound 按名称查找输出类型失败.
	ErrOutputTypeNotFound = errors.New("output type not found")
	// ErrFileStatusNotFound 状态行反查失败，仅内部使用（正向路径总是 get-or-create）.
	ErrFileStatusNotFound = errors.New("file status not found")
	// ErrNoOutputFile 修订号查询无命中，仅内部使用.
	ErrNoOutputFile = errors.New("no output file for group key")
	// ErrAmbiguousScope 输出文件既声明实体又声明资产实例，归属不明.
	ErrAmbiguousScope = errors.New("output file scope is ambiguous")
)
