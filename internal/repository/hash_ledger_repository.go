// Package repository 负责数据的持久化访问。
package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// HashLedgerRepository 定义了哈希账本的操作接口。
// 账本是"块已成功摄取"的唯一事实来源：键为块内容摘要，值为来源文件名。
type HashLedgerRepository interface {
	// Load 从磁盘加载账本，文件不存在时视为空账本。
	Load() error
	// Contains 判断摘要是否已在账本中（含本次运行内存中新增的条目）。
	Contains(hash string) bool
	// Record 在内存中登记摘要与来源文件的映射。
	Record(hash, sourceFile string)
	// Source 返回摘要对应的来源文件名。
	Source(hash string) (string, bool)
	// Persist 将完整账本原子地写入磁盘，整体替换旧文件。
	Persist() error
	// Len 返回账本当前的条目数。
	Len() int
}

type fileHashLedger struct {
	path    string
	entries map[string]string
}

// NewHashLedgerRepository 创建一个基于 JSON 文件的账本实例。
func NewHashLedgerRepository(path string) HashLedgerRepository {
	return &fileHashLedger{
		path:    path,
		entries: make(map[string]string),
	}
}

func (l *fileHashLedger) Load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.entries = make(map[string]string)
			return nil
		}
		return fmt.Errorf("读取账本文件失败: %w", err)
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("解析账本文件失败: %w", err)
	}
	l.entries = entries
	return nil
}

func (l *fileHashLedger) Contains(hash string) bool {
	_, ok := l.entries[hash]
	return ok
}

func (l *fileHashLedger) Record(hash, sourceFile string) {
	l.entries[hash] = sourceFile
}

func (l *fileHashLedger) Source(hash string) (string, bool) {
	source, ok := l.entries[hash]
	return source, ok
}

// Persist 先写临时文件再 rename 覆盖，避免写入中断留下半个账本。
func (l *fileHashLedger) Persist() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化账本失败: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("创建账本目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".hashes-*.json")
	if err != nil {
		return fmt.Errorf("创建账本临时文件失败: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("写入账本临时文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("关闭账本临时文件失败: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("替换账本文件失败: %w", err)
	}
	return nil
}

func (l *fileHashLedger) Len() int {
	return len(l.entries)
}
