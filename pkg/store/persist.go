package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Persister 持久化后端接口：按用户加载/保存整个子树
type Persister interface {
	LoadUser(uid string) (map[string]map[string]Record, error)
	SaveUser(uid string, tree map[string]map[string]Record) error
	Close() error
}

// Config 存储配置
type Config struct {
	UseLocalStore bool
	DataDir       string
	PostgresDSN   string
	Debug         bool
}

// NewPersister 根据配置选择持久化后端
func NewPersister(cfg Config) (Persister, error) {
	if !cfg.UseLocalStore && cfg.PostgresDSN != "" {
		fmt.Printf("🗄️  Using PostgreSQL persistence\n")
		return NewPostgresPersister(cfg.PostgresDSN)
	}
	fmt.Printf("📁 Using local file persistence\n")
	return NewFilePersister(cfg.DataDir), nil
}

// FilePersister 本地文件持久化实现（每个用户一个JSON文件）
type FilePersister struct {
	dataDir string
}

// NewFilePersister 创建本地文件持久化实例
func NewFilePersister(dataDir string) *FilePersister {
	if dataDir == "" {
		dataDir = "./data"
	}

	// 尝试创建数据目录，如果失败则退回临时目录
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		fmt.Printf("Warning: Failed to create data directory: %v\n", err)
		dataDir = filepath.Join(os.TempDir(), "trace-crm-data")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			fmt.Printf("Warning: Failed to create temp data directory: %v\n", err)
			dataDir = "."
		}
	}

	return &FilePersister{dataDir: dataDir}
}

func (p *FilePersister) userFilePath(uid string) string {
	return filepath.Join(p.dataDir, fmt.Sprintf("workspace_%s.json", uid))
}

// LoadUser 加载用户子树，文件不存在时返回空
func (p *FilePersister) LoadUser(uid string) (map[string]map[string]Record, error) {
	data, err := os.ReadFile(p.userFilePath(uid))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tree map[string]map[string]Record
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// SaveUser 保存用户子树
func (p *FilePersister) SaveUser(uid string, tree map[string]map[string]Record) error {
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.userFilePath(uid), data, 0644)
}

// Close 关闭（本地文件无需关闭）
func (p *FilePersister) Close() error {
	return nil
}

// 共享存储实例（单例模式）

var (
	sharedStore  *MemoryStore
	sharedConfig Config
	sharedMutex  sync.Mutex
)

// GetSharedStore 获取进程级共享存储，配置变化时重建
func GetSharedStore(cfg Config) (*MemoryStore, error) {
	sharedMutex.Lock()
	defer sharedMutex.Unlock()

	if sharedStore != nil && sharedConfig == cfg {
		fmt.Printf("♻️  Reusing existing store\n")
		return sharedStore, nil
	}

	if sharedStore != nil {
		fmt.Printf("🔄 Store configuration changed, recreating\n")
		sharedStore.Close()
	}

	persister, err := NewPersister(cfg)
	if err != nil {
		return nil, err
	}
	sharedStore = NewMemoryStoreWithPersister(persister, cfg.Debug)
	sharedConfig = cfg
	return sharedStore, nil
}
