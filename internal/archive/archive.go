package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/haoyun/waytrack/internal/models"
)

// 归档错误分类，边界层据此决定展示空列表、提示还是静默
var (
	// ErrStorageRead 底层存储读失败
	ErrStorageRead = errors.New("trip archive read failed")
	// ErrStorageWrite 底层存储写失败，待写入的行程按约定直接丢弃
	ErrStorageWrite = errors.New("trip archive write failed")
	// ErrMalformedRecord 存量 JSON 无法解析成行程集合
	ErrMalformedRecord = errors.New("trip archive malformed")
)

// KV 归档依赖的键值存储（注入以便用假实现隔离测试）
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Archive 行程归档
// 整个集合序列化为单键下的一个 JSON 数组；读-改-写不加锁，
// 依赖进程内单写者约定（并发 Append 会以后写者覆盖的方式丢行程）
type Archive struct {
	logger *zap.Logger
	kv     KV
	key    string
}

// New 创建归档
func New(logger *zap.Logger, kv KV, key string) *Archive {
	return &Archive{logger: logger, kv: kv, key: key}
}

// List 返回全部已存行程，不保证顺序（排序由调用方负责）
// 存储读失败返回 ErrStorageRead，存量数据损坏返回 ErrMalformedRecord，
// 两种情况调用方都应按"空列表 + 提示"处理而不是崩溃
func (a *Archive) List(ctx context.Context) ([]models.Trip, error) {
	data, ok, err := a.kv.Get(ctx, a.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageRead, err)
	}
	if !ok {
		return []models.Trip{}, nil
	}

	var trips []models.Trip
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if trips == nil {
		trips = []models.Trip{}
	}
	return trips, nil
}

// Append 读出现有集合、追加、整体写回
// 写失败返回 ErrStorageWrite，行程随之丢失（不排队重试）；
// 存量数据损坏时按空集合处理，避免一次损坏永久卡死录制
func (a *Archive) Append(ctx context.Context, trip models.Trip) error {
	trips, err := a.List(ctx)
	if err != nil {
		if !errors.Is(err, ErrMalformedRecord) {
			return err
		}
		a.logger.Warn("Stored trips malformed, starting a fresh collection",
			zap.String("key", a.key), zap.Error(err))
		trips = []models.Trip{}
	}

	trips = append(trips, trip)
	return a.write(ctx, trips)
}

// Remove 按 id 过滤后整体写回，id 不存在时是 no-op 而不是错误
func (a *Archive) Remove(ctx context.Context, tripID string) error {
	trips, err := a.List(ctx)
	if err != nil {
		return err
	}

	kept := trips[:0]
	for _, t := range trips {
		if t.ID != tripID {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(trips) {
		return nil
	}
	return a.write(ctx, kept)
}

// Clear 删除整个集合，之后 List 返回空
func (a *Archive) Clear(ctx context.Context) error {
	if err := a.kv.Delete(ctx, a.key); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return nil
}

func (a *Archive) write(ctx context.Context, trips []models.Trip) error {
	data, err := json.Marshal(trips)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := a.kv.Set(ctx, a.key, data); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return nil
}
