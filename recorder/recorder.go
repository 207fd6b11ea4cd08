// 信号变化记录器，将状态切换与通道变化写入MongoDB供事后分析
// 说明：控制器自身的状态从不持久化，进程重启总是回到循环起始状态
package recorder

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/config"
)

var (
	batchSize    = flag.Int("recorder.batch_size", 64, "批量写入的文档数")
	writeTimeout = flag.Duration("recorder.write_timeout", 5*time.Second, "单次写入超时")

	log = logrus.WithField("module", "recorder")
)

// MongoRecorder MongoDB记录器
// 功能：缓冲记录文档，按批量写入集合
// 说明：写入失败只记日志不中断控制循环
type MongoRecorder struct {
	client *mongo.Client
	col    *mongo.Collection

	mtx sync.Mutex
	buf []interface{}
}

// New 创建MongoDB记录器
// 功能：连接数据库并检查连通性
// 参数：cfg-记录配置（uri/db/col）
// 返回：就绪的记录器；连接失败时返回错误
func New(cfg config.Recorder) (*MongoRecorder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	log.Infof("recording to %s.%s", cfg.DB, cfg.Col)
	return &MongoRecorder{
		client: client,
		col:    client.Database(cfg.DB).Collection(cfg.Col),
	}, nil
}

// RecordTransition 记录状态/模式变化
// 参数：t-控制器累计时间（秒），state-新状态，mode-新模式
func (r *MongoRecorder) RecordTransition(t float64, state entity.State, mode entity.Mode) {
	r.push(bson.M{
		"t":     t,
		"type":  "transition",
		"state": state.String(),
		"mode":  mode.String(),
	})
}

// RecordChanges 记录通道变化
func (r *MongoRecorder) RecordChanges(t float64, changes []entity.SignalChange) {
	for _, c := range changes {
		r.push(bson.M{
			"t":       t,
			"type":    "signal",
			"channel": c.Channel.String(),
			"on":      c.On,
		})
	}
}

// push 追加文档，达到批量阈值时冲刷
func (r *MongoRecorder) push(doc bson.M) {
	r.mtx.Lock()
	r.buf = append(r.buf, doc)
	flush := len(r.buf) >= *batchSize
	var batch []interface{}
	if flush {
		batch = r.buf
		r.buf = nil
	}
	r.mtx.Unlock()
	if flush {
		r.write(batch)
	}
}

// write 批量写入集合
func (r *MongoRecorder) write(batch []interface{}) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), *writeTimeout)
	defer cancel()
	if _, err := r.col.InsertMany(ctx, batch); err != nil {
		log.Errorf("insert %d records failed: %v", len(batch), err)
	}
}

// Close 冲刷缓冲并断开连接
func (r *MongoRecorder) Close() error {
	r.mtx.Lock()
	batch := r.buf
	r.buf = nil
	r.mtx.Unlock()
	r.write(batch)
	ctx, cancel := context.WithTimeout(context.Background(), *writeTimeout)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// NopRecorder 空记录器
// 功能：未配置MongoDB时的占位实现
type NopRecorder struct{}

// NewNop 创建空记录器
func NewNop() *NopRecorder {
	return &NopRecorder{}
}

func (r *NopRecorder) RecordTransition(t float64, state entity.State, mode entity.Mode) {}

func (r *NopRecorder) RecordChanges(t float64, changes []entity.SignalChange) {}

func (r *NopRecorder) Close() error { return nil }
