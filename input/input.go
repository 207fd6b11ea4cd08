package input

import (
	"errors"
	"flag"

	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/container"
)

var (
	queueCapacity = flag.Int("input.queue_capacity", 64, "请求源事件缓冲容量")
)

// Manager 请求源管理器
// 功能：聚合多个请求源，按到达时间顺序输出事件
// 说明：同一轮poll内的事件顺序即为交给控制器的处理顺序
type Manager struct {
	sources []entity.IRequestSource
}

// NewManager 创建请求源管理器
// 参数：sources-启用的请求源列表，可以为空
func NewManager(sources ...entity.IRequestSource) *Manager {
	return &Manager{sources: sources}
}

// Poll 非阻塞取出全部已到达的事件
// 功能：排干各请求源的缓冲，按到达时间从早到晚排序
// 算法说明：全部压入优先队列（优先级为到达时刻）后Heapify，逐一弹出
func (m *Manager) Poll() []entity.Event {
	pq := container.NewPriorityQueue[entity.Event]()
	for _, s := range m.sources {
		for _, e := range s.Poll() {
			pq.Push(e, float64(e.Time.UnixNano()))
		}
	}
	if pq.Len() == 0 {
		return nil
	}
	pq.Heapify()
	out := make([]entity.Event, 0, pq.Len())
	for pq.Len() > 0 {
		e, _ := pq.HeapPop()
		out = append(out, e)
	}
	return out
}

// Close 停止全部请求源
func (m *Manager) Close() error {
	var errs []error
	for _, s := range m.sources {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
