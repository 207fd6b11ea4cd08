package output

import (
	"fmt"
	"time"

	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
)

// Manager 输出管理器
// 功能：持有Output Sink，按差量下发信号分配，执行安全停机序列
// 说明：只从驱动循环线程调用，不做并发保护
type Manager struct {
	sink        entity.IOutputSink
	last        entity.SignalAssignment // 上一次成功下发的分配
	initialized bool                    // 首次下发需推送全量分配
}

// NewManager 创建输出管理器
// 参数：sink-输出汇（GPIO或控制台）
func NewManager(sink entity.IOutputSink) *Manager {
	return &Manager{sink: sink}
}

// Apply 下发信号分配
// 功能：与上一次成功下发的分配比较，只写入变化的通道
// 返回：实际下发的通道变更；任一通道写入失败时立即返回错误，
// 且下一次Apply重新推送全量分配
func (m *Manager) Apply(a entity.SignalAssignment) ([]entity.SignalChange, error) {
	var changes []entity.SignalChange
	if !m.initialized {
		for c := entity.Channel(0); c < entity.NumChannels; c++ {
			changes = append(changes, entity.SignalChange{Channel: c, On: a.Get(c)})
		}
	} else {
		changes = a.Diff(m.last)
	}
	for _, ch := range changes {
		if err := m.sink.Set(ch.Channel, ch.On); err != nil {
			m.initialized = false
			return nil, fmt.Errorf("set %v: %w", ch.Channel, err)
		}
	}
	m.initialized = true
	m.last = a
	return changes, nil
}

// Shutdown 安全停机序列
// 功能：双向全红（含行人STOP）-> 保持clearance秒 -> 全灭 -> 释放硬件资源
// 参数：clearance-全红保持时长（秒）
// 说明：任一步失败仍继续后续步骤，保证资源释放；返回首个遇到的错误
func (m *Manager) Shutdown(clearance float64) error {
	var firstErr error
	record := func(err error) {
		if err != nil {
			log.Errorf("shutdown step failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	var allRed entity.SignalAssignment
	allRed.Set(entity.ChannelVRed, true)
	allRed.Set(entity.ChannelHRed, true)
	allRed.Set(entity.ChannelVPedStop, true)
	allRed.Set(entity.ChannelHPedStop, true)
	_, err := m.Apply(allRed)
	record(err)
	if err == nil && clearance > 0 {
		time.Sleep(time.Duration(clearance * float64(time.Second)))
	}
	_, err = m.Apply(entity.SignalAssignment{})
	record(err)
	record(m.sink.Close())
	if firstErr == nil {
		log.Infof("outputs released")
	}
	return firstErr
}
