package output

import (
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
)

// ConsoleSink 模拟输出汇
// 功能：没有硬件时将通道变化打印到日志，用于开发与演示
type ConsoleSink struct{}

// NewConsoleSink 创建模拟输出汇
func NewConsoleSink() *ConsoleSink {
	log.Infof("no GPIO configured, signal changes will be printed")
	return &ConsoleSink{}
}

// Set 打印单个通道的开关状态
func (s *ConsoleSink) Set(c entity.Channel, on bool) error {
	state := "OFF"
	if on {
		state = "ON"
	}
	log.Infof("%v: %s", c, state)
	return nil
}

// Close 关闭模拟输出汇
func (s *ConsoleSink) Close() error {
	log.Infof("console sink closed")
	return nil
}
