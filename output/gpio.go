package output

import (
	"fmt"

	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/config"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIOSink 真实硬件输出汇
// 功能：通过periph.io驱动GPIO引脚点亮信号灯
// 说明：通道到引脚名的映射来自配置，核心不感知引脚编号
type GPIOSink struct {
	pins [entity.NumChannels]gpio.PinIO
}

// NewGPIOSink 创建GPIO输出汇
// 功能：初始化periph.io宿主，按配置解析并拉低全部引脚
// 参数：cfg-GPIO输出配置，要求为全部十个通道配置引脚名
// 返回：初始化完成的输出汇；宿主初始化失败、引脚缺失或不存在时返回错误
func NewGPIOSink(cfg config.GPIOOutput) (*GPIOSink, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init gpio host: %w", err)
	}
	s := &GPIOSink{}
	for c := entity.Channel(0); c < entity.NumChannels; c++ {
		name, ok := cfg.Pins[c.String()]
		if !ok {
			return nil, fmt.Errorf("no pin configured for channel %v", c)
		}
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("gpio pin %q not found for channel %v", name, c)
		}
		if err := pin.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("init pin %q: %w", name, err)
		}
		s.pins[c] = pin
		log.Debugf("channel %v -> pin %s", c, pin.Name())
	}
	return s, nil
}

// Set 设置单个通道的开关状态
func (s *GPIOSink) Set(c entity.Channel, on bool) error {
	if !c.Valid() {
		return fmt.Errorf("unknown channel %v", c)
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	return s.pins[c].Out(level)
}

// Close 释放硬件资源
// 功能：将全部引脚拉低
func (s *GPIOSink) Close() error {
	var firstErr error
	for _, pin := range s.pins {
		if pin == nil {
			continue
		}
		if err := pin.Out(gpio.Low); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
