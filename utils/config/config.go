package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration 配置校验失败，必须阻止控制器构造
	ErrConfiguration = errors.New("invalid configuration")
)

// RuntimeConfig 运行时配置
// 功能：存储填充默认值并通过校验后的配置，供各模块直接读取
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 控制核心配置（已填充默认值）
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：填充默认值并校验配置合法性
// 参数：config-原始配置对象
// 返回：运行时配置指针；校验失败时返回ErrConfiguration包装的错误
// 算法说明：
// 1. 填充默认值：轮询间隔0.1s、相位时长9/3/1s、行人窗口8/2s、闪烁间隔1s
// 2. 校验所有时长为正
// 3. 关闭全红相位时不校验全红时长
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	rc := &RuntimeConfig{All: config, C: config.Control}

	if rc.C.Step.Interval == 0 {
		rc.C.Step.Interval = 0.1
	}
	t := &rc.C.Timing
	if t.VehicleGreen == 0 {
		t.VehicleGreen = 9
	}
	if t.VehicleYellow == 0 {
		t.VehicleYellow = 3
	}
	if t.AllRed == 0 {
		t.AllRed = 1
	}
	if t.PedestrianWalk == 0 {
		t.PedestrianWalk = 8
	}
	if t.PedestrianClearance == 0 {
		t.PedestrianClearance = 2
	}
	if rc.C.BlinkInterval == 0 {
		rc.C.BlinkInterval = 1
	}

	if rc.C.Step.Interval <= 0 {
		return nil, fmt.Errorf("%w: step.interval must be positive, got %v", ErrConfiguration, rc.C.Step.Interval)
	}
	if rc.C.BlinkInterval <= 0 {
		return nil, fmt.Errorf("%w: blink_interval must be positive, got %v", ErrConfiguration, rc.C.BlinkInterval)
	}
	for name, v := range map[string]float64{
		"timing.vehicle_green":        t.VehicleGreen,
		"timing.vehicle_yellow":       t.VehicleYellow,
		"timing.pedestrian_walk":      t.PedestrianWalk,
		"timing.pedestrian_clearance": t.PedestrianClearance,
	} {
		if v <= 0 {
			return nil, fmt.Errorf("%w: %s must be positive, got %v", ErrConfiguration, name, v)
		}
	}
	if rc.C.AllRedEnabled() && t.AllRed <= 0 {
		return nil, fmt.Errorf("%w: timing.all_red must be positive, got %v", ErrConfiguration, t.AllRed)
	}
	return rc, nil
}

// AllRedEnabled 是否插入全红清空相位
func (c Control) AllRedEnabled() bool {
	return c.WithAllRed == nil || *c.WithAllRed
}

// StartupFlashEnabled 是否执行启动闪烁序列
func (c Control) StartupFlashEnabled() bool {
	return c.StartupFlash == nil || *c.StartupFlash
}
