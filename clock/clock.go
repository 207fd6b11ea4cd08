package clock

import (
	"fmt"
	"time"

	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/config"
)

// Clock 驱动循环时钟
// 功能：管理驱动循环的时间推进，基于单调时钟计算每次轮询的真实耗时
// 说明：维护自启动以来的累计运行时间与轮询步数，提供时间格式化
type Clock struct {
	DT float64 // 名义轮询间隔（秒）

	T    float64 // 自启动以来的累计时间（秒）
	Step int64   // 当前轮询步数

	last time.Time // 上一次Tick的时刻（含单调时钟读数）
}

// New 根据配置创建新的时钟实例
// 功能：根据轮询配置初始化时钟
// 参数：stepConfig-轮询配置，包含轮询间隔
// 返回：初始化完成的时钟实例
func New(stepConfig config.ControlStep) *Clock {
	c := &Clock{DT: stepConfig.Interval}
	c.Init()
	return c
}

// Init 初始化时钟状态
// 功能：重置累计时间与步数，记录当前时刻作为计时起点
func (c *Clock) Init() {
	c.T = 0
	c.Step = 0
	c.last = time.Now()
}

// Tick 推进时钟
// 功能：计算距上一次Tick的真实耗时并累计
// 返回：距上一次Tick的耗时（秒），不小于0
// 说明：使用time.Time内嵌的单调时钟读数，不受系统时间调整影响
func (c *Clock) Tick() float64 {
	now := time.Now()
	dt := now.Sub(c.last).Seconds()
	if dt < 0 {
		dt = 0
	}
	c.last = now
	c.T += dt
	c.Step++
	return dt
}

// WaitNext 等待到下一个轮询时刻
// 功能：睡眠至上一次Tick时刻加上名义间隔，若已超过则立即返回
func (c *Clock) WaitNext() {
	next := c.last.Add(time.Duration(c.DT * float64(time.Second)))
	if d := time.Until(next); d > 0 {
		time.Sleep(d)
	}
}

// String 获取时钟的字符串表示
// 功能：将累计运行时间格式化为HH:MM:SS
func (c *Clock) String() string {
	t := c.T
	h := int(t / 3600)
	t -= float64(h * 3600)
	m := int(t / 60)
	t -= float64(m * 60)
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// GetHourMinuteSecond 获取累计时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
