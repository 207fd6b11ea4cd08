package controller

import (
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
)

// advanceBlinkLocked 推进闪烁定时器
// 功能：NIGHT/EMERGENCY模式下按固定间隔翻转亮灭
// 说明：dt跨越多个间隔时在循环内逐一翻转
func (c *SignalController) advanceBlinkLocked(dt float64) {
	c.runtime.blinkRemaining -= dt
	for c.runtime.blinkRemaining <= 0 {
		c.runtime.blinkRemaining += c.blinkInterval
		c.runtime.blinkOn = !c.runtime.blinkOn
	}
}

// safeSignals 安全锁定图样
// 说明：输出链路故障时的稳态图样，双向红灯+双向行人STOP
func safeSignals() entity.SignalAssignment {
	var a entity.SignalAssignment
	a.Set(entity.ChannelVRed, true)
	a.Set(entity.ChannelHRed, true)
	a.Set(entity.ChannelVPedStop, true)
	a.Set(entity.ChannelHPedStop, true)
	return a
}

// computeLocked 从运行时数据确定性导出信号分配
// 算法说明：
// 1. 安全锁定优先于一切模式
// 2. MAINTENANCE全灭；NIGHT双向黄灯闪烁（行人灯熄灭）；
//    EMERGENCY双向红灯闪烁且双向行人STOP常亮
// 3. NORMAL取相位表基础分配，覆盖窗口通行段将该街道行人对翻转为WALK
func (c *SignalController) computeLocked(rt ctlRuntime) entity.SignalAssignment {
	if !rt.ok {
		return safeSignals()
	}
	switch rt.mode {
	case entity.ModeMaintenance:
		return entity.SignalAssignment{}
	case entity.ModeNight:
		var a entity.SignalAssignment
		if rt.blinkOn {
			a.Set(entity.ChannelVYellow, true)
			a.Set(entity.ChannelHYellow, true)
		}
		return a
	case entity.ModeEmergency:
		var a entity.SignalAssignment
		if rt.blinkOn {
			a.Set(entity.ChannelVRed, true)
			a.Set(entity.ChannelHRed, true)
		}
		a.Set(entity.ChannelVPedStop, true)
		a.Set(entity.ChannelHPedStop, true)
		return a
	default: // NORMAL
		a := c.table.BaseSignals(rt.state)
		if rt.overlay != nil && rt.overlay.walking() {
			switch rt.overlay.street {
			case entity.StreetV:
				a.Set(entity.ChannelVPedStop, false)
				a.Set(entity.ChannelVPedWalk, true)
			case entity.StreetH:
				a.Set(entity.ChannelHPedStop, false)
				a.Set(entity.ChannelHPedWalk, true)
			}
		}
		return a
	}
}
